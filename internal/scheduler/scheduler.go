// Package scheduler wraps go-co-op/gocron/v2 with the collector's job
// contract: named, timezone-aware, single-instance jobs that report
// their own success/failure into a shared stats snapshot (spec §4.1).
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/csmblade/panfm-go-rewrite/internal/models"
	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
)

// JobFunc is the work a scheduled job performs. It receives a context
// cancelled on shutdown and returns an error, which is recorded but
// never panics the scheduler.
type JobFunc func(ctx context.Context) error

// JobSpec declares one registered job's name, trigger, and overlap
// handling.
type JobSpec struct {
	Name  string
	Every time.Duration // fixed-interval trigger; zero means use Cron
	Cron  string         // five or six-field cron expression

	// SingleInstance prevents overlapping runs of the same job when one
	// run takes longer than the interval.
	SingleInstance bool
}

// JobObserver receives each job's outcome as it completes. Telemetry
// wiring implements this to export Prometheus counters/histograms
// without the scheduler depending on the telemetry package directly.
type JobObserver interface {
	ObserveJob(name string, dur time.Duration, failed bool)
}

// Scheduler runs the collector's background jobs: polling, retention
// cleanup, scan dispatch, and config reload propagation.
type Scheduler struct {
	sched    gocron.Scheduler
	tz       *time.Location
	observer JobObserver

	mu         sync.Mutex
	startedAt  time.Time
	state      models.SchedulerState
	statuses   map[string]*models.JobStatus
	executions []models.JobExecution
}

const maxRecentExecutions = 50

// New creates a Scheduler bound to the given timezone. Jobs registered
// with a Cron trigger are evaluated in this location.
func New(tz *time.Location) (*Scheduler, error) {
	sched, err := gocron.NewScheduler(gocron.WithLocation(tz))
	if err != nil {
		return nil, err
	}
	return &Scheduler{
		sched:    sched,
		tz:       tz,
		state:    models.SchedulerStopped,
		statuses: map[string]*models.JobStatus{},
	}, nil
}

// Register schedules a job. It must be called before Start.
func (s *Scheduler) Register(spec JobSpec, fn JobFunc) error {
	s.mu.Lock()
	s.statuses[spec.Name] = &models.JobStatus{JobID: spec.Name}
	s.mu.Unlock()

	def := s.triggerDefinition(spec)
	opts := []gocron.JobOption{gocron.WithName(spec.Name)}
	if spec.SingleInstance {
		opts = append(opts, gocron.WithSingletonMode(gocron.LimitModeReschedule))
	}

	wrapped := func() {
		s.runWithTracking(spec.Name, fn)
	}

	_, err := s.sched.NewJob(def, gocron.NewTask(wrapped), opts...)
	return err
}

func (s *Scheduler) triggerDefinition(spec JobSpec) gocron.JobDefinition {
	if spec.Cron != "" {
		return gocron.CronJob(spec.Cron, false)
	}
	return gocron.DurationJob(spec.Every)
}

// runWithTracking executes fn, recovering from panics (a misbehaving job
// must never take the scheduler down) and records the outcome.
func (s *Scheduler) runWithTracking(name string, fn JobFunc) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	var runErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Str("job", name).Interface("panic", r).Msg("scheduled job panicked")
				runErr = context.DeadlineExceeded
			}
		}()
		runErr = fn(ctx)
	}()

	s.record(name, start, time.Since(start), runErr)
}

func (s *Scheduler) record(name string, start time.Time, dur time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, ok := s.statuses[name]
	if !ok {
		status = &models.JobStatus{JobID: name}
		s.statuses[name] = status
	}
	startCopy := start
	status.LastRun = &startCopy
	status.RunCount++
	errMsg := ""
	if err != nil {
		status.ErrorCount++
		status.LastError = err.Error()
		errMsg = err.Error()
		log.Error().Err(err).Str("job", name).Msg("scheduled job failed")
	} else {
		log.Debug().Str("job", name).Dur("duration", dur).Msg("scheduled job completed")
	}

	s.executions = append(s.executions, models.JobExecution{JobID: name, StartedAt: start, Duration: dur, Err: errMsg})
	if len(s.executions) > maxRecentExecutions {
		s.executions = s.executions[len(s.executions)-maxRecentExecutions:]
	}

	if s.observer != nil {
		s.observer.ObserveJob(name, dur, err != nil)
	}
}

// SetObserver attaches a telemetry sink notified of every job
// execution from this point forward. Call before Start.
func (s *Scheduler) SetObserver(o JobObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observer = o
}

// Start begins running scheduled jobs.
func (s *Scheduler) Start() {
	s.mu.Lock()
	s.startedAt = time.Now()
	s.state = models.SchedulerRunning
	s.mu.Unlock()
	s.sched.Start()
}

// Stop drains running jobs and shuts the scheduler down, honoring ctx's
// deadline for graceful shutdown.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := make(chan error, 1)
	go func() { done <- s.sched.Shutdown() }()

	select {
	case err := <-done:
		s.mu.Lock()
		s.state = models.SchedulerStopped
		s.mu.Unlock()
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns a point-in-time snapshot of scheduler health, written to
// the scheduler_stats hypertable on its own job (spec §4.1/§4.3).
func (s *Scheduler) Stats() models.SchedulerStatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	var totalExec, totalErr int64
	jobs := make([]models.JobStatus, 0, len(s.statuses))
	for _, st := range s.statuses {
		jobs = append(jobs, *st)
		totalExec += int64(st.RunCount)
		totalErr += int64(st.ErrorCount)
	}

	uptime := time.Duration(0)
	if !s.startedAt.IsZero() {
		uptime = time.Since(s.startedAt)
	}

	return models.SchedulerStatsSnapshot{
		Time:             time.Now(),
		State:            s.state,
		TotalExecutions:  totalExec,
		TotalErrors:      totalErr,
		UptimeSeconds:    int64(uptime.Seconds()),
		Jobs:             jobs,
		RecentExecutions: append([]models.JobExecution(nil), s.executions...),
	}
}
