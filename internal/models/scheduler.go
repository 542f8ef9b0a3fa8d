package models

import "time"

// SchedulerState is the scheduler's own lifecycle state.
type SchedulerState string

const (
	SchedulerStopped SchedulerState = "stopped"
	SchedulerRunning SchedulerState = "running"
)

// JobExecution is one recorded run of a scheduled job.
type JobExecution struct {
	JobID     string        `json:"jobId"`
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"duration"`
	Err       string        `json:"error,omitempty"`
}

// JobStatus is the latest known state of a registered job.
type JobStatus struct {
	JobID       string     `json:"jobId"`
	LastRun     *time.Time `json:"lastRun,omitempty"`
	NextRun     *time.Time `json:"nextRun,omitempty"`
	LastError   string     `json:"lastError,omitempty"`
	RunCount    int64      `json:"runCount"`
	ErrorCount  int64      `json:"errorCount"`
}

// SchedulerStatsSnapshot is the scheduler's periodic self-report.
type SchedulerStatsSnapshot struct {
	Time             time.Time      `json:"time"`
	State            SchedulerState `json:"state"`
	TotalExecutions  int64          `json:"totalExecutions"`
	TotalErrors      int64          `json:"totalErrors"`
	UptimeSeconds    int64          `json:"uptimeSeconds"`
	Jobs             []JobStatus    `json:"jobs"`
	RecentExecutions []JobExecution `json:"recentExecutions"`
}
