// Package app assembles every collector component into a running
// process: store connection pools, schema bring-up, the alert and
// notification stack, the poll/scan schedulers, and the read API. cmd
// packages depend only on this package, never on the leaf internal
// packages directly.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/csmblade/panfm-go-rewrite/internal/alerts"
	"github.com/csmblade/panfm-go-rewrite/internal/config"
	"github.com/csmblade/panfm-go-rewrite/internal/firewallclient"
	"github.com/csmblade/panfm-go-rewrite/internal/models"
	"github.com/csmblade/panfm-go-rewrite/internal/notify"
	"github.com/csmblade/panfm-go-rewrite/internal/polling"
	"github.com/csmblade/panfm-go-rewrite/internal/polling/resolve"
	"github.com/csmblade/panfm-go-rewrite/internal/readapi"
	"github.com/csmblade/panfm-go-rewrite/internal/registry"
	"github.com/csmblade/panfm-go-rewrite/internal/scan"
	"github.com/csmblade/panfm-go-rewrite/internal/scheduler"
	"github.com/csmblade/panfm-go-rewrite/internal/telemetry"
	"github.com/csmblade/panfm-go-rewrite/internal/timeseries"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// Job cadences, matching the per-purpose table this collector's
// scheduler registration follows: throughput runs every 5 seconds so
// rate derivation always has a recent-enough prior sample, everything
// else that reads the firewall runs once a minute, and the global
// housekeeping jobs run on their own independent schedules.
const (
	throughputInterval      = 5 * time.Second
	connectedDevicesInterval = 60 * time.Second
	applicationsInterval    = 60 * time.Second
	logsInterval            = 60 * time.Second
	alertEvaluateInterval   = 30 * time.Second
	cooldownGCInterval      = 15 * time.Minute
	retentionInterval       = time.Hour
	schedulerReportInterval = 30 * time.Second
	scanDrainInterval       = 30 * time.Second
)

// ClientFactory builds the firewall transport for one configured
// device. Production wiring injects an XML/HTTPS implementation; tests
// inject a fake.
type ClientFactory func(d config.DeviceConfig) firewallclient.Client

// App holds every long-lived component of a running collector process.
type App struct {
	cfg *config.Snapshot
	pool *pgxpool.Pool

	Timeseries *timeseries.Store
	Registry   *registry.Store
	Alerts     *alerts.Store
	AlertMgr   *alerts.Manager
	Dispatcher *notify.Dispatcher
	Scan       *scan.Store
	Poller     *polling.Poller
	Scheduler  *scheduler.Scheduler
	ReadAPI    *readapi.API
	Telemetry  *telemetry.Registry

	clientFactory ClientFactory

	// credentials maps a device's registry id to its auth token, loaded
	// once from the in-memory config snapshot at startup. Credentials
	// never persist to the devices table itself.
	credentials map[uuid.UUID]string
}

// New connects to the store, installs the schema, and wires every
// component against cfg. It does not start the scheduler; call Start
// for that once the caller is ready to begin background work.
func New(ctx context.Context, cfg *config.Snapshot, clientFactory ClientFactory) (*App, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.Store.Resolve())
	if err != nil {
		return nil, fmt.Errorf("parse store dsn: %w", err)
	}
	poolCfg.MinConns = int32(cfg.MinConnections)
	poolCfg.MaxConns = int32(cfg.MaxConnections)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect store: %w", err)
	}

	installer := timeseries.NewSchemaInstaller(pool)
	if errs := installer.EnsureSchema(ctx); len(errs) > 0 {
		log.Warn().Strs("errors", errs).Msg("schema bring-up reported non-fatal errors")
	}

	ts := timeseries.NewStore(pool)
	reg := registry.NewStore(pool)
	alertStore := alerts.NewStore(pool)
	scanStore := scan.NewStore(pool)

	dispatcher := notify.NewDispatcher()
	dispatcher.Replace(BuildChannels(cfg.Channels))

	alertMgr := alerts.NewManager(alertStore, dispatcher, ts)

	resolver := resolve.New(resolveServers(), 2*time.Second)
	poller := polling.NewPoller(ts, reg, nil, resolver)

	sched, err := scheduler.New(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	telem := telemetry.New()
	sched.SetObserver(telem)

	credentials := make(map[uuid.UUID]string, len(cfg.Devices))
	for _, dc := range cfg.Devices {
		credentials[models.DeviceID(dc.Address, dc.DisplayName)] = dc.AuthToken
	}

	a := &App{
		cfg:           cfg,
		pool:          pool,
		Timeseries:    ts,
		Registry:      reg,
		Alerts:        alertStore,
		AlertMgr:      alertMgr,
		Dispatcher:    dispatcher,
		Scan:          scanStore,
		Poller:        poller,
		Scheduler:     sched,
		Telemetry:     telem,
		clientFactory: clientFactory,
		credentials:   credentials,
	}
	a.ReadAPI = readapi.New(ts, reg, alertStore, scanStore, poller, sched)

	if err := reg.Sync(ctx, cfg.Devices); err != nil {
		return nil, fmt.Errorf("sync device registry: %w", err)
	}

	return a, nil
}

func resolveServers() []string {
	return []string{"1.1.1.1:53", "8.8.8.8:53"}
}

func BuildChannels(channels []config.ChannelConfig) []notify.Channel {
	out := make([]notify.Channel, 0, len(channels))
	for _, c := range channels {
		switch c.Kind {
		case config.ChannelEmail:
			out = append(out, notify.NewEmailChannel(c.ID, c.SMTPHost, c.SMTPPort, c.SMTPUser, c.SMTPPassword, c.FromAddress, c.Recipients))
		case config.ChannelWebhook:
			out = append(out, notify.NewWebhookChannel(c.ID, c.URL, c.Token))
		case config.ChannelSlack:
			// Slack channels reuse the generic URL field to carry the
			// target channel ID, since a Slack destination has no
			// webhook URL of its own (it posts via the Bot API token).
			out = append(out, notify.NewSlackChannel(c.ID, c.Token, c.URL))
		default:
			log.Warn().Str("id", c.ID).Str("kind", string(c.Kind)).Msg("unknown notification channel kind, skipping")
		}
	}
	return out
}

// Start registers every background job and starts the scheduler. Device
// collection jobs are registered once per enabled device at the device
// list known at startup; a device added later requires a restart to pick
// up its own jobs, matching how the registry is synced once in New. It
// does not block; call Stop during shutdown.
func (a *App) Start(ctx context.Context) error {
	devices, err := a.Registry.List(ctx)
	if err != nil {
		return fmt.Errorf("list devices for job registration: %w", err)
	}

	for _, d := range devices {
		if !d.Enabled {
			continue
		}
		d := d
		if err := a.Scheduler.Register(scheduler.JobSpec{Name: "throughput.collect." + d.DisplayName, Every: throughputInterval, SingleInstance: true}, func(ctx context.Context) error {
			return a.collectDevice(ctx, d, (*polling.Poller).CollectThroughput)
		}); err != nil {
			return fmt.Errorf("register throughput job for %s: %w", d.DisplayName, err)
		}
		if err := a.Scheduler.Register(scheduler.JobSpec{Name: "connected_devices.collect." + d.DisplayName, Every: connectedDevicesInterval, SingleInstance: true}, func(ctx context.Context) error {
			return a.collectDevice(ctx, d, (*polling.Poller).CollectConnectedDevices)
		}); err != nil {
			return fmt.Errorf("register connected-devices job for %s: %w", d.DisplayName, err)
		}
		if err := a.Scheduler.Register(scheduler.JobSpec{Name: "applications.collect." + d.DisplayName, Every: applicationsInterval, SingleInstance: true}, func(ctx context.Context) error {
			return a.collectDevice(ctx, d, (*polling.Poller).CollectApplications)
		}); err != nil {
			return fmt.Errorf("register applications job for %s: %w", d.DisplayName, err)
		}
		if err := a.Scheduler.Register(scheduler.JobSpec{Name: "logs.collect." + d.DisplayName, Every: logsInterval, SingleInstance: true}, func(ctx context.Context) error {
			return a.collectDevice(ctx, d, (*polling.Poller).CollectLogs)
		}); err != nil {
			return fmt.Errorf("register logs job for %s: %w", d.DisplayName, err)
		}
	}

	if err := a.Scheduler.Register(scheduler.JobSpec{Name: "alerts.evaluate", Every: alertEvaluateInterval, SingleInstance: true}, a.evaluateAlerts); err != nil {
		return fmt.Errorf("register alert evaluation job: %w", err)
	}
	if err := a.Scheduler.Register(scheduler.JobSpec{Name: "alerts.cooldown_gc", Every: cooldownGCInterval, SingleInstance: true}, a.cooldownGC); err != nil {
		return fmt.Errorf("register cooldown gc job: %w", err)
	}
	if err := a.Scheduler.Register(scheduler.JobSpec{Name: "retention.cleanup", Every: retentionInterval, SingleInstance: true}, a.retentionSweep); err != nil {
		return fmt.Errorf("register retention job: %w", err)
	}
	if err := a.Scheduler.Register(scheduler.JobSpec{Name: "scheduler.self_report", Every: schedulerReportInterval, SingleInstance: true}, a.reportSchedulerStats); err != nil {
		return fmt.Errorf("register scheduler self-report job: %w", err)
	}

	scanWorker := scan.NewWorker(a.Scan, scan.NewScanner(), a.cfg.ScanMaxConcurrentPerDevice)
	if err := a.Scheduler.Register(scheduler.JobSpec{Name: "drain-scan-queue", Every: scanDrainInterval, SingleInstance: true}, scanWorker.DrainOnce); err != nil {
		return fmt.Errorf("register scan worker job: %w", err)
	}

	if err := a.Scheduler.Register(scheduler.JobSpec{Name: "dispatch-scheduled-scans", Cron: "*/5 * * * *", SingleInstance: true}, a.dispatchScheduledScans); err != nil {
		return fmt.Errorf("register scan dispatch job: %w", err)
	}

	a.Scheduler.Start()
	return nil
}

// Stop gracefully drains the scheduler and closes the store pool.
func (a *App) Stop(ctx context.Context) error {
	err := a.Scheduler.Stop(ctx)
	a.pool.Close()
	return err
}

// buildPollingDevice resolves the live client for a registry device,
// pairing it with the auth token from the in-memory config snapshot
// (never persisted to the devices table). It returns ok=false when no
// client is available, e.g. a device missing its address or token.
func (a *App) buildPollingDevice(d models.Device) (polling.Device, bool) {
	cfg := config.DeviceConfig{
		Address:      d.Address,
		AuthToken:    a.credentials[d.ID],
		DisplayName:  d.DisplayName,
		MonitorIface: d.MonitorIface,
		WANIface:     d.WANIface,
	}
	client := a.clientFactory(cfg)
	if client == nil {
		return polling.Device{}, false
	}
	return polling.Device{
		ID:           d.ID,
		DisplayName:  d.DisplayName,
		MonitorIface: d.MonitorIface,
		WANIface:     d.WANIface,
		Client:       client,
	}, true
}

// collectDevice runs one collection method for one device job tick,
// re-resolving the client every run so a credential rotation picked up
// mid-process takes effect on the next tick without a restart.
func (a *App) collectDevice(ctx context.Context, d models.Device, collect func(*polling.Poller, context.Context, polling.Device) error) error {
	pd, ok := a.buildPollingDevice(d)
	if !ok {
		log.Warn().Str("device", d.DisplayName).Msg("no client available for device, skipping collection")
		return nil
	}
	if err := collect(a.Poller, ctx, pd); err != nil {
		log.Error().Err(err).Str("device", d.DisplayName).Msg("device collection failed")
	}
	return nil
}

// evaluateAlerts runs the alerts.evaluate job: for every enabled device,
// build the scalar metric snapshot from its latest cached throughput
// sample and hand it to the alert manager, which resolves any
// synthetic (app_<name>, per_ip_bandwidth_5min) configs itself.
func (a *App) evaluateAlerts(ctx context.Context) error {
	devices, err := a.Registry.List(ctx)
	if err != nil {
		return fmt.Errorf("list devices: %w", err)
	}
	for _, d := range devices {
		if !d.Enabled {
			continue
		}
		sample, ok := a.Poller.LatestSample(d.ID)
		if !ok {
			continue
		}
		metrics := map[string]float64{
			"cpu":              sample.CPUDataPlane,
			"memory":           sample.MemoryPct,
			"disk":             0,
			"sessions":         float64(sample.SessionsActive),
			"threats":          float64(sample.ThreatsCritical + sample.ThreatsHigh + sample.ThreatsMedium),
			"interface_errors": float64(sample.IfaceErrors),
			"throughput_in":    sample.InboundMbps,
			"throughput_out":   sample.OutboundMbps,
			"throughput_total": sample.TotalMbps,
		}
		if err := a.AlertMgr.EvaluateDevice(ctx, d.ID, metrics); err != nil {
			log.Error().Err(err).Str("device", d.DisplayName).Msg("alert evaluation failed")
		}
	}
	return nil
}

// cooldownGC runs the alerts.cooldown_gc job.
func (a *App) cooldownGC(ctx context.Context) error {
	n, err := a.Alerts.DeleteExpiredCooldowns(ctx)
	if err != nil {
		return fmt.Errorf("delete expired cooldowns: %w", err)
	}
	log.Debug().Int64("deleted", n).Msg("cooldown gc complete")
	return nil
}

// reportSchedulerStats runs the scheduler.self_report job: snapshots
// every registered job's run history and persists it to the
// scheduler_stats hypertable for historical uptime/health queries.
func (a *App) reportSchedulerStats(ctx context.Context) error {
	return a.Timeseries.InsertSchedulerStats(ctx, a.Scheduler.Stats())
}

func (a *App) dispatchScheduledScans(ctx context.Context) error {
	schedules, err := a.Scan.ListSchedules(ctx)
	if err != nil {
		return fmt.Errorf("list scan schedules: %w", err)
	}
	resolver := scan.NewTargetResolver(a.Timeseries, a.Registry)
	now := time.Now()
	for _, sc := range schedules {
		if !sc.Enabled || !scheduleDue(sc, now) {
			continue
		}
		targets, err := resolver.Resolve(ctx, sc.DeviceID, sc.Target)
		if err != nil {
			log.Warn().Err(err).Int64("schedule", sc.ID).Msg("resolve scan targets failed")
			continue
		}
		for _, target := range targets {
			item := models.ScanQueueItem{
				ScheduleID: sc.ID,
				DeviceID:   sc.DeviceID,
				TargetIP:   target,
				Profile:    sc.Profile,
			}
			if err := a.Scan.Enqueue(ctx, item); err != nil {
				log.Warn().Err(err).Int64("schedule", sc.ID).Msg("enqueue scan failed")
			}
		}
		if err := a.Scan.MarkScheduleRun(ctx, sc.ID, "dispatched", ""); err != nil {
			log.Warn().Err(err).Int64("schedule", sc.ID).Msg("mark schedule run failed")
		}
	}
	return nil
}

// scheduleDue reports whether sc's trigger has elapsed as of now. Interval
// triggers fire every IntervalSec since the last run; daily/weekly
// triggers are evaluated to the minute against LastRunAt so a 5-minute
// dispatch tick never double-fires within the same matching minute. Cron
// expressions are not parsed: a cron trigger is due once per calendar day.
func scheduleDue(sc models.ScheduledScan, now time.Time) bool {
	if sc.LastRunAt == nil {
		return true
	}
	switch sc.Trigger.Kind {
	case models.TriggerInterval:
		return now.Sub(*sc.LastRunAt) >= time.Duration(sc.Trigger.IntervalSec)*time.Second
	case models.TriggerDaily:
		return matchesTimeOfDay(sc.Trigger.DailyAt, now) && now.Truncate(time.Minute).After(sc.LastRunAt.Truncate(time.Minute))
	case models.TriggerWeekly:
		return now.Weekday() == sc.Trigger.WeeklyDOW && matchesTimeOfDay(sc.Trigger.WeeklyAt, now) &&
			now.Truncate(time.Minute).After(sc.LastRunAt.Truncate(time.Minute))
	default:
		// The cron expression itself is not evaluated; a cron trigger
		// is treated as due once per calendar day.
		return now.YearDay() != sc.LastRunAt.YearDay() || now.Year() != sc.LastRunAt.Year()
	}
}

func matchesTimeOfDay(hhmm string, now time.Time) bool {
	var h, m int
	if _, err := fmt.Sscanf(hhmm, "%d:%d", &h, &m); err != nil {
		return false
	}
	return now.Hour() == h && now.Minute() == m
}

// retentionSweep runs the retention.cleanup job. Most hypertables are
// pruned by the native TimescaleDB retention policies installed at
// schema bring-up; alert_history's resolved-only retention needs the
// row-level predicate a drop_chunks policy can't express, so it is
// deleted here explicitly.
func (a *App) retentionSweep(ctx context.Context) error {
	n, err := a.Alerts.DeleteExpiredResolvedHistory(ctx)
	if err != nil {
		return fmt.Errorf("delete expired alert history: %w", err)
	}
	log.Debug().Int64("deleted", n).Msg("alert history retention sweep complete")
	return nil
}
