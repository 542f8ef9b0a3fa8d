// Package readapi adapts the storage and runtime packages into the
// read-only views a presentation layer (HTTP handlers, CLI reports)
// consumes, without exposing write paths or pool handles directly.
package readapi

import (
	"context"
	"time"

	"github.com/csmblade/panfm-go-rewrite/internal/alerts"
	"github.com/csmblade/panfm-go-rewrite/internal/models"
	"github.com/csmblade/panfm-go-rewrite/internal/polling"
	"github.com/csmblade/panfm-go-rewrite/internal/registry"
	"github.com/csmblade/panfm-go-rewrite/internal/scan"
	"github.com/csmblade/panfm-go-rewrite/internal/scheduler"
	"github.com/csmblade/panfm-go-rewrite/internal/timeseries"
	"github.com/google/uuid"
)

// API is the single read surface wired to the running process's stores;
// every method is safe for concurrent use from HTTP handler goroutines.
type API struct {
	ts        *timeseries.Store
	registry  *registry.Store
	alerts    *alerts.Store
	scan      *scan.Store
	poller    *polling.Poller
	scheduler *scheduler.Scheduler
}

func New(ts *timeseries.Store, reg *registry.Store, alertStore *alerts.Store, scanStore *scan.Store, poller *polling.Poller, sched *scheduler.Scheduler) *API {
	return &API{ts: ts, registry: reg, alerts: alertStore, scan: scanStore, poller: poller, scheduler: sched}
}

// Devices returns every configured device, enabled or not.
func (a *API) Devices(ctx context.Context) ([]models.Device, error) {
	return a.registry.List(ctx)
}

// LatestSnapshot returns the most recent throughput sample for a device,
// preferring the in-memory cache populated by the current poll cycle and
// falling back to storage when the process has not yet completed one.
func (a *API) LatestSnapshot(ctx context.Context, deviceID uuid.UUID) (*models.ThroughputSample, error) {
	if cached, ok := a.poller.LatestSample(deviceID); ok {
		return &cached, nil
	}
	return a.ts.LatestSample(ctx, deviceID)
}

// Series returns a time-range of throughput samples at the requested
// rollup resolution.
func (a *API) Series(ctx context.Context, deviceID uuid.UUID, from, to time.Time, res models.Resolution) ([]models.ThroughputSample, error) {
	return a.ts.RangeSamples(ctx, deviceID, from, to, res)
}

// ConnectedDevices returns the most recent connected-device inventory.
func (a *API) ConnectedDevices(ctx context.Context, deviceID uuid.UUID) ([]models.ConnectedDeviceSample, error) {
	return a.ts.LatestConnectedDevices(ctx, deviceID)
}

// TopApplications returns the application byte totals observed in a
// time window, used by dashboard "top talkers" views.
func (a *API) TopApplications(ctx context.Context, deviceID uuid.UUID, from, to time.Time) (map[string]int64, error) {
	return a.ts.AppBytesInWindow(ctx, deviceID, from, to)
}

// PerIPBandwidth returns the top per-IP bandwidth consumers in a window.
func (a *API) PerIPBandwidth(ctx context.Context, deviceID uuid.UUID, from, to time.Time, limit int) ([]models.PerIPResult, error) {
	return a.ts.PerIPBandwidthInWindow(ctx, deviceID, from, to, limit)
}

// AlertConfigs returns every configured alert rule.
func (a *API) AlertConfigs(ctx context.Context, deviceID *uuid.UUID) ([]models.AlertConfig, error) {
	return a.alerts.ListConfigs(ctx, deviceID, false)
}

// AlertHistory returns recent alert triggers, optionally filtered by metric.
func (a *API) AlertHistory(ctx context.Context, deviceID uuid.UUID, metric string, limit int) ([]models.AlertHistory, error) {
	return a.alerts.History(ctx, deviceID, metric, limit)
}

// ScanSchedules returns every configured active-scan schedule.
func (a *API) ScanSchedules(ctx context.Context) ([]models.ScheduledScan, error) {
	return a.scan.ListSchedules(ctx)
}

// ScanChangeEvents returns the most recent change events detected for a device.
func (a *API) ScanChangeEvents(ctx context.Context, deviceID uuid.UUID, limit int) ([]models.ScanChangeEvent, error) {
	return a.scan.ChangeEvents(ctx, deviceID, limit)
}

// SchedulerStats returns a snapshot of every registered job's run history.
func (a *API) SchedulerStats() models.SchedulerStatsSnapshot {
	return a.scheduler.Stats()
}
