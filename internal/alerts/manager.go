package alerts

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/csmblade/panfm-go-rewrite/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Notifier dispatches a confirmed trigger to its configured channels. It
// is implemented by internal/notify.Dispatcher; the dependency is
// inverted here so alerts never imports the transport-specific package.
type Notifier interface {
	Notify(ctx context.Context, trigger models.Trigger, history models.AlertHistory) error
}

// MetricsSource resolves the synthetic metric types a scalar snapshot
// can't carry: per-application bandwidth and per-IP threshold breaches.
// internal/timeseries.Store implements this; the dependency is inverted
// here for the same reason as Notifier.
type MetricsSource interface {
	AppBytesInWindow(ctx context.Context, deviceID uuid.UUID, from, to time.Time) (map[string]int64, error)
	PerIPBandwidthOverThreshold(ctx context.Context, deviceID uuid.UUID, from, to time.Time, thresholdBytes float64) ([]models.PerIPResult, error)
}

// synthWindow bounds how far back app_<name> and per_ip_bandwidth_5min
// resolution looks, matching the "5min" baked into the latter's name.
const synthWindow = 5 * time.Minute

// Manager evaluates alert configs against fresh metrics, applies cooldown
// and maintenance-window suppression, records history, and notifies.
// Mirrors the mutex-guarded single-instance manager pattern used
// throughout the collector's stateful components.
type Manager struct {
	store    *Store
	notifier Notifier
	metrics  MetricsSource

	mu               sync.Mutex
	maintenanceCache map[uuid.UUID][]models.MaintenanceWindow
	maintenanceAt    time.Time
}

func NewManager(store *Store, notifier Notifier, metrics MetricsSource) *Manager {
	return &Manager{store: store, notifier: notifier, metrics: metrics}
}

// EvaluateDevice checks every enabled alert config for a device against
// the supplied scalar metric snapshot (metric_type -> actual value) and
// fires any that cross their threshold and are not suppressed. Synthetic
// metric types (app_<name>, per_ip_bandwidth_5min) are never present in
// metrics; they are resolved per-config against m.metrics instead.
func (m *Manager) EvaluateDevice(ctx context.Context, deviceID uuid.UUID, metrics map[string]float64) error {
	windows, err := m.maintenanceWindows(ctx, deviceID)
	if err != nil {
		return err
	}
	if InMaintenanceWindow(windows, time.Now()) {
		log.Debug().Str("device", deviceID.String()).Msg("device in maintenance window, skipping alert evaluation")
		return nil
	}

	configs, err := m.store.ListConfigs(ctx, &deviceID, true)
	if err != nil {
		return err
	}

	for _, cfg := range configs {
		actual, perIP, ok, err := m.resolveMetric(ctx, deviceID, cfg, metrics)
		if err != nil {
			log.Warn().Err(err).Int64("config", cfg.ID).Msg("resolve alert metric failed, skipping config")
			continue
		}
		if !ok {
			continue
		}
		if !EvaluateThreshold(actual, cfg.Threshold, cfg.Operator) {
			continue
		}

		inCooldown, err := m.store.InCooldown(ctx, deviceID, cfg.ID)
		if err != nil {
			return err
		}
		if inCooldown {
			log.Debug().Int64("config", cfg.ID).Msg("alert in cooldown, skipping")
			continue
		}

		history := models.AlertHistory{
			ConfigID:     cfg.ID,
			DeviceID:     deviceID,
			Metric:       cfg.MetricType,
			Threshold:    cfg.Threshold,
			Actual:       actual,
			Severity:     cfg.Severity,
			Message:      FormatMessage(cfg.MetricType, actual, cfg.Threshold, cfg.Operator, perIP),
			TriggerTime:  time.Now(),
			PerIPResults: perIP,
		}
		id, err := m.store.RecordTrigger(ctx, history)
		if err != nil {
			return err
		}
		history.ID = id

		if err := m.store.SetCooldown(ctx, deviceID, cfg.ID, models.DefaultCooldownSeconds); err != nil {
			return err
		}

		if m.notifier != nil {
			trigger := models.Trigger{Config: cfg, ActualValue: actual, PerIPResults: perIP}
			if err := m.notifier.Notify(ctx, trigger, history); err != nil {
				log.Error().Err(err).Int64("config", cfg.ID).Msg("alert notification failed")
			}
		}
	}
	return nil
}

// resolveMetric returns cfg's actual value for deviceID. Scalar metric
// types look the value up in metrics directly; the two synthetic forms
// query m.metrics over the trailing synthWindow. ok is false when the
// metric has no value yet (e.g. a scalar absent from this tick, or an
// app_<name> config for an application that hasn't reported traffic).
func (m *Manager) resolveMetric(ctx context.Context, deviceID uuid.UUID, cfg models.AlertConfig, metrics map[string]float64) (actual float64, perIP []models.PerIPResult, ok bool, err error) {
	switch {
	case cfg.MetricType == "per_ip_bandwidth_5min":
		if m.metrics == nil {
			return 0, nil, false, nil
		}
		now := time.Now()
		thresholdBytes := cfg.Threshold * 1024 * 1024
		offenders, err := m.metrics.PerIPBandwidthOverThreshold(ctx, deviceID, now.Add(-synthWindow), now, thresholdBytes)
		if err != nil {
			return 0, nil, false, fmt.Errorf("per-ip bandwidth lookup: %w", err)
		}
		return float64(len(offenders)), offenders, true, nil

	case strings.HasPrefix(cfg.MetricType, "app_"):
		if m.metrics == nil {
			return 0, nil, false, nil
		}
		app := strings.TrimPrefix(cfg.MetricType, "app_")
		now := time.Now()
		totals, err := m.metrics.AppBytesInWindow(ctx, deviceID, now.Add(-synthWindow), now)
		if err != nil {
			return 0, nil, false, fmt.Errorf("app bytes lookup: %w", err)
		}
		bytesTotal, found := totals[app]
		if !found {
			return 0, nil, false, nil
		}
		mbps := float64(bytesTotal) * 8 / (1024 * 1024) / synthWindow.Seconds()
		return mbps, nil, true, nil

	default:
		actual, ok := metrics[cfg.MetricType]
		return actual, nil, ok, nil
	}
}

// maintenanceWindows caches per-device maintenance windows for a short
// window so a busy polling loop doesn't hammer the store on every tick.
func (m *Manager) maintenanceWindows(ctx context.Context, deviceID uuid.UUID) ([]models.MaintenanceWindow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.maintenanceCache != nil && time.Since(m.maintenanceAt) < 30*time.Second {
		if w, ok := m.maintenanceCache[deviceID]; ok {
			return w, nil
		}
	}

	windows, err := m.store.MaintenanceWindows(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if m.maintenanceCache == nil || time.Since(m.maintenanceAt) >= 30*time.Second {
		m.maintenanceCache = map[uuid.UUID][]models.MaintenanceWindow{}
		m.maintenanceAt = time.Now()
	}
	m.maintenanceCache[deviceID] = windows
	return windows, nil
}
