// Package alerts implements the threshold alerting engine: config CRUD,
// cooldown tracking, maintenance window suppression, and alert history.
package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/csmblade/panfm-go-rewrite/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists alert configs, history, cooldowns, and maintenance
// windows in Postgres/TimescaleDB.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// CreateConfig inserts a new alert config, rejecting an unknown operator
// or severity before it ever reaches the database (spec §3 allowlists).
func (s *Store) CreateConfig(ctx context.Context, cfg models.AlertConfig) (int64, error) {
	if !models.ValidOperators[cfg.Operator] {
		return 0, fmt.Errorf("invalid operator %q", cfg.Operator)
	}
	if !models.ValidSeverities[cfg.Severity] {
		return 0, fmt.Errorf("invalid severity %q", cfg.Severity)
	}
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO alert_configs (device_id, metric_type, threshold, operator, severity, enabled, channels)
		VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
		cfg.DeviceID, cfg.MetricType, cfg.Threshold, cfg.Operator, cfg.Severity, cfg.Enabled, cfg.Channels,
	).Scan(&id)
	return id, err
}

// GetConfig returns one alert config by id.
func (s *Store) GetConfig(ctx context.Context, id int64) (*models.AlertConfig, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, device_id, metric_type, threshold, operator, severity, enabled, channels, created_at, updated_at
		FROM alert_configs WHERE id = $1`, id)
	cfg, err := scanConfig(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return cfg, err
}

// ListConfigs returns alert configs, optionally filtered to one device
// and/or only-enabled rows.
func (s *Store) ListConfigs(ctx context.Context, deviceID *uuid.UUID, enabledOnly bool) ([]models.AlertConfig, error) {
	q := `SELECT id, device_id, metric_type, threshold, operator, severity, enabled, channels, created_at, updated_at FROM alert_configs WHERE 1=1`
	var args []any
	if deviceID != nil {
		args = append(args, *deviceID)
		q += fmt.Sprintf(" AND device_id = $%d", len(args))
	}
	if enabledOnly {
		q += " AND enabled = true"
	}
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.AlertConfig
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *cfg)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConfig(row rowScanner) (*models.AlertConfig, error) {
	var cfg models.AlertConfig
	if err := row.Scan(&cfg.ID, &cfg.DeviceID, &cfg.MetricType, &cfg.Threshold, &cfg.Operator,
		&cfg.Severity, &cfg.Enabled, &cfg.Channels, &cfg.CreatedAt, &cfg.UpdatedAt); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// UpdateConfig applies an explicit allowlisted partial update (spec §9):
// only fields present in the update struct are touched.
func (s *Store) UpdateConfig(ctx context.Context, id int64, upd models.AlertConfigUpdate) error {
	set := []string{"updated_at = now()"}
	var args []any
	add := func(clause string, val any) {
		args = append(args, val)
		set = append(set, fmt.Sprintf("%s = $%d", clause, len(args)))
	}
	if upd.Threshold != nil {
		add("threshold", *upd.Threshold)
	}
	if upd.Operator != nil {
		if !models.ValidOperators[*upd.Operator] {
			return fmt.Errorf("invalid operator %q", *upd.Operator)
		}
		add("operator", *upd.Operator)
	}
	if upd.Severity != nil {
		if !models.ValidSeverities[*upd.Severity] {
			return fmt.Errorf("invalid severity %q", *upd.Severity)
		}
		add("severity", *upd.Severity)
	}
	if upd.Enabled != nil {
		add("enabled", *upd.Enabled)
	}
	if upd.Channels != nil {
		add("channels", *upd.Channels)
	}
	args = append(args, id)
	q := fmt.Sprintf("UPDATE alert_configs SET %s WHERE id = $%d", joinSet(set), len(args))
	_, err := s.pool.Exec(ctx, q, args...)
	return err
}

func joinSet(parts []string) string {
	out := parts[0]
	for _, p := range parts[1:] {
		out += ", " + p
	}
	return out
}

// DeleteConfig removes an alert config and its cooldown state.
func (s *Store) DeleteConfig(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM alert_cooldowns WHERE config_id = $1`, id)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `DELETE FROM alert_configs WHERE id = $1`, id)
	return err
}

// RecordTrigger inserts a new alert_history row for a confirmed trigger.
func (s *Store) RecordTrigger(ctx context.Context, h models.AlertHistory) (int64, error) {
	perIP, err := json.Marshal(h.PerIPResults)
	if err != nil {
		return 0, err
	}
	var id int64
	err = s.pool.QueryRow(ctx, `
		INSERT INTO alert_history (config_id, device_id, metric, threshold, actual, severity, message, trigger_time, per_ip_results)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id`,
		h.ConfigID, h.DeviceID, h.Metric, h.Threshold, h.Actual, h.Severity, h.Message, h.TriggerTime, perIP,
	).Scan(&id)
	return id, err
}

// History returns recent alert_history rows for a device, most recent
// first, optionally filtered to one metric type.
func (s *Store) History(ctx context.Context, deviceID uuid.UUID, metric string, limit int) ([]models.AlertHistory, error) {
	q := `SELECT id, config_id, device_id, metric, threshold, actual, severity, message, trigger_time,
		per_ip_results, ack_by, ack_time, resolved_reason, resolved_time
		FROM alert_history WHERE device_id = $1`
	args := []any{deviceID}
	if metric != "" {
		args = append(args, metric)
		q += fmt.Sprintf(" AND metric = $%d", len(args))
	}
	q += " ORDER BY trigger_time DESC"
	if limit > 0 {
		args = append(args, limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.AlertHistory
	for rows.Next() {
		var h models.AlertHistory
		var perIP []byte
		if err := rows.Scan(&h.ID, &h.ConfigID, &h.DeviceID, &h.Metric, &h.Threshold, &h.Actual, &h.Severity,
			&h.Message, &h.TriggerTime, &perIP, &h.AckBy, &h.AckTime, &h.ResolvedReason, &h.ResolvedTime); err != nil {
			return nil, err
		}
		if len(perIP) > 0 {
			_ = json.Unmarshal(perIP, &h.PerIPResults)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// Acknowledge records who acknowledged an alert and when.
func (s *Store) Acknowledge(ctx context.Context, historyID int64, ackBy string) error {
	_, err := s.pool.Exec(ctx, `UPDATE alert_history SET ack_by = $1, ack_time = now() WHERE id = $2`, ackBy, historyID)
	return err
}

// Resolve marks an alert resolved with a reason ("cleared", "manual", ...).
func (s *Store) Resolve(ctx context.Context, historyID int64, reason string) error {
	_, err := s.pool.Exec(ctx, `UPDATE alert_history SET resolved_reason = $1, resolved_time = now() WHERE id = $2`, reason, historyID)
	return err
}

// InCooldown reports whether config triggering for device is still
// suppressed, per the (device_id, config_id) cooldown row.
func (s *Store) InCooldown(ctx context.Context, deviceID uuid.UUID, configID int64) (bool, error) {
	var until time.Time
	err := s.pool.QueryRow(ctx, `SELECT cooldown_until FROM alert_cooldowns WHERE device_id = $1 AND config_id = $2`, deviceID, configID).Scan(&until)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return time.Now().Before(until), nil
}

// SetCooldown upserts the cooldown window for a config on a device.
func (s *Store) SetCooldown(ctx context.Context, deviceID uuid.UUID, configID int64, cooldownSeconds int) error {
	now := time.Now()
	until := now.Add(time.Duration(cooldownSeconds) * time.Second)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO alert_cooldowns (device_id, config_id, last_trigger, cooldown_until)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (device_id, config_id) DO UPDATE SET last_trigger = EXCLUDED.last_trigger, cooldown_until = EXCLUDED.cooldown_until`,
		deviceID, configID, now, until)
	return err
}

// DeleteExpiredCooldowns removes every cooldown row whose window has
// already passed, run by the alerts.cooldown_gc job so the table stays
// bounded by active configs rather than growing with every past trigger.
func (s *Store) DeleteExpiredCooldowns(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM alert_cooldowns WHERE cooldown_until < now()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DeleteExpiredResolvedHistory prunes alert_history rows that were
// resolved more than 30 days ago. Unresolved rows are never touched
// regardless of age, per the retention rule a native drop_chunks policy
// can't express (see internal/timeseries.SchemaInstaller.applyRetentionPolicies).
func (s *Store) DeleteExpiredResolvedHistory(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM alert_history
		WHERE resolved_time IS NOT NULL AND resolved_time < now() - interval '30 days'`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// MaintenanceWindows returns the enabled windows applicable to a device:
// global windows (DeviceID nil) plus device-specific ones.
func (s *Store) MaintenanceWindows(ctx context.Context, deviceID uuid.UUID) ([]models.MaintenanceWindow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, device_id, start_time, end_time, recurrence, enabled
		FROM maintenance_windows WHERE enabled = true AND (device_id IS NULL OR device_id = $1)`, deviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.MaintenanceWindow
	for rows.Next() {
		var w models.MaintenanceWindow
		var devID *uuid.UUID
		if err := rows.Scan(&w.ID, &devID, &w.Start, &w.End, &w.Recurrence, &w.Enabled); err != nil {
			return nil, err
		}
		w.DeviceID = devID
		out = append(out, w)
	}
	return out, rows.Err()
}
