package scan

import (
	"context"
	"encoding/json"
	"time"

	"github.com/csmblade/panfm-go-rewrite/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists scan schedules, results, change events, and queue items.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// SaveResult inserts a scan result and returns its id.
func (s *Store) SaveResult(ctx context.Context, r models.ScanResult) (int64, error) {
	ports, err := json.Marshal(r.Ports)
	if err != nil {
		return 0, err
	}
	osMatches, err := json.Marshal(r.OSMatches)
	if err != nil {
		return 0, err
	}
	var id int64
	err = s.pool.QueryRow(ctx, `
		INSERT INTO scan_results (device_id, target_ip, time, profile, duration_ms, host_status, os_name, os_matches, ports, raw_output)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING id`,
		r.DeviceID, r.TargetIP, r.Time, r.Profile, r.Duration.Milliseconds(), r.HostStatus, r.OSName, osMatches, ports, r.RawOutput,
	).Scan(&id)
	return id, err
}

// PreviousResult returns the most recent scan result for (device, target)
// prior to before, used as the comparison baseline for change detection.
func (s *Store) PreviousResult(ctx context.Context, deviceID uuid.UUID, targetIP string, before time.Time) (*models.ScanResult, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT device_id, target_ip, time, profile, duration_ms, host_status, os_name, os_matches, ports
		FROM scan_results WHERE device_id = $1 AND target_ip = $2 AND time < $3
		ORDER BY time DESC LIMIT 1`, deviceID, targetIP, before)

	var r models.ScanResult
	var durationMS int64
	var osMatches, ports []byte
	err := row.Scan(&r.DeviceID, &r.TargetIP, &r.Time, &r.Profile, &durationMS, &r.HostStatus, &r.OSName, &osMatches, &ports)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.Duration = time.Duration(durationMS) * time.Millisecond
	_ = json.Unmarshal(osMatches, &r.OSMatches)
	_ = json.Unmarshal(ports, &r.Ports)
	return &r, nil
}

// RecordChangeEvents inserts detected change events.
func (s *Store) RecordChangeEvents(ctx context.Context, events []models.ScanChangeEvent) error {
	for _, e := range events {
		detail, err := json.Marshal(e.Detail)
		if err != nil {
			return err
		}
		if _, err := s.pool.Exec(ctx, `
			INSERT INTO scan_change_events (device_id, target_ip, time, kind, severity, old_value, new_value, detail)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			e.DeviceID, e.TargetIP, e.Time, e.Kind, e.Severity, e.OldValue, e.NewValue, detail,
		); err != nil {
			return err
		}
	}
	return nil
}

// ChangeEvents returns a device's most recent change events, newest
// first, acknowledged or not.
func (s *Store) ChangeEvents(ctx context.Context, deviceID uuid.UUID, limit int) ([]models.ScanChangeEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, device_id, target_ip, time, kind, severity, old_value, new_value, detail, ack_by, ack_time
		FROM scan_change_events WHERE device_id = $1 ORDER BY time DESC LIMIT $2`, deviceID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ScanChangeEvent
	for rows.Next() {
		var e models.ScanChangeEvent
		var detail []byte
		if err := rows.Scan(&e.ID, &e.DeviceID, &e.TargetIP, &e.Time, &e.Kind, &e.Severity, &e.OldValue, &e.NewValue, &detail, &e.AckBy, &e.AckTime); err != nil {
			return nil, err
		}
		if len(detail) > 0 {
			_ = json.Unmarshal(detail, &e.Detail)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListSchedules returns every enabled scheduled scan.
func (s *Store) ListSchedules(ctx context.Context) ([]models.ScheduledScan, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, device_id, target_type, target_value, profile, trigger_kind, trigger_interval_sec,
			trigger_daily_at, trigger_weekly_dow, trigger_weekly_at, trigger_cron, enabled, last_run_at, last_status, last_error, next_run_at
		FROM scheduled_scans WHERE enabled = true`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ScheduledScan
	for rows.Next() {
		var sc models.ScheduledScan
		var weeklyDOW *int
		var targetValue, dailyAt, weeklyAt, cronExpr, lastStatus, lastError *string
		if err := rows.Scan(&sc.ID, &sc.DeviceID, &sc.Target.Type, &targetValue, &sc.Profile, &sc.Trigger.Kind,
			&sc.Trigger.IntervalSec, &dailyAt, &weeklyDOW, &weeklyAt, &cronExpr,
			&sc.Enabled, &sc.LastRunAt, &lastStatus, &lastError, &sc.NextRunAt); err != nil {
			return nil, err
		}
		sc.Target.Value = deref(targetValue)
		sc.Trigger.DailyAt = deref(dailyAt)
		sc.Trigger.WeeklyAt = deref(weeklyAt)
		sc.Trigger.CronExpression = deref(cronExpr)
		sc.LastStatus = deref(lastStatus)
		sc.LastError = deref(lastError)
		if weeklyDOW != nil {
			sc.Trigger.WeeklyDOW = time.Weekday(*weeklyDOW)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// MarkScheduleRun records the outcome of a schedule's most recent run.
func (s *Store) MarkScheduleRun(ctx context.Context, id int64, status, errMsg string) error {
	_, err := s.pool.Exec(ctx, `UPDATE scheduled_scans SET last_run_at = now(), last_status = $1, last_error = $2 WHERE id = $3`, status, errMsg, id)
	return err
}

// Enqueue adds a unit of scan work to the queue.
func (s *Store) Enqueue(ctx context.Context, item models.ScanQueueItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO scan_queue_items (id, schedule_id, device_id, target_ip, profile, status, queued_at)
		VALUES ($1,$2,$3,$4,$5,$6,now())`,
		item.ID, item.ScheduleID, item.DeviceID, item.TargetIP, item.Profile, models.QueueQueued,
	)
	return err
}

// ClaimNext atomically claims the oldest queued item for processing,
// returning nil if the queue is empty.
func (s *Store) ClaimNext(ctx context.Context) (*models.ScanQueueItem, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE scan_queue_items SET status = $1, started_at = now()
		WHERE id = (
			SELECT id FROM scan_queue_items WHERE status = $2 ORDER BY queued_at ASC LIMIT 1 FOR UPDATE SKIP LOCKED
		)
		RETURNING id, schedule_id, device_id, target_ip, profile, status, queued_at, started_at`,
		models.QueueRunning, models.QueueQueued)

	var item models.ScanQueueItem
	err := row.Scan(&item.ID, &item.ScheduleID, &item.DeviceID, &item.TargetIP, &item.Profile, &item.Status, &item.QueuedAt, &item.StartedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Complete marks a queue item finished, recording its result id or error.
func (s *Store) Complete(ctx context.Context, id uuid.UUID, resultID int64, scanErr string) error {
	status := models.QueueCompleted
	if scanErr != "" {
		status = models.QueueFailed
	}
	_, err := s.pool.Exec(ctx, `UPDATE scan_queue_items SET status = $1, completed_at = now(), result_id = $2, error = $3 WHERE id = $4`,
		status, resultID, scanErr, id)
	return err
}
