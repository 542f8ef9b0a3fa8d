package registry

import (
	"context"
	"fmt"

	"github.com/csmblade/panfm-go-rewrite/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// migratedTables lists every table carrying a device_id foreign key, in
// the order they are rewritten. The devices table's own primary key is
// rewritten separately first, since its id column is named "id" rather
// than "device_id".
var migratedTables = []string{
	"throughput_samples",
	"connected_devices",
	"log_entries",
	"application_samples",
	"alert_configs",
	"alert_history",
	"alert_cooldowns",
	"scan_results",
	"scan_change_events",
	"scan_queue_items",
	"scheduled_scans",
	"maintenance_windows",
}

// IDMapping maps an old device id to its newly derived deterministic id.
type IDMapping struct {
	OldID uuid.UUID
	NewID uuid.UUID
}

// MigrateDeviceIDs rewrites every device_id foreign key from a legacy,
// randomly assigned id to the deterministic id derived from the device's
// address and display name. It is a one-shot, all-or-nothing operation
// invoked via the migrate-device-ids CLI command, not run automatically
// at startup: the rewrite and its verification run in one transaction
// that is rolled back on any failure. No backup is written beforehand.
func MigrateDeviceIDs(ctx context.Context, pool *pgxpool.Pool) error {
	mappings, err := computeMappings(ctx, pool)
	if err != nil {
		return fmt.Errorf("compute id mappings: %w", err)
	}
	if len(mappings) == 0 {
		log.Info().Msg("no device ids require migration")
		return nil
	}

	log.Info().Int("devices", len(mappings)).Msg("starting device id migration")

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin migration transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var totalUpdated int64
	for _, m := range mappings {
		if _, err := tx.Exec(ctx, `UPDATE devices SET id = $1 WHERE id = $2`, m.NewID, m.OldID); err != nil {
			return fmt.Errorf("migrate devices primary key: %w", err)
		}
	}

	for _, table := range migratedTables {
		for _, m := range mappings {
			tag, err := tx.Exec(ctx, fmt.Sprintf(`UPDATE %s SET device_id = $1 WHERE device_id = $2`, table), m.NewID, m.OldID)
			if err != nil {
				return fmt.Errorf("migrate table %s: %w", table, err)
			}
			if n := tag.RowsAffected(); n > 0 {
				totalUpdated += n
				log.Info().Str("table", table).Int64("rows", n).
					Str("old_id", m.OldID.String()[:8]).Str("new_id", m.NewID.String()[:8]).
					Msg("migrated device id references")
			}
		}
	}

	if err := verifyNoLegacyIDs(ctx, tx, mappings); err != nil {
		return fmt.Errorf("migration verification failed, rolling back: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}

	log.Info().Int64("rows_updated", totalUpdated).Msg("device id migration complete")
	return nil
}

// computeMappings derives the deterministic id for every distinct device
// row whose current id does not already match it.
func computeMappings(ctx context.Context, pool *pgxpool.Pool) ([]IDMapping, error) {
	rows, err := pool.Query(ctx, `SELECT id, address, display_name FROM devices`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mappings []IDMapping
	for rows.Next() {
		var id uuid.UUID
		var address, displayName string
		if err := rows.Scan(&id, &address, &displayName); err != nil {
			return nil, err
		}
		want := models.DeviceID(address, displayName)
		if want != id {
			mappings = append(mappings, IDMapping{OldID: id, NewID: want})
		}
	}
	return mappings, rows.Err()
}

// verifyNoLegacyIDs confirms every migrated table (including devices
// itself) no longer references any old id, within the same transaction
// that performed the rewrite.
func verifyNoLegacyIDs(ctx context.Context, tx pgx.Tx, mappings []IDMapping) error {
	oldIDs := make([]uuid.UUID, len(mappings))
	for i, m := range mappings {
		oldIDs[i] = m.OldID
	}

	var deviceCount int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM devices WHERE id = ANY($1)`, oldIDs).Scan(&deviceCount); err != nil {
		return err
	}
	if deviceCount > 0 {
		return fmt.Errorf("devices still has %d rows with a legacy id", deviceCount)
	}

	for _, table := range migratedTables {
		var count int
		if err := tx.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE device_id = ANY($1)`, table), oldIDs).Scan(&count); err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("table %s still has %d rows with a legacy device id", table, count)
		}
	}
	return nil
}
