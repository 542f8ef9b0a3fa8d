// Package registry manages the set of monitored devices and their
// operator-assigned metadata: CRUD, deterministic id derivation, and the
// one-shot migration that rekeys historical data onto a deterministic id
// scheme.
package registry

import (
	"context"

	"github.com/csmblade/panfm-go-rewrite/internal/config"
	"github.com/csmblade/panfm-go-rewrite/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the devices/device_metadata table pair.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Sync reconciles the devices table with the configuration snapshot:
// insert new devices, update changed fields on existing ones, and
// disable (never delete) devices removed from config so their history
// stays attributable.
func (s *Store) Sync(ctx context.Context, devices []config.DeviceConfig) error {
	seen := make(map[uuid.UUID]bool, len(devices))
	for _, d := range devices {
		id := models.DeviceID(d.Address, d.DisplayName)
		seen[id] = true
		_, err := s.pool.Exec(ctx, `
			INSERT INTO devices (id, address, display_name, enabled, monitor_iface, wan_iface, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,now(),now())
			ON CONFLICT (id) DO UPDATE SET
				address = EXCLUDED.address, display_name = EXCLUDED.display_name,
				enabled = EXCLUDED.enabled, monitor_iface = EXCLUDED.monitor_iface,
				wan_iface = EXCLUDED.wan_iface, updated_at = now()`,
			id, d.Address, d.DisplayName, d.Enabled, d.MonitorIface, d.WANIface,
		)
		if err != nil {
			return err
		}
	}

	rows, err := s.pool.Query(ctx, `SELECT id FROM devices WHERE enabled = true`)
	if err != nil {
		return err
	}
	var stale []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		if !seen[id] {
			stale = append(stale, id)
		}
	}
	rows.Close()

	for _, id := range stale {
		if _, err := s.pool.Exec(ctx, `UPDATE devices SET enabled = false, updated_at = now() WHERE id = $1`, id); err != nil {
			return err
		}
	}
	return nil
}

// List returns every device, enabled or not.
func (s *Store) List(ctx context.Context) ([]models.Device, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, address, display_name, enabled, monitor_iface, wan_iface, created_at, updated_at FROM devices ORDER BY display_name, address`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Device
	for rows.Next() {
		var d models.Device
		if err := rows.Scan(&d.ID, &d.Address, &d.DisplayName, &d.Enabled, &d.MonitorIface, &d.WANIface, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Get returns one device by id, or nil if it does not exist.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*models.Device, error) {
	row := s.pool.QueryRow(ctx, `SELECT id, address, display_name, enabled, monitor_iface, wan_iface, created_at, updated_at FROM devices WHERE id = $1`, id)
	var d models.Device
	err := row.Scan(&d.ID, &d.Address, &d.DisplayName, &d.Enabled, &d.MonitorIface, &d.WANIface, &d.CreatedAt, &d.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// UpsertMetadata writes operator-assigned metadata for a MAC seen on a
// device, keyed on the canonicalized MAC.
func (s *Store) UpsertMetadata(ctx context.Context, meta models.DeviceMetadata) error {
	mac := models.CanonicalizeMAC(meta.MAC)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO device_metadata (device_id, mac, custom_name, comment, location, tags, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,now())
		ON CONFLICT (device_id, mac) DO UPDATE SET
			custom_name = EXCLUDED.custom_name, comment = EXCLUDED.comment,
			location = EXCLUDED.location, tags = EXCLUDED.tags, updated_at = now()`,
		meta.DeviceID, mac, meta.CustomName, meta.Comment, meta.Location, meta.Tags,
	)
	return err
}

// MetadataForDevice returns every metadata row for a device, keyed by MAC.
func (s *Store) MetadataForDevice(ctx context.Context, deviceID uuid.UUID) (map[string]models.DeviceMetadata, error) {
	rows, err := s.pool.Query(ctx, `SELECT device_id, mac, custom_name, comment, location, tags, updated_at FROM device_metadata WHERE device_id = $1`, deviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]models.DeviceMetadata{}
	for rows.Next() {
		var m models.DeviceMetadata
		if err := rows.Scan(&m.DeviceID, &m.MAC, &m.CustomName, &m.Comment, &m.Location, &m.Tags, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out[m.MAC] = m
	}
	return out, rows.Err()
}

// ByTag returns devices whose metadata includes the given tag on any MAC.
func (s *Store) ByTag(ctx context.Context, tag string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT mac FROM device_metadata WHERE $1 = ANY(tags)`, tag)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var macs []string
	for rows.Next() {
		var mac string
		if err := rows.Scan(&mac); err != nil {
			return nil, err
		}
		macs = append(macs, mac)
	}
	return macs, rows.Err()
}
