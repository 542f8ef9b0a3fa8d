// Package timeseries implements the collector's time-series storage
// contract: hypertables, retention, compression, continuous aggregates,
// and idempotent inserts, backed by TimescaleDB via pgx.
package timeseries

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// hypertableSpec names a table's time column and chunk interval.
type hypertableSpec struct {
	table        string
	timeColumn   string
	chunkInterval string
}

var hypertables = []hypertableSpec{
	{"throughput_samples", "time", "1 day"},
	{"connected_devices", "time", "1 day"},
	{"log_entries", "time", "1 day"},
	{"application_samples", "time", "1 day"},
	{"alert_history", "trigger_time", "1 day"},
	{"scan_results", "time", "1 day"},
	{"scan_change_events", "time", "1 day"},
	{"scheduler_stats", "time", "1 day"},
}

type retentionSpec struct {
	table    string
	interval string
	// condition restricts which rows the retention job considers, e.g.
	// alert_history only drops resolved rows (spec §4.3/§3).
	condition string
}

var retentionPolicies = []retentionSpec{
	{"throughput_samples", "7 days", ""},
	{"connected_devices", "7 days", ""},
	{"log_entries", "7 days", ""},
	{"application_samples", "7 days", ""},
	{"alert_history", "30 days", "resolved_time IS NOT NULL"},
	{"scan_results", "30 days", ""},
	{"scan_change_events", "30 days", ""},
	{"scheduler_stats", "24 hours", ""},
}

type compressionSpec struct {
	table      string
	compressAfter string
	segmentBy  string
	orderBy    string
}

var compressionPolicies = []compressionSpec{
	{"throughput_samples", "2 days", "device_id", "time DESC"},
	{"connected_devices", "2 days", "device_id, ip", "time DESC"},
	{"log_entries", "2 days", "device_id, kind", "time DESC"},
	// TrafficLog rows live in log_entries with kind='traffic' and share its
	// (device_id, kind) segmenting; log_entries has no application column,
	// so traffic rows are not segmented by application.
}

// SchemaInstaller runs the idempotent schema bring-up: extension, tables,
// hypertable conversion, indexes, retention/compression policies, grants.
// Every step tolerates "already exists" and collects non-fatal errors
// instead of aborting, mirroring the Python schema manager this is
// grounded on (original_source/schema/manager.py).
type SchemaInstaller struct {
	pool   *pgxpool.Pool
	errors []string
}

func NewSchemaInstaller(pool *pgxpool.Pool) *SchemaInstaller {
	return &SchemaInstaller{pool: pool}
}

// EnsureSchema runs every installation step and returns the accumulated
// non-fatal errors. A non-empty return value does not necessarily mean
// the schema is unusable — callers treat it as advisory unless running
// under `init-schema`, where any error is fatal (spec §6).
func (s *SchemaInstaller) EnsureSchema(ctx context.Context) []string {
	s.errors = nil
	s.step(ctx, "extension", s.ensureExtension)
	s.step(ctx, "tables", s.createTables)
	s.step(ctx, "hypertables", s.ensureHypertables)
	s.step(ctx, "indexes", s.createIndexes)
	s.step(ctx, "retention", s.applyRetentionPolicies)
	s.step(ctx, "compression", s.applyCompressionPolicies)
	s.step(ctx, "aggregates", s.createContinuousAggregates)
	s.step(ctx, "grants", s.grantPermissions)
	return s.errors
}

func (s *SchemaInstaller) step(ctx context.Context, name string, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		msg := fmt.Sprintf("%s: %v", name, err)
		s.errors = append(s.errors, msg)
		log.Error().Str("step", name).Err(err).Msg("schema step failed, continuing")
		return
	}
	log.Info().Str("step", name).Msg("schema step complete")
}

func (s *SchemaInstaller) ensureExtension(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS timescaledb CASCADE")
	return err
}

func (s *SchemaInstaller) createTables(ctx context.Context) error {
	for _, stmt := range tableDDL {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			s.errors = append(s.errors, err.Error())
		}
	}
	return nil
}

func (s *SchemaInstaller) ensureHypertables(ctx context.Context) error {
	for _, h := range hypertables {
		q := fmt.Sprintf(
			`SELECT create_hypertable('%s', by_range('%s', INTERVAL '%s'), if_not_exists => TRUE, migrate_data => TRUE)`,
			h.table, h.timeColumn, h.chunkInterval,
		)
		if _, err := s.pool.Exec(ctx, q); err != nil {
			s.errors = append(s.errors, fmt.Sprintf("hypertable %s: %v", h.table, err))
		}
	}
	return nil
}

func (s *SchemaInstaller) createIndexes(ctx context.Context) error {
	for _, stmt := range indexDDL {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			s.errors = append(s.errors, err.Error())
		}
	}
	return nil
}

func (s *SchemaInstaller) applyRetentionPolicies(ctx context.Context) error {
	for _, r := range retentionPolicies {
		if r.condition != "" {
			// Tables with a row-level predicate (alert_history keeps
			// unresolved rows forever) cannot use a native TimescaleDB
			// drop_chunks policy, which operates on whole chunks. The
			// retention.cleanup scheduler job (internal/scheduler) runs
			// the conditional DELETE instead; nothing to install here.
			continue
		}
		q := fmt.Sprintf(`SELECT add_retention_policy('%s', INTERVAL '%s', if_not_exists => TRUE)`, r.table, r.interval)
		if _, err := s.pool.Exec(ctx, q); err != nil {
			s.errors = append(s.errors, fmt.Sprintf("retention %s: %v", r.table, err))
		}
	}
	return nil
}

func (s *SchemaInstaller) applyCompressionPolicies(ctx context.Context) error {
	for _, c := range compressionPolicies {
		alter := fmt.Sprintf(
			`ALTER TABLE %s SET (timescaledb.compress, timescaledb.compress_segmentby = '%s', timescaledb.compress_orderby = '%s')`,
			c.table, c.segmentBy, c.orderBy,
		)
		if _, err := s.pool.Exec(ctx, alter); err != nil {
			s.errors = append(s.errors, fmt.Sprintf("compress settings %s: %v", c.table, err))
		}
		policy := fmt.Sprintf(`SELECT add_compression_policy('%s', INTERVAL '%s', if_not_exists => TRUE)`, c.table, c.compressAfter)
		if _, err := s.pool.Exec(ctx, policy); err != nil {
			s.errors = append(s.errors, fmt.Sprintf("compression policy %s: %v", c.table, err))
		}
	}
	return nil
}

func (s *SchemaInstaller) createContinuousAggregates(ctx context.Context) error {
	for _, stmt := range continuousAggregateDDL {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			s.errors = append(s.errors, err.Error())
		}
	}
	return nil
}

func (s *SchemaInstaller) grantPermissions(ctx context.Context) error {
	// The collector connects as the schema owner in this deployment
	// model; grants are a no-op placeholder kept for parity with the
	// original installer's step list and for deployments that split
	// collector/reader roles.
	return nil
}
