package timeseries

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

// Store wraps a pgxpool.Pool with the typed read/write operations the
// collector and read API need. Throughput samples are upserted on
// (device_id, time), so a retried poll never duplicates them; the other
// inserts (connected devices, logs, applications, scheduler stats) are
// plain inserts with no conflict handling.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// InsertSample upserts one throughput sample, keyed on (device_id, time).
// A retried poll for the same tick overwrites rather than duplicates.
func (s *Store) InsertSample(ctx context.Context, sample models.ThroughputSample) error {
	threatLastSeen, err := json.Marshal(sample.ThreatLastSeen)
	if err != nil {
		return fmt.Errorf("marshal threat_last_seen: %w", err)
	}
	topClientInternal, err := json.Marshal(sample.TopClientInternal)
	if err != nil {
		return fmt.Errorf("marshal top_client_internal: %w", err)
	}
	topClientInternet, err := json.Marshal(sample.TopClientInternet)
	if err != nil {
		return fmt.Errorf("marshal top_client_internet: %w", err)
	}
	topCategoryInternal, err := json.Marshal(sample.TopCategoryInternal)
	if err != nil {
		return fmt.Errorf("marshal top_category_internal: %w", err)
	}
	topCategoryInternet, err := json.Marshal(sample.TopCategoryInternet)
	if err != nil {
		return fmt.Errorf("marshal top_category_internet: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO throughput_samples (
			device_id, time, bytes_in, bytes_out, packets_in, packets_out,
			inbound_mbps, outbound_mbps, total_mbps, inbound_pps, outbound_pps, total_pps,
			sessions_active, sessions_tcp, sessions_udp, sessions_icmp, sessions_max,
			cpu_data_plane, cpu_mgmt_plane, memory_pct, uptime_seconds,
			threats_critical, threats_high, threats_medium, blocked_urls, threat_last_seen,
			iface_errors, iface_drops, license_expired, license_valid,
			wan_address, wan_link_mbps, hostname, panos_version,
			top_applications, interface_stats,
			top_client_internal, top_client_internet, top_category_internal, top_category_internet
		) VALUES (
			$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,
			$22,$23,$24,$25,$26,$27,$28,$29,$30,$31,$32,$33,$34,$35,$36,$37,$38,$39,$40
		)
		ON CONFLICT (device_id, time) DO UPDATE SET
			bytes_in = EXCLUDED.bytes_in, bytes_out = EXCLUDED.bytes_out,
			packets_in = EXCLUDED.packets_in, packets_out = EXCLUDED.packets_out,
			inbound_mbps = EXCLUDED.inbound_mbps, outbound_mbps = EXCLUDED.outbound_mbps,
			total_mbps = EXCLUDED.total_mbps, sessions_active = EXCLUDED.sessions_active
	`,
		sample.DeviceID, sample.Time, sample.BytesIn, sample.BytesOut, sample.PacketsIn, sample.PacketsOut,
		sample.InboundMbps, sample.OutboundMbps, sample.TotalMbps, sample.InboundPPS, sample.OutboundPPS, sample.TotalPPS,
		sample.SessionsActive, sample.SessionsTCP, sample.SessionsUDP, sample.SessionsICMP, sample.SessionsMax,
		sample.CPUDataPlane, sample.CPUMgmtPlane, sample.MemoryPct, sample.UptimeSec,
		sample.ThreatsCritical, sample.ThreatsHigh, sample.ThreatsMedium, sample.BlockedURLs, threatLastSeen,
		sample.IfaceErrors, sample.IfaceDrops, sample.LicenseExpired, sample.LicenseValid,
		sample.WANAddress, sample.WANLinkMbps, sample.Hostname, sample.PANOSVersion,
		sample.TopApplications, sample.InterfaceStats,
		topClientInternal, topClientInternet, topCategoryInternal, topCategoryInternet,
	)
	return err
}

// LatestSample returns the most recent sample for a device.
func (s *Store) LatestSample(ctx context.Context, deviceID uuid.UUID) (*models.ThroughputSample, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT device_id, time, bytes_in, bytes_out, inbound_mbps, outbound_mbps, total_mbps,
			sessions_active, cpu_data_plane, cpu_mgmt_plane, memory_pct, hostname, panos_version
		FROM throughput_samples WHERE device_id = $1 ORDER BY time DESC LIMIT 1`, deviceID)

	var sample models.ThroughputSample
	err := row.Scan(&sample.DeviceID, &sample.Time, &sample.BytesIn, &sample.BytesOut,
		&sample.InboundMbps, &sample.OutboundMbps, &sample.TotalMbps, &sample.SessionsActive,
		&sample.CPUDataPlane, &sample.CPUMgmtPlane, &sample.MemoryPct, &sample.Hostname, &sample.PANOSVersion)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sample, nil
}

// RangeSamples returns samples for a device within [from, to), at the
// given resolution. Hourly/daily resolutions read the continuous
// aggregates instead of the raw hypertable.
func (s *Store) RangeSamples(ctx context.Context, deviceID uuid.UUID, from, to time.Time, res models.Resolution) ([]models.ThroughputSample, error) {
	table := "throughput_samples"
	timeCol := "time"
	switch res {
	case models.ResolutionHourly:
		table, timeCol = "throughput_samples_hourly", "bucket"
	case models.ResolutionDaily:
		table, timeCol = "throughput_samples_daily", "bucket"
	}

	q := fmt.Sprintf(`
		SELECT device_id, %s, inbound_mbps, outbound_mbps, total_mbps, sessions_active, cpu_data_plane, cpu_mgmt_plane, memory_pct
		FROM %s WHERE device_id = $1 AND %s >= $2 AND %s < $3 ORDER BY %s ASC`, timeCol, table, timeCol, timeCol, timeCol)

	rows, err := s.pool.Query(ctx, q, deviceID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ThroughputSample
	for rows.Next() {
		var sample models.ThroughputSample
		if err := rows.Scan(&sample.DeviceID, &sample.Time, &sample.InboundMbps, &sample.OutboundMbps,
			&sample.TotalMbps, &sample.SessionsActive, &sample.CPUDataPlane, &sample.CPUMgmtPlane, &sample.MemoryPct); err != nil {
			return nil, err
		}
		out = append(out, sample)
	}
	return out, rows.Err()
}

// InsertConnectedDevices bulk-inserts one poll tick's worth of connected
// device rows, queued as one pgx.Batch of INSERT statements.
func (s *Store) InsertConnectedDevices(ctx context.Context, rows []models.ConnectedDeviceSample) error {
	if len(rows) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO connected_devices (
				device_id, time, mac, ip, hostname, vlan, iface, zone, vendor,
				virtual, virtual_reason, randomized, randomized_os,
				custom_name, comment, location, tags
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
			r.DeviceID, r.Time, r.MAC, r.IP, r.Hostname, r.VLAN, r.Iface, r.Zone, r.Vendor,
			r.Virtual, r.VirtualReason, r.Randomized, r.RandomizedOS,
			r.CustomName, r.Comment, r.Location, r.Tags,
		)
	}
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range rows {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LatestConnectedDevices returns the most recent connected-device row per
// MAC address for a device, i.e. the current view of its LAN.
func (s *Store) LatestConnectedDevices(ctx context.Context, deviceID uuid.UUID) ([]models.ConnectedDeviceSample, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT ON (mac) device_id, time, mac, ip, hostname, vlan, iface, zone, vendor,
			virtual, virtual_reason, randomized, randomized_os, custom_name, comment, location, tags
		FROM connected_devices WHERE device_id = $1 ORDER BY mac, time DESC`, deviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ConnectedDeviceSample
	for rows.Next() {
		var c models.ConnectedDeviceSample
		if err := rows.Scan(&c.DeviceID, &c.Time, &c.MAC, &c.IP, &c.Hostname, &c.VLAN, &c.Iface, &c.Zone, &c.Vendor,
			&c.Virtual, &c.VirtualReason, &c.Randomized, &c.RandomizedOS, &c.CustomName, &c.Comment, &c.Location, &c.Tags); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// InsertLogs writes log entries, truncating per (device, kind) to the
// most recent MaxLogRowsPerDeviceKind rows so the table never grows
// unbounded between retention sweeps.
func (s *Store) InsertLogs(ctx context.Context, entries []models.LogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	seen := map[models.LogKind]uuid.UUID{}
	for _, e := range entries {
		batch.Queue(`INSERT INTO log_entries (device_id, kind, time, severity, source, dest, detail) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			e.DeviceID, e.Kind, e.Time, e.Severity, e.Source, e.Dest, e.Detail)
		seen[e.Kind] = e.DeviceID
	}
	br := s.pool.SendBatch(ctx, batch)
	for range entries {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return err
		}
	}
	if err := br.Close(); err != nil {
		return err
	}

	for kind, deviceID := range seen {
		if _, err := s.pool.Exec(ctx, `
			DELETE FROM log_entries WHERE device_id = $1 AND kind = $2 AND time <= (
				SELECT time FROM log_entries WHERE device_id = $1 AND kind = $2
				ORDER BY time DESC OFFSET $3 LIMIT 1
			)`, deviceID, kind, models.MaxLogRowsPerDeviceKind); err != nil {
			return fmt.Errorf("trim log_entries %s/%s: %w", deviceID, kind, err)
		}
	}
	return nil
}

// InsertApplications records one poll tick's per-application traffic
// breakdown, capping the endpoint lists at MaxApplicationEndpoints.
func (s *Store) InsertApplications(ctx context.Context, samples []models.ApplicationSample) error {
	if len(samples) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, a := range samples {
		batch.Queue(`
			INSERT INTO application_samples (
				device_id, time, application, bytes_total, bytes_sent, bytes_received,
				sessions, source_ips, dest_ips, protocols, ports, vlans, zones
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
			a.DeviceID, a.Time, a.Application, a.BytesTotal, a.BytesSent, a.BytesRecv,
			a.Sessions, capStrings(a.SourceIPs), capStrings(a.DestIPs), a.Protocols, a.Ports, a.VLANs, a.Zones,
		)
	}
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range samples {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func capStrings(v []string) []string {
	if len(v) > models.MaxApplicationEndpoints {
		return v[:models.MaxApplicationEndpoints]
	}
	return v
}

// AppBytesInWindow sums bytes_total per application over [from, to),
// used to derive top-application breakdowns.
func (s *Store) AppBytesInWindow(ctx context.Context, deviceID uuid.UUID, from, to time.Time) (map[string]int64, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT application, SUM(bytes_total) FROM application_samples
		WHERE device_id = $1 AND time >= $2 AND time < $3 GROUP BY application`, deviceID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int64{}
	for rows.Next() {
		var app string
		var total int64
		if err := rows.Scan(&app, &total); err != nil {
			return nil, err
		}
		out[app] = total
	}
	return out, rows.Err()
}

// PerIPBandwidthInWindow returns the top bandwidth consumers by source IP
// over [from, to), computed from the application samples' per-endpoint
// IP lists rather than a dedicated flow store. Results are not split by
// internal/internet destination.
func (s *Store) PerIPBandwidthInWindow(ctx context.Context, deviceID uuid.UUID, from, to time.Time, limit int) ([]models.PerIPResult, error) {
	totals, err := s.perIPTotals(ctx, deviceID, from, to)
	if err != nil {
		return nil, err
	}

	results := make([]models.PerIPResult, 0, len(totals))
	for ip, total := range totals {
		results = append(results, models.PerIPResult{IP: ip, TotalBytesMB: float64(total) / (1024 * 1024)})
	}
	sortPerIPDesc(results)
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// PerIPBandwidthOverThreshold returns every source IP whose total bytes
// in [from, to) exceed thresholdBytes, used to resolve a
// per_ip_bandwidth_5min alert config's actual value (the count of
// offending IPs). Hostnames are best-effort, taken from the most recent
// connected_devices row for each IP; an IP with no such row is reported
// without one.
func (s *Store) PerIPBandwidthOverThreshold(ctx context.Context, deviceID uuid.UUID, from, to time.Time, thresholdBytes float64) ([]models.PerIPResult, error) {
	totals, err := s.perIPTotals(ctx, deviceID, from, to)
	if err != nil {
		return nil, err
	}

	var ips []string
	for ip, total := range totals {
		if float64(total) > thresholdBytes {
			ips = append(ips, ip)
		}
	}
	if len(ips) == 0 {
		return nil, nil
	}

	hostnames, err := s.hostnamesForIPs(ctx, deviceID, ips)
	if err != nil {
		return nil, err
	}

	results := make([]models.PerIPResult, 0, len(ips))
	for _, ip := range ips {
		results = append(results, models.PerIPResult{
			IP:           ip,
			Hostname:     hostnames[ip],
			Direction:    "downloaded",
			TotalBytesMB: float64(totals[ip]) / (1024 * 1024),
		})
	}
	sortPerIPDesc(results)
	return results, nil
}

// perIPTotals computes the per-source-IP byte share of every application
// sample in [from, to), dividing each sample's bytes_total evenly across
// its observed source IPs (there's no per-flow breakdown in the
// application-sample store to attribute bytes more precisely).
func (s *Store) perIPTotals(ctx context.Context, deviceID uuid.UUID, from, to time.Time) (map[string]int64, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT source_ips, bytes_total FROM application_samples
		WHERE device_id = $1 AND time >= $2 AND time < $3`, deviceID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := map[string]int64{}
	for rows.Next() {
		var ips []string
		var bytesTotal int64
		if err := rows.Scan(&ips, &bytesTotal); err != nil {
			return nil, err
		}
		if len(ips) == 0 {
			continue
		}
		share := bytesTotal / int64(len(ips))
		for _, ip := range ips {
			totals[ip] += share
		}
	}
	return totals, rows.Err()
}

func (s *Store) hostnamesForIPs(ctx context.Context, deviceID uuid.UUID, ips []string) (map[string]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT ON (ip) ip, hostname FROM connected_devices
		WHERE device_id = $1 AND ip = ANY($2) ORDER BY ip, time DESC`, deviceID, ips)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var ip, hostname string
		if err := rows.Scan(&ip, &hostname); err != nil {
			return nil, err
		}
		out[ip] = hostname
	}
	return out, rows.Err()
}

func sortPerIPDesc(results []models.PerIPResult) {
	for i := 1; i < len(results); i++ {
		for j := i; j > 0 && results[j].TotalBytesMB > results[j-1].TotalBytesMB; j-- {
			results[j], results[j-1] = results[j-1], results[j]
		}
	}
}

// InsertSchedulerStats persists one scheduler.self_report tick so
// scheduler uptime and job health survive a process restart.
func (s *Store) InsertSchedulerStats(ctx context.Context, snap models.SchedulerStatsSnapshot) error {
	jobs, err := json.Marshal(snap.Jobs)
	if err != nil {
		return fmt.Errorf("marshal jobs: %w", err)
	}
	recent, err := json.Marshal(snap.RecentExecutions)
	if err != nil {
		return fmt.Errorf("marshal recent executions: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO scheduler_stats (time, state, total_executions, total_errors, uptime_seconds, jobs, recent_executions)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		snap.Time, snap.State, snap.TotalExecutions, snap.TotalErrors, snap.UptimeSeconds, jobs, recent,
	)
	return err
}

// TopCategoryByBytes returns the application with the largest byte total
// over the window, used to populate TopCategoryInternal/Internet.
func (s *Store) TopCategoryByBytes(ctx context.Context, deviceID uuid.UUID, from, to time.Time) (models.TopCategory, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT application, SUM(bytes_total) AS total FROM application_samples
		WHERE device_id = $1 AND time >= $2 AND time < $3
		GROUP BY application ORDER BY total DESC LIMIT 1`, deviceID, from, to)

	var cat models.TopCategory
	var bytesTotal int64
	if err := row.Scan(&cat.Category, &bytesTotal); err != nil {
		if err == pgx.ErrNoRows {
			return models.TopCategory{}, nil
		}
		return models.TopCategory{}, err
	}
	cat.Bytes = bytesTotal
	return cat, nil
}
