package timeseries

// tableDDL creates every table the collector owns. Each statement uses
// IF NOT EXISTS so re-running the installer is safe.
var tableDDL = []string{
	`CREATE TABLE IF NOT EXISTS devices (
		id UUID PRIMARY KEY,
		address TEXT NOT NULL,
		display_name TEXT NOT NULL DEFAULT '',
		enabled BOOLEAN NOT NULL DEFAULT TRUE,
		monitor_iface TEXT NOT NULL DEFAULT '',
		wan_iface TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS device_metadata (
		device_id UUID NOT NULL REFERENCES devices(id),
		mac TEXT NOT NULL,
		custom_name TEXT NOT NULL DEFAULT '',
		comment TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		tags TEXT[] NOT NULL DEFAULT '{}',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (device_id, mac)
	)`,
	`CREATE TABLE IF NOT EXISTS throughput_samples (
		device_id UUID NOT NULL,
		time TIMESTAMPTZ NOT NULL,
		bytes_in BIGINT NOT NULL DEFAULT 0,
		bytes_out BIGINT NOT NULL DEFAULT 0,
		packets_in BIGINT NOT NULL DEFAULT 0,
		packets_out BIGINT NOT NULL DEFAULT 0,
		inbound_mbps DOUBLE PRECISION NOT NULL DEFAULT 0,
		outbound_mbps DOUBLE PRECISION NOT NULL DEFAULT 0,
		total_mbps DOUBLE PRECISION NOT NULL DEFAULT 0,
		inbound_pps DOUBLE PRECISION NOT NULL DEFAULT 0,
		outbound_pps DOUBLE PRECISION NOT NULL DEFAULT 0,
		total_pps DOUBLE PRECISION NOT NULL DEFAULT 0,
		sessions_active INT NOT NULL DEFAULT 0,
		sessions_tcp INT NOT NULL DEFAULT 0,
		sessions_udp INT NOT NULL DEFAULT 0,
		sessions_icmp INT NOT NULL DEFAULT 0,
		sessions_max INT NOT NULL DEFAULT 0,
		cpu_data_plane DOUBLE PRECISION NOT NULL DEFAULT 0,
		cpu_mgmt_plane DOUBLE PRECISION NOT NULL DEFAULT 0,
		memory_pct DOUBLE PRECISION NOT NULL DEFAULT 0,
		uptime_seconds BIGINT NOT NULL DEFAULT 0,
		threats_critical INT NOT NULL DEFAULT 0,
		threats_high INT NOT NULL DEFAULT 0,
		threats_medium INT NOT NULL DEFAULT 0,
		blocked_urls INT NOT NULL DEFAULT 0,
		threat_last_seen JSONB,
		iface_errors BIGINT NOT NULL DEFAULT 0,
		iface_drops BIGINT NOT NULL DEFAULT 0,
		license_expired INT NOT NULL DEFAULT 0,
		license_valid INT NOT NULL DEFAULT 0,
		wan_address TEXT,
		wan_link_mbps INT,
		hostname TEXT,
		panos_version TEXT,
		top_applications JSONB,
		interface_stats JSONB,
		top_client_internal JSONB,
		top_client_internet JSONB,
		top_category_internal JSONB,
		top_category_internet JSONB,
		PRIMARY KEY (device_id, time)
	)`,
	`CREATE TABLE IF NOT EXISTS connected_devices (
		device_id UUID NOT NULL,
		time TIMESTAMPTZ NOT NULL,
		mac TEXT NOT NULL,
		ip TEXT NOT NULL,
		hostname TEXT,
		vlan INT,
		iface TEXT,
		zone TEXT,
		vendor TEXT,
		virtual BOOLEAN NOT NULL DEFAULT FALSE,
		virtual_reason TEXT,
		randomized BOOLEAN NOT NULL DEFAULT FALSE,
		randomized_os TEXT,
		custom_name TEXT,
		comment TEXT,
		location TEXT,
		tags TEXT[]
	)`,
	`CREATE TABLE IF NOT EXISTS log_entries (
		device_id UUID NOT NULL,
		kind TEXT NOT NULL,
		time TIMESTAMPTZ NOT NULL,
		severity TEXT,
		source TEXT,
		dest TEXT,
		detail TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS application_samples (
		device_id UUID NOT NULL,
		time TIMESTAMPTZ NOT NULL,
		application TEXT NOT NULL,
		bytes_total BIGINT NOT NULL DEFAULT 0,
		bytes_sent BIGINT NOT NULL DEFAULT 0,
		bytes_received BIGINT NOT NULL DEFAULT 0,
		sessions INT NOT NULL DEFAULT 0,
		source_ips TEXT[],
		dest_ips TEXT[],
		protocols TEXT[],
		ports INT[],
		vlans INT[],
		zones TEXT[]
	)`,
	`CREATE TABLE IF NOT EXISTS alert_configs (
		id BIGSERIAL PRIMARY KEY,
		device_id UUID NOT NULL,
		metric_type TEXT NOT NULL,
		threshold DOUBLE PRECISION NOT NULL,
		operator TEXT NOT NULL,
		severity TEXT NOT NULL,
		enabled BOOLEAN NOT NULL DEFAULT TRUE,
		channels TEXT[] NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS alert_history (
		id BIGSERIAL PRIMARY KEY,
		config_id BIGINT NOT NULL,
		device_id UUID NOT NULL,
		metric TEXT NOT NULL,
		threshold DOUBLE PRECISION NOT NULL,
		actual DOUBLE PRECISION NOT NULL,
		severity TEXT NOT NULL,
		message TEXT NOT NULL,
		trigger_time TIMESTAMPTZ NOT NULL,
		per_ip_results JSONB,
		ack_by TEXT,
		ack_time TIMESTAMPTZ,
		resolved_reason TEXT,
		resolved_time TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS alert_cooldowns (
		device_id UUID NOT NULL,
		config_id BIGINT NOT NULL,
		last_trigger TIMESTAMPTZ NOT NULL,
		cooldown_until TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (device_id, config_id)
	)`,
	`CREATE TABLE IF NOT EXISTS maintenance_windows (
		id BIGSERIAL PRIMARY KEY,
		device_id UUID,
		start_time TIMESTAMPTZ NOT NULL,
		end_time TIMESTAMPTZ NOT NULL,
		recurrence TEXT NOT NULL,
		enabled BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS scheduled_scans (
		id BIGSERIAL PRIMARY KEY,
		device_id UUID NOT NULL,
		target_type TEXT NOT NULL,
		target_value TEXT,
		profile TEXT NOT NULL,
		trigger_kind TEXT NOT NULL,
		trigger_interval_sec INT,
		trigger_daily_at TEXT,
		trigger_weekly_dow INT,
		trigger_weekly_at TEXT,
		trigger_cron TEXT,
		enabled BOOLEAN NOT NULL DEFAULT TRUE,
		last_run_at TIMESTAMPTZ,
		last_status TEXT,
		last_error TEXT,
		next_run_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS scan_results (
		id BIGSERIAL PRIMARY KEY,
		device_id UUID NOT NULL,
		target_ip TEXT NOT NULL,
		time TIMESTAMPTZ NOT NULL,
		profile TEXT NOT NULL,
		duration_ms BIGINT NOT NULL,
		host_status TEXT NOT NULL,
		os_name TEXT,
		os_matches JSONB,
		ports JSONB NOT NULL,
		raw_output TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS scan_change_events (
		id BIGSERIAL PRIMARY KEY,
		device_id UUID NOT NULL,
		target_ip TEXT NOT NULL,
		time TIMESTAMPTZ NOT NULL,
		kind TEXT NOT NULL,
		severity TEXT NOT NULL,
		old_value TEXT,
		new_value TEXT,
		detail JSONB,
		ack_by TEXT,
		ack_time TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS scan_queue_items (
		id UUID PRIMARY KEY,
		schedule_id BIGINT NOT NULL,
		device_id UUID NOT NULL,
		target_ip TEXT NOT NULL,
		profile TEXT NOT NULL,
		status TEXT NOT NULL,
		queued_at TIMESTAMPTZ NOT NULL,
		started_at TIMESTAMPTZ,
		completed_at TIMESTAMPTZ,
		result_id BIGINT,
		error TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS scheduler_stats (
		time TIMESTAMPTZ NOT NULL,
		state TEXT NOT NULL,
		total_executions BIGINT NOT NULL,
		total_errors BIGINT NOT NULL,
		uptime_seconds BIGINT NOT NULL,
		jobs JSONB NOT NULL,
		recent_executions JSONB NOT NULL
	)`,
}

var indexDDL = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_throughput_samples_device_time ON throughput_samples (device_id, time)`,
	`CREATE INDEX IF NOT EXISTS ix_connected_devices_device_mac_time ON connected_devices (device_id, mac, time DESC)`,
	`CREATE INDEX IF NOT EXISTS ix_log_entries_device_kind_time ON log_entries (device_id, kind, time DESC)`,
	`CREATE INDEX IF NOT EXISTS ix_application_samples_device_app_time ON application_samples (device_id, application, time DESC)`,
	`CREATE INDEX IF NOT EXISTS ix_alert_history_device_time ON alert_history (device_id, trigger_time DESC)`,
	`CREATE INDEX IF NOT EXISTS ix_alert_history_unresolved ON alert_history (device_id) WHERE resolved_time IS NULL`,
	`CREATE INDEX IF NOT EXISTS ix_scan_results_device_target_time ON scan_results (device_id, target_ip, time DESC)`,
	`CREATE INDEX IF NOT EXISTS ix_scan_change_events_device_time ON scan_change_events (device_id, time DESC)`,
	`CREATE INDEX IF NOT EXISTS ix_scan_queue_items_status ON scan_queue_items (device_id, status)`,
}

// continuousAggregateDDL declares the hourly/daily rollups over
// throughput_samples exposing the mean of the rate, session and CPU/memory
// metrics (spec §4.3).
var continuousAggregateDDL = []string{
	`CREATE MATERIALIZED VIEW IF NOT EXISTS throughput_samples_hourly
		WITH (timescaledb.continuous) AS
		SELECT
			device_id,
			time_bucket('1 hour', time) AS bucket,
			avg(inbound_mbps) AS inbound_mbps,
			avg(outbound_mbps) AS outbound_mbps,
			avg(total_mbps) AS total_mbps,
			avg(inbound_pps) AS inbound_pps,
			avg(outbound_pps) AS outbound_pps,
			avg(total_pps) AS total_pps,
			avg(sessions_active) AS sessions_active,
			avg(cpu_data_plane) AS cpu_data_plane,
			avg(cpu_mgmt_plane) AS cpu_mgmt_plane,
			avg(memory_pct) AS memory_pct
		FROM throughput_samples
		GROUP BY device_id, bucket
		WITH NO DATA`,
	`SELECT add_continuous_aggregate_policy('throughput_samples_hourly',
		start_offset => INTERVAL '3 hours',
		end_offset => INTERVAL '1 hour',
		schedule_interval => INTERVAL '1 hour',
		if_not_exists => TRUE)`,
	`CREATE MATERIALIZED VIEW IF NOT EXISTS throughput_samples_daily
		WITH (timescaledb.continuous) AS
		SELECT
			device_id,
			time_bucket('1 day', time) AS bucket,
			avg(inbound_mbps) AS inbound_mbps,
			avg(outbound_mbps) AS outbound_mbps,
			avg(total_mbps) AS total_mbps,
			avg(inbound_pps) AS inbound_pps,
			avg(outbound_pps) AS outbound_pps,
			avg(total_pps) AS total_pps,
			avg(sessions_active) AS sessions_active,
			avg(cpu_data_plane) AS cpu_data_plane,
			avg(cpu_mgmt_plane) AS cpu_mgmt_plane,
			avg(memory_pct) AS memory_pct
		FROM throughput_samples
		GROUP BY device_id, bucket
		WITH NO DATA`,
	`SELECT add_continuous_aggregate_policy('throughput_samples_daily',
		start_offset => INTERVAL '3 days',
		end_offset => INTERVAL '1 day',
		schedule_interval => INTERVAL '1 day',
		if_not_exists => TRUE)`,
}
