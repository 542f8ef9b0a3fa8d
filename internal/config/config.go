// Package config loads a typed configuration snapshot for the collector
// process and republishes it whenever the on-disk envelopes change. The
// collector never reads environment variables or files outside this
// package; every other component receives a Snapshot value.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// StoreDSN overrides assemble the time-series store connection string
// either directly or from individual host/port/user/password/db fields.
type StoreDSN struct {
	DSN      string
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// Resolve returns the effective DSN, preferring an explicit DSN string
// over the individual fields.
func (s StoreDSN) Resolve() string {
	if s.DSN != "" {
		return s.DSN
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s", s.User, s.Password, s.Host, s.Port, s.Database)
}

// Snapshot is the complete typed configuration the core consumes. It is
// constructed once at startup and replaced wholesale on every config
// change notification — no component mutates it in place.
type Snapshot struct {
	Store          StoreDSN
	Timezone       *time.Location
	DataDir        string

	MinConnections int
	MaxConnections int
	MetricsAddr    string

	Devices  []DeviceConfig
	Channels []ChannelConfig

	ScanMaxConcurrentPerDevice int
}

// DeviceConfig is the operator-configured view of a firewall, decrypted
// from the on-disk envelope before the collector ever sees it.
type DeviceConfig struct {
	Address      string
	AuthToken    string
	DisplayName  string
	Enabled      bool
	MonitorIface string
	WANIface     string
}

// ChannelKind names a notification transport.
type ChannelKind string

const (
	ChannelEmail   ChannelKind = "email"
	ChannelWebhook ChannelKind = "webhook"
	ChannelSlack   ChannelKind = "slack"
)

// ChannelConfig is one configured notification destination.
type ChannelConfig struct {
	ID            string
	Kind          ChannelKind
	SMTPHost      string
	SMTPPort      int
	SMTPUser      string
	SMTPPassword  string
	FromAddress   string
	Recipients    []string
	URL           string
	Token         string
}

// Load reads .env overrides and the encrypted envelope (if present) and
// assembles a Snapshot. It is called once at process start; subsequent
// changes arrive through a Watcher's channel.
func Load() (*Snapshot, error) {
	dataDir := os.Getenv("PANFM_DATA_DIR")
	if dataDir == "" {
		dataDir = "/etc/panfm"
	}

	envPath := filepath.Join(dataDir, ".env")
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	tz := os.Getenv("PANFM_SCHEDULER_TZ")
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid PANFM_SCHEDULER_TZ %q: %w", tz, err)
	}

	snap := &Snapshot{
		DataDir:                    dataDir,
		Timezone:                   loc,
		MinConnections:             2,
		MaxConnections:             envInt("PANFM_STORE_MAX_CONNECTIONS", 8),
		MetricsAddr:                envDefault("PANFM_METRICS_ADDR", ":9090"),
		ScanMaxConcurrentPerDevice: envInt("PANFM_SCAN_MAX_CONCURRENT", 3),
		Store: StoreDSN{
			DSN:      os.Getenv("PANFM_STORE_DSN"),
			Host:     envDefault("PANFM_STORE_HOST", "localhost"),
			Port:     envInt("PANFM_STORE_PORT", 5432),
			User:     envDefault("PANFM_STORE_USER", "panfm"),
			Password: os.Getenv("PANFM_STORE_PASSWORD"),
			Database: envDefault("PANFM_STORE_DB", "panfm"),
		},
	}

	envelope, err := loadEnvelope(dataDir)
	if err != nil {
		return nil, fmt.Errorf("load config envelope: %w", err)
	}
	if envelope != nil {
		snap.Devices = envelope.Devices
		snap.Channels = envelope.Channels
	}

	// min_connections = 2, max_connections ~= number_of_devices + 4 (spec §5),
	// unless the operator set an explicit floor above.
	if want := len(snap.Devices) + 4; want > snap.MaxConnections {
		snap.MaxConnections = want
	}

	return snap, nil
}

func envDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
