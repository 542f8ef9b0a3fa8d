package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStoreDSNResolvePrefersExplicitDSN(t *testing.T) {
	s := StoreDSN{DSN: "postgres://explicit", Host: "ignored"}
	assert.Equal(t, "postgres://explicit", s.Resolve())
}

func TestStoreDSNResolveBuildsFromFields(t *testing.T) {
	s := StoreDSN{Host: "db", Port: 5432, User: "panfm", Password: "pw", Database: "panfm"}
	assert.Equal(t, "postgres://panfm:pw@db:5432/panfm", s.Resolve())
}

func TestLoadAppliesDefaultsWithoutEnvelope(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PANFM_DATA_DIR", dir)
	t.Setenv("PANFM_STORE_HOST", "")
	t.Setenv("PANFM_SCHEDULER_TZ", "")

	snap, err := Load()
	assert.NoError(t, err)
	assert.Equal(t, dir, snap.DataDir)
	assert.Equal(t, "UTC", snap.Timezone.String())
	assert.Equal(t, 2, snap.MinConnections)
	assert.Empty(t, snap.Devices)
}

func TestLoadInvalidTimezoneFails(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PANFM_DATA_DIR", dir)
	t.Setenv("PANFM_SCHEDULER_TZ", "Not/A_Zone")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadMaxConnectionsScalesWithDeviceCount(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PANFM_DATA_DIR", dir)
	t.Setenv("PANFM_SCHEDULER_TZ", "")
	t.Setenv("PANFM_CONFIG_PASSPHRASE", "pw")

	devices := make([]DeviceConfig, 10)
	for i := range devices {
		devices[i] = DeviceConfig{Address: "10.0.0.1", DisplayName: "fw"}
	}
	require := assert.New(t)
	require.NoError(SaveEnvelope(dir, devices, nil, "pw"))

	snap, err := Load()
	require.NoError(err)
	require.GreaterOrEqual(snap.MaxConnections, 14)
}
