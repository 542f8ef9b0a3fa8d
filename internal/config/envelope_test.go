package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndLoadEnvelopeRoundTrips(t *testing.T) {
	dir := t.TempDir()
	devices := []DeviceConfig{{Address: "10.0.0.1", DisplayName: "fw-1", AuthToken: "secret-key", Enabled: true}}
	channels := []ChannelConfig{{ID: "c1", Kind: ChannelWebhook, URL: "https://example.com/hook"}}

	require.NoError(t, SaveEnvelope(dir, devices, channels, "correct horse battery staple"))

	t.Setenv("PANFM_CONFIG_PASSPHRASE", "correct horse battery staple")
	env, err := loadEnvelope(dir)
	require.NoError(t, err)
	require.NotNil(t, env)
	assert.Equal(t, devices, env.Devices)
	assert.Equal(t, channels, env.Channels)
}

func TestLoadEnvelopeWrongPassphraseFails(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, SaveEnvelope(dir, nil, nil, "right-passphrase"))

	t.Setenv("PANFM_CONFIG_PASSPHRASE", "wrong-passphrase")
	_, err := loadEnvelope(dir)
	assert.Error(t, err)
}

func TestLoadEnvelopeMissingFileReturnsNil(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PANFM_CONFIG_PASSPHRASE", "whatever")
	env, err := loadEnvelope(dir)
	assert.NoError(t, err)
	assert.Nil(t, env)
}

func TestLoadEnvelopeRequiresPassphraseWhenFileExists(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, SaveEnvelope(dir, nil, nil, "some-passphrase"))

	os.Unsetenv("PANFM_CONFIG_PASSPHRASE")
	_, err := loadEnvelope(dir)
	assert.Error(t, err)
}

func TestEnvelopeFilePermissionsAreOwnerOnly(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, SaveEnvelope(dir, nil, nil, "pw"))
	info, err := os.Stat(filepath.Join(dir, "panfm.enc"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
