package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatcherPublishesSnapshotOnEnvelopeWrite(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PANFM_DATA_DIR", dir)
	t.Setenv("PANFM_SCHEDULER_TZ", "")
	t.Setenv("PANFM_CONFIG_PASSPHRASE", "pw")

	w, err := NewWatcher(dir)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, SaveEnvelope(dir, []DeviceConfig{{Address: "10.0.0.5"}}, nil, "pw"))

	select {
	case snap := <-w.Changes():
		require.NotNil(t, snap)
		require.Len(t, snap.Devices, 1)
		require.Equal(t, "10.0.0.5", snap.Devices[0].Address)
	case <-time.After(3 * time.Second):
		t.Fatal("expected a snapshot on the changes channel after envelope write")
	}
}
