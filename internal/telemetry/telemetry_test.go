package telemetry

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveJobExposesCountersViaHandler(t *testing.T) {
	r := New()
	r.ObserveJob("poll-devices", 120*time.Millisecond, false)
	r.ObserveJob("poll-devices", 80*time.Millisecond, true)

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `panfm_scheduler_job_runs_total{job="poll-devices"} 2`)
	assert.Contains(t, string(body), `panfm_scheduler_job_failures_total{job="poll-devices"} 1`)
}
