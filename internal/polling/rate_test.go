package polling

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRateTrackerFirstObservationIsZero(t *testing.T) {
	tr := NewRateTracker()
	id := uuid.New()
	r := tr.Observe(id, time.Now(), 1000, 2000, 10, 20)
	assert.Equal(t, Rates{}, r)
}

func TestRateTrackerDerivesRateBetweenObservations(t *testing.T) {
	tr := NewRateTracker()
	id := uuid.New()
	start := time.Now()
	tr.Observe(id, start, 0, 0, 0, 0)

	r := tr.Observe(id, start.Add(10*time.Second), 10000, 20000, 100, 200)
	assert.Equal(t, 1000.0, r.InboundBps)
	assert.Equal(t, 2000.0, r.OutboundBps)
	assert.Equal(t, 10.0, r.InboundPPS)
	assert.Equal(t, 20.0, r.OutboundPPS)
	assert.EqualValues(t, 30000, r.BytesDelta)
}

func TestRateTrackerClampsOnCounterReset(t *testing.T) {
	tr := NewRateTracker()
	id := uuid.New()
	start := time.Now()
	tr.Observe(id, start, 100000, 100000, 1000, 1000)

	// Firewall rebooted: counters reset to near zero.
	r := tr.Observe(id, start.Add(5*time.Second), 500, 500, 5, 5)
	assert.Equal(t, 0.0, r.InboundBps)
	assert.Equal(t, 0.0, r.OutboundBps)
	assert.EqualValues(t, 0, r.BytesDelta)
}

func TestRateTrackerZeroElapsedIsZero(t *testing.T) {
	tr := NewRateTracker()
	id := uuid.New()
	now := time.Now()
	tr.Observe(id, now, 0, 0, 0, 0)
	r := tr.Observe(id, now, 1000, 1000, 10, 10)
	assert.Equal(t, Rates{}, r)
}
