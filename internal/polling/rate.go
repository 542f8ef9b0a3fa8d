package polling

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// counterSnapshot is the last observed cumulative interface counters for
// one device, used to derive per-second rates between polls.
type counterSnapshot struct {
	at         time.Time
	bytesIn    int64
	bytesOut   int64
	packetsIn  int64
	packetsOut int64
}

// RateTracker derives instantaneous throughput rates from cumulative
// interface counters, clamping to zero across a counter reset (a
// firewall reboot zeroes its interface counters, which would otherwise
// read as a large negative rate).
type RateTracker struct {
	mu   sync.Mutex
	last map[uuid.UUID]counterSnapshot
}

func NewRateTracker() *RateTracker {
	return &RateTracker{last: map[uuid.UUID]counterSnapshot{}}
}

// Rates is the derived per-second throughput for one poll tick.
type Rates struct {
	InboundBps   float64
	OutboundBps  float64
	InboundPPS   float64
	OutboundPPS  float64
	BytesDelta   int64
	PacketsDelta int64
}

// Observe records a new cumulative counter reading for deviceID and
// returns the derived rate since the previous observation. The first
// observation for a device always returns a zero Rates, since there is
// no prior sample to delta against.
func (t *RateTracker) Observe(deviceID uuid.UUID, at time.Time, bytesIn, bytesOut, packetsIn, packetsOut int64) Rates {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev, ok := t.last[deviceID]
	t.last[deviceID] = counterSnapshot{at: at, bytesIn: bytesIn, bytesOut: bytesOut, packetsIn: packetsIn, packetsOut: packetsOut}
	if !ok {
		return Rates{}
	}

	elapsed := at.Sub(prev.at).Seconds()
	if elapsed <= 0 {
		return Rates{}
	}

	ibDelta := clampNonNegative(bytesIn - prev.bytesIn)
	obDelta := clampNonNegative(bytesOut - prev.bytesOut)
	ipDelta := clampNonNegative(packetsIn - prev.packetsIn)
	opDelta := clampNonNegative(packetsOut - prev.packetsOut)

	return Rates{
		InboundBps:   float64(ibDelta) / elapsed,
		OutboundBps:  float64(obDelta) / elapsed,
		InboundPPS:   float64(ipDelta) / elapsed,
		OutboundPPS:  float64(opDelta) / elapsed,
		BytesDelta:   ibDelta + obDelta,
		PacketsDelta: ipDelta + opDelta,
	}
}

func clampNonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
