// Package polling implements the per-device collection pipeline: fetch
// from a FirewallClient, derive rates, classify connected devices,
// resolve hostnames, write normalized artifacts to the time-series
// store, and feed the alert engine.
package polling

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/csmblade/panfm-go-rewrite/internal/firewallclient"
	"github.com/csmblade/panfm-go-rewrite/internal/models"
	"github.com/csmblade/panfm-go-rewrite/internal/polling/resolve"
	"github.com/csmblade/panfm-go-rewrite/internal/registry"
	"github.com/csmblade/panfm-go-rewrite/internal/timeseries"
	"github.com/csmblade/panfm-go-rewrite/internal/vendorlookup"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Device binds a firewall's identity to the client that talks to it.
type Device struct {
	ID           uuid.UUID
	DisplayName  string
	MonitorIface string
	WANIface     string
	Client       firewallclient.Client
}

// Poller runs the per-concern collection jobs across every configured
// device. Throughput, connected-device, log, and application collection
// are independently schedulable (spec §4.1's per-purpose job table); none
// of them evaluates alerts directly — that is the alerts.evaluate job's
// job, reading back through LatestSample.
type Poller struct {
	store    *timeseries.Store
	registry *registry.Store
	vendors  vendorlookup.Lookup
	resolver *resolve.Resolver
	rates    *RateTracker

	// latest caches the most recent successful snapshot per device, read
	// by the HTTP read API and the alert evaluation job without touching
	// the store on every request.
	latestMu sync.RWMutex
	latest   map[uuid.UUID]models.ThroughputSample
}

func NewPoller(store *timeseries.Store, reg *registry.Store, vendors vendorlookup.Lookup, resolver *resolve.Resolver) *Poller {
	if vendors == nil {
		vendors = vendorlookup.Noop{}
	}
	return &Poller{
		store:    store,
		registry: reg,
		vendors:  vendors,
		resolver: resolver,
		rates:    NewRateTracker(),
		latest:   map[uuid.UUID]models.ThroughputSample{},
	}
}

// LatestSample returns the most recently cached sample for a device, or
// ok=false if none has been collected yet this process lifetime.
func (p *Poller) LatestSample(deviceID uuid.UUID) (models.ThroughputSample, bool) {
	p.latestMu.RLock()
	defer p.latestMu.RUnlock()
	s, ok := p.latest[deviceID]
	return s, ok
}

// CollectThroughput runs one throughput collection tick for a device:
// fetch system info, interface counters, session and resource usage, and
// the WAN interface, derive rates, and persist the normalized sample. A
// failure in one sub-fetch does not abort the tick; it is logged and
// that artifact is simply skipped, so a firewall that only supports a
// subset of operations still contributes partial telemetry (spec's
// partial-failure tolerance). This is the 5-second "throughput.collect"
// job; connected-device, log, and application collection run on their
// own, slower cadences via the other Collect* methods.
func (p *Poller) CollectThroughput(ctx context.Context, d Device) error {
	now := time.Now()
	sample := models.ThroughputSample{DeviceID: d.ID, Time: now}

	if info, err := d.Client.SystemInfo(ctx); err != nil {
		log.Warn().Err(err).Str("device", d.DisplayName).Msg("system-info fetch failed")
	} else {
		sample.Hostname = info.Data.Hostname
		sample.PANOSVersion = info.Data.PANOSVersion
		sample.UptimeSec = info.Data.UptimeSec
	}

	if counters, err := d.Client.InterfaceCounters(ctx); err != nil {
		log.Warn().Err(err).Str("device", d.DisplayName).Msg("interface-counters fetch failed")
	} else {
		p.applyInterfaceCounters(d, &sample, counters.Data, now)
	}

	if sessions, err := d.Client.SessionInfo(ctx); err != nil {
		log.Warn().Err(err).Str("device", d.DisplayName).Msg("session-info fetch failed")
	} else {
		sample.SessionsActive = sessions.Data.Active
		sample.SessionsTCP = sessions.Data.TCP
		sample.SessionsUDP = sessions.Data.UDP
		sample.SessionsICMP = sessions.Data.ICMP
		sample.SessionsMax = sessions.Data.Max
	}

	if usage, err := d.Client.ResourceUsage(ctx); err != nil {
		log.Warn().Err(err).Str("device", d.DisplayName).Msg("resource-usage fetch failed")
	} else {
		sample.CPUDataPlane = usage.Data.CPUDataPlane
		sample.CPUMgmtPlane = usage.Data.CPUMgmtPlane
		sample.MemoryPct = usage.Data.MemoryPct
	}

	if d.WANIface != "" {
		if wan, err := d.Client.WANInterface(ctx, d.WANIface); err != nil {
			log.Warn().Err(err).Str("device", d.DisplayName).Msg("wan-interface fetch failed")
		} else {
			sample.WANAddress = wan.Data.Address
			sample.WANLinkMbps = wan.Data.LinkMbps
		}
	}

	sample.TotalMbps = sample.InboundMbps + sample.OutboundMbps
	sample.TotalPPS = sample.InboundPPS + sample.OutboundPPS
	if !sample.Validate() {
		log.Warn().Str("device", d.DisplayName).Msg("throughput sample failed inbound+outbound==total invariant, persisting anyway")
	}

	if err := p.store.InsertSample(ctx, sample); err != nil {
		return fmt.Errorf("insert throughput sample: %w", err)
	}

	p.latestMu.Lock()
	p.latest[d.ID] = sample
	p.latestMu.Unlock()

	return nil
}

// CollectConnectedDevices runs one connected-device inventory tick for a
// device: the 60-second "connected_devices.collect" job.
func (p *Poller) CollectConnectedDevices(ctx context.Context, d Device) error {
	metadata, err := p.registry.MetadataForDevice(ctx, d.ID)
	if err != nil {
		log.Warn().Err(err).Str("device", d.DisplayName).Msg("load device metadata failed")
		metadata = map[string]models.DeviceMetadata{}
	}
	return p.pollConnectedDevices(ctx, d, time.Now(), metadata)
}

// CollectLogs runs one log collection tick for a device: the 60-second
// "logs.collect" job.
func (p *Poller) CollectLogs(ctx context.Context, d Device) error {
	return p.pollLogs(ctx, d, time.Now())
}

// CollectApplications runs one application-traffic collection tick for a
// device: the 60-second "applications.collect" job.
func (p *Poller) CollectApplications(ctx context.Context, d Device) error {
	return p.pollApplications(ctx, d, time.Now())
}

func (p *Poller) applyInterfaceCounters(d Device, sample *models.ThroughputSample, counters []firewallclient.InterfaceCounters, now time.Time) {
	for _, c := range counters {
		if c.Name != d.MonitorIface {
			continue
		}
		sample.IfaceErrors = c.Errors
		sample.IfaceDrops = c.Drops
		rates := p.rates.Observe(d.ID, now, c.BytesIn, c.BytesOut, c.PacketsIn, c.PacketsOut)
		sample.BytesIn = c.BytesIn
		sample.BytesOut = c.BytesOut
		sample.PacketsIn = c.PacketsIn
		sample.PacketsOut = c.PacketsOut
		sample.InboundMbps = rates.InboundBps * 8 / 1_000_000
		sample.OutboundMbps = rates.OutboundBps * 8 / 1_000_000
		sample.InboundPPS = rates.InboundPPS
		sample.OutboundPPS = rates.OutboundPPS
		return
	}
}
