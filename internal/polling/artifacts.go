package polling

import (
	"context"
	"time"

	"github.com/csmblade/panfm-go-rewrite/internal/firewallclient"
	"github.com/csmblade/panfm-go-rewrite/internal/models"
)

// logWindow bounds how far back each log-query operation looks on every
// tick. Entries already persisted from an earlier tick are inserted
// again; the store does not deduplicate them, it only trims each
// (device, kind) to its most recent rows.
const logWindow = 10 * time.Minute

// pollConnectedDevices merges the ARP table and DHCP lease list into one
// row per MAC, classifies each for virtualization/randomization, resolves
// a hostname when the firewall didn't already report one, and denormalizes
// operator-entered metadata before writing the tick.
func (p *Poller) pollConnectedDevices(ctx context.Context, d Device, now time.Time, metadata map[string]models.DeviceMetadata) error {
	arp, err := d.Client.ARPTable(ctx)
	if err != nil {
		return err
	}
	leases, err := d.Client.DHCPLeases(ctx)
	if err != nil {
		leases.Data = nil
	}

	leaseByMAC := make(map[string]firewallclient.DHCPLease, len(leases.Data))
	for _, l := range leases.Data {
		leaseByMAC[models.CanonicalizeMAC(l.MAC)] = l
	}

	rows := make([]models.ConnectedDeviceSample, 0, len(arp.Data))
	for _, entry := range arp.Data {
		mac := models.CanonicalizeMAC(entry.MAC)
		vendor := p.vendors.Vendor(mac)
		class := ClassifyMAC(mac, vendor)

		row := models.ConnectedDeviceSample{
			DeviceID:      d.ID,
			Time:          now,
			MAC:           mac,
			IP:            entry.IP,
			Iface:         entry.Iface,
			VLAN:          entry.VLAN,
			Vendor:        vendor,
			Virtual:       class.Virtual,
			VirtualReason: class.VirtualReason,
			Randomized:    class.Randomized,
		}

		if lease, ok := leaseByMAC[mac]; ok && lease.Hostname != "" {
			row.Hostname = lease.Hostname
		} else if p.resolver != nil {
			row.Hostname = p.resolver.Reverse(ctx, entry.IP)
		}

		if meta, ok := metadata[mac]; ok {
			row.CustomName = meta.CustomName
			row.Comment = meta.Comment
			row.Location = meta.Location
			row.Tags = meta.Tags
		}

		rows = append(rows, row)
	}

	return p.store.InsertConnectedDevices(ctx, rows)
}

// pollLogs fetches the four bounded log windows and normalizes each into
// a LogEntry row. A firewall that doesn't support one log type (e.g. no
// URL filtering license) simply contributes nothing for that kind.
func (p *Poller) pollLogs(ctx context.Context, d Device, now time.Time) error {
	q := firewallclient.LogQuery{Since: now.Add(-logWindow), Limit: models.MaxLogRowsPerDeviceKind}

	kinds := []struct {
		kind  models.LogKind
		fetch func(context.Context, firewallclient.LogQuery) (firewallclient.Result[[]firewallclient.LogRecord], error)
	}{
		{models.LogThreat, d.Client.ThreatLogs},
		{models.LogURL, d.Client.URLLogs},
		{models.LogSystem, d.Client.SystemLogs},
		{models.LogTraffic, d.Client.TrafficLogs},
	}

	var entries []models.LogEntry
	var firstErr error
	for _, k := range kinds {
		res, err := k.fetch(ctx, q)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		for _, rec := range res.Data {
			entries = append(entries, models.LogEntry{
				DeviceID: d.ID,
				Kind:     k.kind,
				Time:     rec.Time,
				Severity: rec.Severity,
				Source:   rec.Source,
				Dest:     rec.Dest,
				Detail:   rec.Detail,
			})
		}
	}

	if len(entries) > 0 {
		if err := p.store.InsertLogs(ctx, entries); err != nil {
			return err
		}
	}
	return firstErr
}

// pollApplications fetches application-level traffic statistics and
// writes one sample row per application observed this tick.
func (p *Poller) pollApplications(ctx context.Context, d Device, now time.Time) error {
	stats, err := d.Client.ApplicationStatistics(ctx)
	if err != nil {
		return err
	}

	samples := make([]models.ApplicationSample, 0, len(stats.Data))
	for _, a := range stats.Data {
		samples = append(samples, models.ApplicationSample{
			DeviceID:    d.ID,
			Time:        now,
			Application: a.Application,
			BytesTotal:  a.BytesSent + a.BytesRecv,
			BytesSent:   a.BytesSent,
			BytesRecv:   a.BytesRecv,
			Sessions:    a.Sessions,
			SourceIPs:   a.SourceIPs,
			DestIPs:     a.DestIPs,
			Protocols:   a.Protocols,
			Ports:       a.Ports,
		})
	}

	return p.store.InsertApplications(ctx, samples)
}
