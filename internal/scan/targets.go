package scan

import (
	"context"

	"github.com/csmblade/panfm-go-rewrite/internal/models"
	"github.com/csmblade/panfm-go-rewrite/internal/registry"
	"github.com/csmblade/panfm-go-rewrite/internal/timeseries"
	"github.com/google/uuid"
)

// TargetResolver turns a ScheduledScan's TargetSelector into the concrete
// set of IPs to scan, reading the device's latest connected-device view
// and operator-assigned metadata.
type TargetResolver struct {
	timeseries *timeseries.Store
	registry   *registry.Store
}

func NewTargetResolver(ts *timeseries.Store, reg *registry.Store) *TargetResolver {
	return &TargetResolver{timeseries: ts, registry: reg}
}

// Resolve returns the scannable IPs matching sel for deviceID, silently
// dropping any address outside RFC1918 space.
func (r *TargetResolver) Resolve(ctx context.Context, deviceID uuid.UUID, sel models.TargetSelector) ([]string, error) {
	if sel.Type == models.TargetIP {
		if IsScannable(sel.Value) {
			return []string{sel.Value}, nil
		}
		return nil, nil
	}

	connected, err := r.timeseries.LatestConnectedDevices(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	var ips []string
	for _, c := range connected {
		if !IsScannable(c.IP) {
			continue
		}
		switch sel.Type {
		case models.TargetAll:
			ips = append(ips, c.IP)
		case models.TargetLocation:
			if c.Location == sel.Value {
				ips = append(ips, c.IP)
			}
		case models.TargetTag:
			for _, t := range c.Tags {
				if t == sel.Value {
					ips = append(ips, c.IP)
					break
				}
			}
		}
	}
	return ips, nil
}
