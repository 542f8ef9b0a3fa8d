package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ThreatLevel indexes the per-severity "last seen" timestamps on a
// ThroughputSample.
type ThreatLevel string

const (
	ThreatCritical ThreatLevel = "critical"
	ThreatHigh     ThreatLevel = "high"
	ThreatMedium   ThreatLevel = "medium"
)

// BandwidthClient is the single top-bandwidth client computed for a tick,
// split by whether its peer traffic stayed inside RFC1918 space or
// crossed to the public internet.
type BandwidthClient struct {
	IP        string  `json:"ip"`
	Hostname  string  `json:"hostname,omitempty"`
	Bytes     int64   `json:"bytes"`
	Mbps      float64 `json:"mbps"`
	Direction string  `json:"direction"` // "internal" or "internet"
}

// TopCategory is the single top-bandwidth application category for a
// tick, split the same way as BandwidthClient.
type TopCategory struct {
	Category  string  `json:"category"`
	Bytes     int64   `json:"bytes"`
	Direction string  `json:"direction"`
}

// ThroughputSample is one polling tick's full snapshot for a device.
type ThroughputSample struct {
	DeviceID uuid.UUID `json:"deviceId"`
	Time     time.Time `json:"time"`

	BytesIn  int64 `json:"bytesIn"`
	BytesOut int64 `json:"bytesOut"`
	PacketsIn int64 `json:"packetsIn"`
	PacketsOut int64 `json:"packetsOut"`

	InboundMbps  float64 `json:"inboundMbps"`
	OutboundMbps float64 `json:"outboundMbps"`
	TotalMbps    float64 `json:"totalMbps"`
	InboundPPS   float64 `json:"inboundPps"`
	OutboundPPS  float64 `json:"outboundPps"`
	TotalPPS     float64 `json:"totalPps"`

	SessionsActive int `json:"sessionsActive"`
	SessionsTCP    int `json:"sessionsTcp"`
	SessionsUDP    int `json:"sessionsUdp"`
	SessionsICMP   int `json:"sessionsIcmp"`
	SessionsMax    int `json:"sessionsMax"`

	CPUDataPlane float64 `json:"cpuDataPlane"`
	CPUMgmtPlane float64 `json:"cpuMgmtPlane"`
	MemoryPct    float64 `json:"memoryPct"`
	UptimeSec    int64   `json:"uptimeSeconds"`

	ThreatsCritical int `json:"threatsCritical"`
	ThreatsHigh     int `json:"threatsHigh"`
	ThreatsMedium   int `json:"threatsMedium"`
	BlockedURLs     int `json:"blockedUrls"`
	// ThreatLastSeen maps a ThreatLevel to the time it was last observed.
	ThreatLastSeen map[ThreatLevel]time.Time `json:"threatLastSeen,omitempty"`

	IfaceErrors int64 `json:"ifaceErrors"`
	IfaceDrops  int64 `json:"ifaceDrops"`

	LicenseExpired int `json:"licenseExpired"`
	LicenseValid   int `json:"licenseValid"`

	WANAddress  string `json:"wanAddress,omitempty"`
	WANLinkMbps int     `json:"wanLinkMbps,omitempty"`
	Hostname    string `json:"hostname,omitempty"`
	PANOSVersion string `json:"panOsVersion,omitempty"`

	// TopApplications and InterfaceStats are explicit JSON blobs with
	// their own schema, not a loosely-typed map.
	TopApplications json.RawMessage `json:"topApplications,omitempty"`
	InterfaceStats  json.RawMessage `json:"interfaceStats,omitempty"`

	TopClientInternal *BandwidthClient `json:"topClientInternal,omitempty"`
	TopClientInternet *BandwidthClient `json:"topClientInternet,omitempty"`
	TopCategoryInternal *TopCategory   `json:"topCategoryInternal,omitempty"`
	TopCategoryInternet *TopCategory   `json:"topCategoryInternet,omitempty"`
}

// Validate checks the tolerance invariant: total_mbps == inbound + outbound
// within floating point rounding (spec §3).
func (s *ThroughputSample) Validate() bool {
	const tolerance = 0.01
	sum := s.InboundMbps + s.OutboundMbps
	diff := sum - s.TotalMbps
	if diff < 0 {
		diff = -diff
	}
	return diff <= tolerance
}

// Resolution selects the rollup granularity for a range query.
type Resolution string

const (
	ResolutionRaw    Resolution = "raw"
	ResolutionHourly Resolution = "hourly"
	ResolutionDaily  Resolution = "daily"
)
