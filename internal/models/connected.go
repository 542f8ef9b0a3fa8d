package models

import (
	"time"

	"github.com/google/uuid"
)

// ConnectedDeviceSample is one row per (firewall, MAC, collection time).
type ConnectedDeviceSample struct {
	DeviceID uuid.UUID `json:"deviceId"`
	Time     time.Time `json:"time"`

	MAC      string `json:"mac"`
	IP       string `json:"ip"`
	Hostname string `json:"hostname,omitempty"`
	VLAN     int    `json:"vlan,omitempty"`
	Iface    string `json:"interface,omitempty"`
	Zone     string `json:"zone,omitempty"`
	Vendor   string `json:"vendor,omitempty"`

	Virtual       bool   `json:"virtual"`
	VirtualReason string `json:"virtualReason,omitempty"`
	Randomized    bool   `json:"randomized"`
	RandomizedOS  string `json:"randomizedOs,omitempty"`

	// Denormalized metadata, joined in at write time.
	CustomName string   `json:"customName,omitempty"`
	Comment    string   `json:"comment,omitempty"`
	Location   string   `json:"location,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

// LogKind distinguishes the four bounded per-device log windows.
type LogKind string

const (
	LogThreat  LogKind = "threat"
	LogURL     LogKind = "url"
	LogSystem  LogKind = "system"
	LogTraffic LogKind = "traffic"
)

// MaxLogRowsPerDeviceKind bounds the rolling window retained per
// (device, kind): spec §3 requires ~1000 most recent entries.
const MaxLogRowsPerDeviceKind = 1000

// LogEntry is one row in a bounded, time-retained per-device log window.
type LogEntry struct {
	DeviceID uuid.UUID `json:"deviceId"`
	Kind     LogKind   `json:"kind"`
	Time     time.Time `json:"time"`
	Severity string    `json:"severity,omitempty"`
	Source   string    `json:"source,omitempty"`
	Dest     string    `json:"dest,omitempty"`
	Detail   string    `json:"detail"`
}

// ApplicationSample is one row per (firewall, application, collection time).
type ApplicationSample struct {
	DeviceID uuid.UUID `json:"deviceId"`
	Time     time.Time `json:"time"`

	Application string `json:"application"`
	BytesTotal   int64  `json:"bytesTotal"`
	BytesSent    int64  `json:"bytesSent"`
	BytesRecv    int64  `json:"bytesReceived"`
	Sessions     int    `json:"sessions"`

	// SourceIPs and DestIPs are capped at 50 entries each by bytes (spec §3).
	SourceIPs []string `json:"sourceIps,omitempty"`
	DestIPs   []string `json:"destIps,omitempty"`
	Protocols []string `json:"protocols,omitempty"`
	Ports     []int    `json:"ports,omitempty"`
	VLANs     []int    `json:"vlans,omitempty"`
	Zones     []string `json:"zones,omitempty"`
}

// MaxApplicationEndpoints caps SourceIPs/DestIPs per spec §3.
const MaxApplicationEndpoints = 50
