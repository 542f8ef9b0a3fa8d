// Package models holds the nominal record types shared by every
// component of the collector: devices, time-series samples, alert
// configuration, and scan artifacts. Each table in internal/timeseries
// has exactly one corresponding struct here; there are no dict-shaped
// polymorphic payloads.
package models

import (
	"time"

	"github.com/google/uuid"
)

// deviceNamespace is the fixed UUID namespace used to derive deterministic
// device ids. It is arbitrary but must never change, or every existing
// device id would shift and orphan historical data.
var deviceNamespace = uuid.MustParse("5b1b1f2e-7f3a-4c8a-9b2a-1d6b6a7e9f10")

// DeviceID derives a stable UUIDv5 from a firewall's management address
// and (optionally) its display name. The same (address, name) pair
// always yields the same id, regardless of insertion order, so a
// historical time series survives a config rewrite or restore.
func DeviceID(address, name string) uuid.UUID {
	key := address
	if name != "" {
		key = address + "|" + name
	}
	return uuid.NewSHA1(deviceNamespace, []byte(key))
}

// Device is an operator-managed firewall endpoint.
type Device struct {
	ID              uuid.UUID `json:"id"`
	Address         string    `json:"address"`
	AuthToken       string    `json:"-"` // opaque credential, never serialized
	DisplayName     string    `json:"displayName"`
	Enabled         bool      `json:"enabled"`
	MonitorIface    string    `json:"monitorInterface"`
	WANIface        string    `json:"wanInterface"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// DeviceMetadata is keyed by a canonicalized (lowercase) MAC address and
// is scoped to a single firewall device.
type DeviceMetadata struct {
	DeviceID   uuid.UUID `json:"deviceId"`
	MAC        string    `json:"mac"`
	CustomName string    `json:"customName,omitempty"`
	Comment    string    `json:"comment,omitempty"`
	Location   string    `json:"location,omitempty"`
	Tags       []string  `json:"tags,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// CanonicalizeMAC lowercases a MAC address for use as a metadata key.
func CanonicalizeMAC(mac string) string {
	out := make([]byte, len(mac))
	for i := 0; i < len(mac); i++ {
		c := mac[i]
		if c >= 'A' && c <= 'F' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}
