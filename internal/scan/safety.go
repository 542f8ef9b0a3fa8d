// Package scan implements active port scanning against monitored
// firewalls' connected devices: target resolution, nmap execution,
// result parsing, and change detection against the previous scan.
package scan

import "net"

// IsScannable reports whether ip is eligible for active scanning. Active
// scans are restricted to RFC1918 private space so the collector can
// never be pointed at arbitrary internet hosts (spec §4.6 safety gate).
func IsScannable(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	return parsed.To4() != nil && parsed.IsPrivate()
}
