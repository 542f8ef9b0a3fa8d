// Package vendorlookup defines the narrow OUI-to-vendor lookup interface
// the polling pipeline depends on. Resolving a MAC's hardware vendor
// requires maintaining or licensing an OUI database, which is out of
// scope for the collector itself; callers inject a concrete Lookup.
package vendorlookup

// Lookup resolves a MAC address's vendor/manufacturer name.
type Lookup interface {
	// Vendor returns the manufacturer name for mac, or "" if unknown.
	Vendor(mac string) string
}

// Noop is a Lookup that never resolves a vendor, used when no OUI
// database is configured.
type Noop struct{}

func (Noop) Vendor(string) string { return "" }
