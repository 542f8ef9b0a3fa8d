// Package portlookup defines the narrow well-known-port-to-service-name
// lookup interface the scan result formatter depends on. Maintaining a
// full IANA service registry is out of scope; callers inject a concrete
// Lookup (the standard library's own registry is typically sufficient).
package portlookup

// Lookup resolves a (port, protocol) pair to a conventional service name.
type Lookup interface {
	// ServiceName returns the conventional name for port/protocol (e.g.
	// 443/tcp -> "https"), or "" if unknown.
	ServiceName(port int, protocol string) string
}

// Noop is a Lookup that never resolves a name.
type Noop struct{}

func (Noop) ServiceName(int, string) string { return "" }
