// Package resolve performs reverse DNS lookups for connected-device IPs
// against a configurable set of nameservers, used by the polling
// pipeline to attach hostnames to otherwise-anonymous LAN clients.
package resolve

import (
	"context"
	"strings"
	"time"

	"github.com/miekg/dns"
)

// Resolver performs reverse (PTR) DNS lookups with its own bounded
// timeout, independent of the caller's context deadline, so one slow
// nameserver never stalls an entire poll tick.
type Resolver struct {
	servers []string
	timeout time.Duration
	client  *dns.Client
}

// New creates a Resolver querying servers (each "host:port") in order,
// stopping at the first that answers within timeout.
func New(servers []string, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Resolver{
		servers: servers,
		timeout: timeout,
		client:  &dns.Client{Timeout: timeout},
	}
}

// Reverse resolves ip to its PTR hostname, or "" if no record exists or
// every configured server failed to answer in time.
func (r *Resolver) Reverse(ctx context.Context, ip string) string {
	arpa, err := dns.ReverseAddr(ip)
	if err != nil {
		return ""
	}

	msg := new(dns.Msg)
	msg.SetQuestion(arpa, dns.TypePTR)
	msg.RecursionDesired = true

	for _, server := range r.servers {
		select {
		case <-ctx.Done():
			return ""
		default:
		}
		resp, _, err := r.client.ExchangeContext(ctx, msg, server)
		if err != nil || resp == nil || resp.Rcode != dns.RcodeSuccess {
			continue
		}
		for _, rr := range resp.Answer {
			if ptr, ok := rr.(*dns.PTR); ok {
				return strings.TrimSuffix(ptr.Ptr, ".")
			}
		}
		return ""
	}
	return ""
}
