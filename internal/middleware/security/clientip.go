package security

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// IPResolver finds the client address of a request. Forwarding headers are
// honoured only when the direct peer is a trusted proxy.
type IPResolver struct {
	trustedProxies []*net.IPNet
}

// NewIPResolver trusts loopback and private networks plus any extra CIDRs.
func NewIPResolver(extraCIDRs ...string) (*IPResolver, error) {
	cidrs := append([]string{"127.0.0.0/8", "::1/128", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"}, extraCIDRs...)
	r := &IPResolver{}
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(strings.TrimSpace(cidr))
		if err != nil {
			return nil, fmt.Errorf("invalid CIDR %s: %w", cidr, err)
		}
		r.trustedProxies = append(r.trustedProxies, network)
	}
	return r, nil
}

// ClientIP returns the first valid X-Forwarded-For hop, then X-Real-IP,
// when the peer is trusted, and the peer address otherwise.
func (res *IPResolver) ClientIP(r *http.Request) string {
	directIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		directIP = r.RemoteAddr
	}

	parsed := net.ParseIP(directIP)
	if parsed == nil || !res.isTrusted(parsed) {
		return directIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if net.ParseIP(first) != nil {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" && net.ParseIP(xri) != nil {
		return xri
	}
	return directIP
}

func (res *IPResolver) isTrusted(ip net.IP) bool {
	for _, network := range res.trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
