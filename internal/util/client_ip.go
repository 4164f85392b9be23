package util

import (
	"net"
	"net/http"
	"strings"
)

// TrustedProxies is the set of peer addresses whose forwarded headers are
// believed. Anything outside the set is treated as the real client.
type TrustedProxies struct {
	ranges []*net.IPNet
}

// NewTrustedProxies builds the set from CIDR blocks or bare IPs. A nil set
// is returned for empty input and trusts nobody.
func NewTrustedProxies(entries []string) (*TrustedProxies, error) {
	var ranges []*net.IPNet
	for _, raw := range entries {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			continue
		}
		block, err := parseProxyEntry(entry)
		if err != nil {
			return nil, err
		}
		ranges = append(ranges, block)
	}
	if len(ranges) == 0 {
		return nil, nil
	}
	return &TrustedProxies{ranges: ranges}, nil
}

func parseProxyEntry(entry string) (*net.IPNet, error) {
	if strings.Contains(entry, "/") {
		_, block, err := net.ParseCIDR(entry)
		return block, err
	}
	ip := net.ParseIP(entry)
	if ip == nil {
		return nil, &net.ParseError{Type: "IP address", Text: entry}
	}
	bits := 32
	if ip.To4() == nil {
		bits = 128
	}
	return &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)}, nil
}

// Contains reports whether ip falls inside any trusted range.
func (t *TrustedProxies) Contains(ip net.IP) bool {
	if t == nil || ip == nil {
		return false
	}
	for _, block := range t.ranges {
		if block.Contains(ip) {
			return true
		}
	}
	return false
}

// ClientIP resolves the originating client address. Forwarded headers are
// honoured only when the direct peer is a trusted proxy; the X-Forwarded-For
// chain is then walked right to left until the first untrusted hop.
func ClientIP(r *http.Request, trusted *TrustedProxies) string {
	peer := peerIP(r.RemoteAddr)
	if peer == nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	if !trusted.Contains(peer) {
		return peer.String()
	}

	if hops := forwardedChain(r.Header.Get("X-Forwarded-For")); len(hops) > 0 {
		hops = append(hops, peer)
		for i := len(hops) - 1; i >= 0; i-- {
			if !trusted.Contains(hops[i]) {
				return hops[i].String()
			}
		}
		// Every hop is a proxy of ours; the leftmost is the best guess.
		return hops[0].String()
	}

	if real := parseAddr(r.Header.Get("X-Real-IP")); real != nil {
		return real.String()
	}
	return peer.String()
}

func forwardedChain(raw string) []net.IP {
	var hops []net.IP
	for _, part := range strings.Split(raw, ",") {
		if ip := parseAddr(part); ip != nil {
			hops = append(hops, ip)
		}
	}
	return hops
}

func peerIP(addr string) net.IP {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return parseAddr(host)
	}
	return parseAddr(addr)
}

func parseAddr(raw string) net.IP {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	return net.ParseIP(raw)
}
