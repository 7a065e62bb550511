package common

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ClientIP returns the caller address in canonical form so it can key rate limits and
// logs. The first parseable X-Forwarded-For hop wins, then X-Real-IP, then RemoteAddr.
// Values that do not parse as an IP are skipped; the raw RemoteAddr is the last resort.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	for _, hop := range strings.Split(r.Header.Get("X-Forwarded-For"), ",") {
		if ip, ok := parseIP(hop); ok {
			return ip
		}
	}
	if ip, ok := parseIP(r.Header.Get("X-Real-IP")); ok {
		return ip
	}
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	if ip, ok := parseIP(addr); ok {
		return ip
	}
	return addr
}

func parseIP(raw string) (string, bool) {
	raw = strings.Trim(strings.TrimSpace(raw), "[]")
	if raw == "" {
		return "", false
	}
	addr, err := netip.ParseAddr(raw)
	if err != nil {
		return "", false
	}
	return addr.Unmap().WithZone("").String(), true
}
