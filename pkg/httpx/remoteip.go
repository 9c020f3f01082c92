package httpx

import (
	"net"
	"net/http"
	"strings"
)

// GetRemoteIP returns the client address, preferring the first
// X-Forwarded-For hop, then X-Real-IP, then RemoteAddr. The forwarding
// headers are only trustworthy behind a proxy that overwrites them.
func GetRemoteIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
