package middleware

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP returns the address of the client behind r. X-Forwarded-For is
// only honoured when the direct peer is trusted, and then the rightmost
// untrusted hop wins.
func ClientIP(r *http.Request, trusted func(ip string) bool) string {
	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		peer = r.RemoteAddr
	}
	if trusted == nil || !trusted(peer) {
		return peer
	}

	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded == "" {
		return peer
	}
	hops := strings.Split(forwarded, ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		if !trusted(hop) {
			return hop
		}
		peer = hop
	}
	return peer
}
