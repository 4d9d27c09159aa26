package clientip

import (
	"net"
	"net/http"
	"strings"
)

// RealClientIP returns the peer address of the request, host part only.
// It reads r.RemoteAddr and ignores forwarding headers: the rate limiters
// and the abuse guard key on this value, and a spoofable header would let
// a client reset its own bucket. Deploy behind a trusted proxy only if
// the proxy rewrites RemoteAddr.
func RealClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return strings.TrimSpace(host)
}
