// Package middleware provides HTTP middlewares for the loopback auth
// listener: origin restriction and request logging.
package middleware

import (
	"net"
	"net/http"
)

// LoopbackOnly rejects requests that do not originate from the local host.
//
// The callback listener receives a bearer token in its query string, so it
// must never serve a remote peer even if it was bound to a wider address.
func LoopbackOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isLoopback(r.RemoteAddr) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isLoopback(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
