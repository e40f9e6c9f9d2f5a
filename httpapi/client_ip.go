package httpapi

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/altiverse/authgate"
)

// ClientIP resolves the originating client address. The first entry of
// X-Forwarded-For wins when present; otherwise the connection's remote
// address is used.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		ip := strings.TrimSpace(parts[0])
		if ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// withRequestContext stamps the resolved client IP into the request context
// so the engine can key rate limits and audit events on it.
func (a *API) withRequestContext(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := authgate.WithClientIP(r.Context(), ClientIP(r))
		next(w, r.WithContext(ctx))
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
