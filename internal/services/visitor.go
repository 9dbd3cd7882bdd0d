package services

import (
	"encoding/base64"
	"gitviewer/internal/models"
	"net"
	"net/http"
	"strings"
)

// visitorHeaders are consulted in order; proxies and CDNs set different ones.
var visitorHeaders = []string{"X-Real-IP", "CF-Connecting-IP", "X-Client-IP", "X-Forwarded-For"}

// VisitorID derives the cooldown key for a request. Clients with no usable
// address share a bucket derived from their request headers.
func VisitorID(r *http.Request) string {
	for _, header := range visitorHeaders {
		value, _, _ := strings.Cut(r.Header.Get(header), ",")
		if value = strings.TrimSpace(value); usableVisitor(value) {
			return value
		}
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && usableVisitor(host) {
		return host
	}
	if usableVisitor(r.RemoteAddr) {
		return r.RemoteAddr
	}

	return fallbackVisitorID(r)
}

func usableVisitor(v string) bool {
	return v != "" && !strings.EqualFold(v, "unknown")
}

func fallbackVisitorID(r *http.Request) string {
	seed := r.UserAgent() + r.Header.Get("Accept-Language") + r.Header.Get("Accept-Encoding")
	if seed == "" {
		return models.AnonymousVisitor
	}
	id := base64.StdEncoding.EncodeToString([]byte(seed))
	if len(id) > 16 {
		id = id[:16]
	}
	return "fallback-" + id
}
