// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// SecurityHeaders adds hardening headers suited to a JSON API behind a
// reverse proxy. Responses that carry pickup codes must never be cached, so
// they can be forced to no-store by route prefix even when the rest of the
// API allows caching (ETags on item listings).
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// exposedHeaders are readable by browser clients under CORS.
var exposedHeaders = []string{requestIDHeader, "Retry-After", "ETag", "Idempotency-Replayed"}

// SecurityOptions configures SecurityHeaders.
type SecurityOptions struct {
	// EnableHSTS sends Strict-Transport-Security on HTTPS requests only.
	EnableHSTS bool
	// HSTSMaxAge defaults to 180 days.
	HSTSMaxAge time.Duration
	// NoStore marks every response Cache-Control: no-store.
	NoStore bool
	// NoStorePrefixes marks responses no-store when the request path starts
	// with one of them.
	NoStorePrefixes []string
	// EnablePolicy sends Permissions-Policy and X-Permitted-Cross-Domain-Policies.
	EnablePolicy bool
}

// SecurityHeaders returns middleware applying opt to every response.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	maxAge := int(opt.HSTSMaxAge.Seconds())
	if maxAge <= 0 {
		maxAge = int((180 * 24 * time.Hour).Seconds())
	}
	hsts := "max-age=" + strconv.Itoa(maxAge) + "; includeSubDomains; preload"

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")

		if opt.EnablePolicy {
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()")
			h.Set("X-Permitted-Cross-Domain-Policies", "none")
		}
		if opt.NoStore || hasAnyPrefix(c.Request.URL.Path, opt.NoStorePrefixes) {
			h.Set("Cache-Control", "no-store")
			h.Set("Pragma", "no-cache")
			h.Set("Expires", "0")
		}
		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}
		exposeHeaders(h)

		c.Next()
	}
}

// exposeHeaders appends exposedHeaders to Access-Control-Expose-Headers
// without duplicating entries already present.
func exposeHeaders(h http.Header) {
	const key = "Access-Control-Expose-Headers"
	cur := h.Get(key)
	have := map[string]bool{}
	for _, p := range strings.Split(cur, ",") {
		if p = strings.TrimSpace(p); p != "" {
			have[strings.ToLower(p)] = true
		}
	}
	parts := []string{}
	if cur != "" {
		parts = append(parts, cur)
	}
	for _, e := range exposedHeaders {
		if !have[strings.ToLower(e)] {
			parts = append(parts, e)
		}
	}
	if len(parts) > 0 {
		h.Set(key, strings.Join(parts, ", "))
	}
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// isHTTPS reports TLS directly or via X-Forwarded-Proto from the proxy.
func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
