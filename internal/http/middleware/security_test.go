package middleware

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func serveSecurity(opt SecurityOptions, req *http.Request, pre ...gin.HandlerFunc) http.Header {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(pre...)
	r.Use(SecurityHeaders(opt))
	r.GET("/*any", func(c *gin.Context) { c.Status(http.StatusOK) })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Header()
}

func TestSecurityHeaders_Baseline(t *testing.T) {
	h := serveSecurity(SecurityOptions{}, httptest.NewRequest(http.MethodGet, "/api/v1/items", nil))

	if h.Get("X-Content-Type-Options") != "nosniff" || h.Get("X-Frame-Options") != "DENY" || h.Get("Referrer-Policy") != "no-referrer" {
		t.Fatalf("baseline missing: %v", h)
	}
	for _, k := range []string{"Permissions-Policy", "Cache-Control", "Strict-Transport-Security"} {
		if h.Get(k) != "" {
			t.Fatalf("unexpected %s", k)
		}
	}
	if got := h.Get("Access-Control-Expose-Headers"); got != "X-Request-ID, Retry-After, ETag, Idempotency-Replayed" {
		t.Fatalf("expose = %q", got)
	}
}

func TestSecurityHeaders_ExposeMerges(t *testing.T) {
	pre := func(c *gin.Context) {
		c.Header("Access-Control-Expose-Headers", "Foo, etag")
		c.Next()
	}
	h := serveSecurity(SecurityOptions{}, httptest.NewRequest(http.MethodGet, "/", nil), pre)
	if got := h.Get("Access-Control-Expose-Headers"); got != "Foo, etag, X-Request-ID, Retry-After, Idempotency-Replayed" {
		t.Fatalf("expose = %q", got)
	}
}

func TestSecurityHeaders_NoStorePrefixes(t *testing.T) {
	opt := SecurityOptions{NoStorePrefixes: []string{"/api/v1/pickups", "/api/v1/requests/"}}

	h := serveSecurity(opt, httptest.NewRequest(http.MethodGet, "/api/v1/pickups/abc", nil))
	if h.Get("Cache-Control") != "no-store" || h.Get("Pragma") != "no-cache" || h.Get("Expires") != "0" {
		t.Fatalf("pickup response cacheable: %v", h)
	}
	h = serveSecurity(opt, httptest.NewRequest(http.MethodGet, "/api/v1/items", nil))
	if h.Get("Cache-Control") != "" {
		t.Fatalf("items should stay cacheable: %v", h)
	}
}

func TestSecurityHeaders_PolicyAndHSTS(t *testing.T) {
	opt := SecurityOptions{EnableHSTS: true, HSTSMaxAge: 24 * time.Hour, NoStore: true, EnablePolicy: true}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.TLS = &tls.ConnectionState{}
	h := serveSecurity(opt, req)
	if h.Get("X-Permitted-Cross-Domain-Policies") != "none" || h.Get("Cache-Control") != "no-store" {
		t.Fatalf("options ignored: %v", h)
	}
	if got := h.Get("Strict-Transport-Security"); got != "max-age=86400; includeSubDomains; preload" {
		t.Fatalf("hsts = %q", got)
	}

	// Plain HTTP never gets HSTS.
	h = serveSecurity(opt, httptest.NewRequest(http.MethodGet, "/", nil))
	if h.Get("Strict-Transport-Security") != "" {
		t.Fatal("HSTS over plain HTTP")
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-Proto", "HTTPS")
	h = serveSecurity(SecurityOptions{EnableHSTS: true}, req)
	if got := h.Get("Strict-Transport-Security"); got != "max-age=15552000; includeSubDomains; preload" {
		t.Fatalf("default hsts = %q", got)
	}
}
