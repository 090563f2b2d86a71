// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file validates the Idempotency-Key header on unsafe requests and marks
// retries of a POST that already completed, so rate limiting can let them
// through and handlers can replay the stored result.
package middleware

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey is the header clients use to make a POST retry-safe.
const HeaderIdempotencyKey = "Idempotency-Key"

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay"
	ctxKeyRateBypass = "rate.bypass"
)

var defaultIdemPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// GetIdempotencyKey returns the validated key stashed by IdempotencyValidator.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyIdemKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// IsReplay reports whether a stored result exists for this request's key.
func IsReplay(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyIdemReplay)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// IdempotencyOptions configures IdempotencyValidator.
type IdempotencyOptions struct {
	// MaxLen caps the key length. Values <= 0 default to 128, the column width.
	MaxLen int
	// Pattern restricts allowed characters. Defaults to ^[A-Za-z0-9._~\-:]+$.
	Pattern *regexp.Regexp
	// ReplayRoutes lists the registered route patterns (c.FullPath()) whose
	// POSTs store idempotency records. Only those can be flagged as replays.
	ReplayRoutes []string
}

// IdempotencyLookup reports whether an unexpired record exists for
// (userID, scopeID, key). scopeID is the ":id" path parameter of the route,
// i.e. the resource the POST targets. TTL is enforced by the lookup.
type IdempotencyLookup func(ctx context.Context, userID, scopeID, key string, now time.Time) (bool, error)

// IdempotencyValidator rejects malformed keys with 400 and, when lookup finds
// a stored result for a POST to one of opts.ReplayRoutes, flags the request as
// a replay that bypasses rate limiting. Requests without the header, and
// anonymous requests, pass untouched; lookup errors never block the request.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 128
	}
	pat := opts.Pattern
	if pat == nil {
		pat = defaultIdemPattern
	}
	replayable := make(map[string]struct{}, len(opts.ReplayRoutes))
	for _, r := range opts.ReplayRoutes {
		replayable[r] = struct{}{}
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest,
				errorBody(c, "bad_idempotency_key", "invalid Idempotency-Key"))
			return
		}
		c.Set(ctxKeyIdemKey, key)

		if lookup == nil || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}
		if _, ok := replayable[c.FullPath()]; !ok {
			c.Next()
			return
		}
		uid := UserID(c)
		scope := c.Param("id")
		if uid != "" && scope != "" {
			if exists, err := lookup(c.Request.Context(), uid, scope, key, time.Now().UTC()); err == nil && exists {
				c.Set(ctxKeyIdemReplay, true)
				c.Set(ctxKeyRateBypass, true)
			} else if err != nil {
				LoggerFrom(c).Warn().Err(err).Msg("idempotency lookup failed")
			}
		}
		c.Next()
	}
}
