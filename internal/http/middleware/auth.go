// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file resolves the caller's identity. Identify runs globally and never
// rejects a request: it only records who the caller is, so that rate
// limiting and idempotency can key on the user. RequireUser guards the API
// group and answers 401 when no identity was established.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rtshare/exchange-backend/internal/auth"
)

const (
	// HeaderDevUser carries a raw profile id when dev identities are enabled.
	HeaderDevUser = "X-User-ID"

	ctxKeyUserID  = "userID"
	ctxKeyAuthErr = "auth.err"

	maxDevUserLen = 64
)

// AuthOptions configures Identify.
type AuthOptions struct {
	// Secret verifies HS256 bearer tokens. Empty disables bearer auth.
	Secret string
	// AllowDevHeader trusts X-User-ID when no Authorization header is sent.
	// Never enable this in production.
	AllowDevHeader bool
}

// Identify resolves the caller from "Authorization: Bearer <jwt>" or, when
// enabled, from X-User-ID, and stores the profile id in the context.
func Identify(opts AuthOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		if h := strings.TrimSpace(c.GetHeader("Authorization")); h != "" {
			scheme, tok, found := strings.Cut(h, " ")
			if !found || !strings.EqualFold(scheme, "Bearer") || opts.Secret == "" {
				c.Set(ctxKeyAuthErr, "unsupported authorization scheme")
				c.Next()
				return
			}
			claims, err := auth.ValidateToken(opts.Secret, strings.TrimSpace(tok))
			if err != nil {
				c.Set(ctxKeyAuthErr, "invalid or expired token")
				c.Next()
				return
			}
			c.Set(ctxKeyUserID, claims.UserID())
			c.Next()
			return
		}

		if opts.AllowDevHeader {
			if id := strings.TrimSpace(c.GetHeader(HeaderDevUser)); id != "" && len(id) <= maxDevUserLen {
				c.Set(ctxKeyUserID, id)
			}
		}
		c.Next()
	}
}

// RequireUser aborts with 401 unless Identify established a caller.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if UserID(c) != "" {
			c.Next()
			return
		}
		msg := "authentication required"
		if v, ok := c.Get(ctxKeyAuthErr); ok {
			msg = asString(v)
		}
		c.Header("WWW-Authenticate", `Bearer realm="api"`)
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody(c, "unauthorized", msg))
	}
}

// UserID returns the authenticated profile id, or "".
func UserID(c *gin.Context) string {
	v, _ := c.Get(ctxKeyUserID)
	return asString(v)
}

// errorBody is the error envelope used by middleware that answers directly.
func errorBody(c *gin.Context, code, msg string) gin.H {
	return gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       code,
		"message":    msg,
	}
}
