// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// RedactingLogger is the access logger. It never logs bodies, masks
// credentials and pickup codes, and scrubs emails, phone numbers and UUIDs
// from the query string and header values before anything is written.
//
// A pickup code is a bearer secret for one item: anyone holding it can
// collect. It is removed from logged paths and queries entirely.
package middleware

import (
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// RedactOptions configures RedactingLogger.
type RedactOptions struct {
	// MaskHeaders adds header names whose values are replaced wholesale.
	// Authorization, Cookie and Set-Cookie are always masked.
	MaskHeaders []string
	// MaskParams adds path parameter names whose values are masked in the
	// logged path. "code" is always masked.
	MaskParams []string
	// SkipPaths are route patterns that are not logged (e.g. /healthz).
	SkipPaths []string
}

var (
	uuidRE  = regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-5][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`)
	emailRE = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	// Digits only, so hex segments of an id never match.
	phoneRE = regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)
	// Secret query values: ?code=..., &token=...
	secretQueryRE = regexp.MustCompile(`(?i)((?:^|&)(?:code|pickup_code|token|access_token)=)[^&]*`)
)

// redact scrubs identifiers from s. UUIDs go first so the looser phone
// pattern cannot eat their digit groups.
func redact(s string) string {
	if s == "" {
		return s
	}
	s = uuidRE.ReplaceAllString(s, "[REDACTED:id]")
	s = emailRE.ReplaceAllString(s, "[REDACTED:email]")
	return phoneRE.ReplaceAllString(s, "[REDACTED:phone]")
}

func redactQuery(q string) string {
	return redact(secretQueryRE.ReplaceAllString(q, "${1}[REDACTED]"))
}

// RedactingLogger logs one line per request and attaches a request-scoped
// logger (request_id, user_id, method, route) for LoggerFrom. It must run
// after RequestID and Identify. Level follows the outcome: error for 5xx or
// recorded gin errors, warn for 4xx.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	maskHeaders := map[string]struct{}{
		"authorization": {},
		"cookie":        {},
		"set-cookie":    {},
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			maskHeaders[h] = struct{}{}
		}
	}
	maskParams := map[string]struct{}{"code": {}}
	for _, p := range opts.MaskParams {
		if p = strings.TrimSpace(p); p != "" {
			maskParams[p] = struct{}{}
		}
	}
	skip := make(map[string]struct{}, len(opts.SkipPaths))
	for _, p := range opts.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		start := time.Now()
		route := c.FullPath()

		scoped := log.With().
			Str("request_id", asString(c.Value(requestIDKey))).
			Str("user_id", UserID(c)).
			Str("method", c.Request.Method).
			Str("route", route).
			Logger()
		c.Set(loggerKey, &scoped)

		c.Next()

		if _, ok := skip[route]; ok && route != "" {
			return
		}

		path := route
		if path == "" {
			path = redact(c.Request.URL.Path)
		} else {
			path = maskedPath(c, maskParams)
		}

		headers := make(map[string]string, len(c.Request.Header))
		for k, vv := range c.Request.Header {
			if _, ok := maskHeaders[strings.ToLower(k)]; ok {
				headers[k] = "[REDACTED]"
				continue
			}
			headers[k] = redact(strings.Join(vv, ", "))
		}

		status := c.Writer.Status()
		ev := scoped.Info()
		switch {
		case len(c.Errors) > 0 || status >= 500:
			ev = scoped.Error()
			if len(c.Errors) > 0 {
				ev = ev.Str("errors", c.Errors.String())
			}
		case status >= 400:
			ev = scoped.Warn()
		}

		ev.
			Str("path", path).
			Str("query", truncate(redactQuery(c.Request.URL.RawQuery), maxQueryLogLength)).
			Str("remote_ip", c.ClientIP()).
			Int("status", status).
			Int64("bytes_in", c.Request.ContentLength).
			Int("bytes_out", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", headers).
			Msg("http_request")
	}
}

// maskedPath renders the concrete path with masked parameters replaced and
// the remaining parameters scrubbed.
func maskedPath(c *gin.Context, mask map[string]struct{}) string {
	path := c.Request.URL.Path
	for _, p := range c.Params {
		if p.Value == "" {
			continue
		}
		repl := redact(p.Value)
		if _, ok := mask[p.Key]; ok {
			repl = "[REDACTED]"
		}
		path = strings.Replace(path, p.Value, repl, 1)
	}
	return redact(path)
}
