// Package httpapi wires the HTTP transport (Gin) to the exchange services,
// middleware and route handlers. Cross-cutting concerns live here: tracing,
// correlation IDs, identity, redacted logging, panic recovery, compression,
// metrics, idempotency, rate limiting, CORS and security headers.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/rtshare/exchange-backend/docs"
	"github.com/rtshare/exchange-backend/internal/config"
	"github.com/rtshare/exchange-backend/internal/http/handlers"
	"github.com/rtshare/exchange-backend/internal/http/middleware"
	"github.com/rtshare/exchange-backend/internal/repo"
	"github.com/rtshare/exchange-backend/internal/services"
)

const maxBodyBytes = 1 << 20

var (
	corsMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsHeaders = []string{
		"Origin", "Content-Type", "Accept", "Authorization",
		middleware.HeaderDevUser, middleware.HeaderIdempotencyKey, "If-None-Match",
	}
	corsExpose = []string{"X-Request-ID", "Content-Length", "ETag", "Retry-After", handlers.HeaderIdempotencyReplayed}
)

// RegisterRoutes attaches all middleware and endpoints to r and mounts the
// API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry
//  2. RequestID
//  3. Identify: resolves the caller so every later layer can key on it
//  4. RedactingLogger: scrubs ids, emails, phones and pickup codes
//  5. Recovery
//  6. Body size limit
//  7. gzip (PNG excluded)
//  8. Metrics
//  9. Idempotency validator, before the limiter so replays bypass it
//  10. Rate limiter per user or IP
//  11. CORS and security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.Identify(middleware.AuthOptions{
		Secret:         cfg.Auth.JWTSecret,
		AllowDevHeader: cfg.Auth.AllowDevHeader,
	}))
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{middleware.HeaderDevUser},
		SkipPaths:   []string{"/health", "/metrics"},
	}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(maxBodyBytes))
	r.Use(gzip.Gzip(gzip.DefaultCompression,
		gzip.WithExcludedExtensions([]string{".png"}),
		gzip.WithExcludedPaths([]string{"/metrics"}),
	))

	r.Use(middleware.Metrics("/metrics"))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	base := cfg.APIBasePath
	if base == "/" {
		base = ""
	}
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{
		ReplayRoutes: []string{base + "/items/:id/requests"},
	}, idempotencyLookup(db)))

	// RATE_RPS=0 turns limiting off.
	var pickupMW []gin.HandlerFunc
	if cfg.RateRPS > 0 {
		rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
		r.Use(rl.Handler())
		pickupMW = append(pickupMW, pickupLimiter(cfg).Handler())
	}

	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins)...)

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:      cfg.Security.EnableHSTS,
		HSTSMaxAge:      cfg.Security.HSTSMaxAge,
		NoStorePrefixes: []string{base + "/pickups"},
		EnablePolicy:    true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", health(db))

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(handlers.Deps{
		Requests:      services.NewRequestService(db, cfg.IdempotencyTTL),
		Pickups:       services.NewPickupService(db),
		Items:         services.NewItemService(db),
		Community:     services.NewCommunityService(db),
		Social:        services.NewSocialService(db),
		Notifications: services.NewNotificationService(db),
		QRSize:        cfg.QRSize,
	})

	api := groupWithPrefix(r, cfg.APIBasePath)
	api.Use(middleware.RequireUser())
	{
		// Community
		api.GET("/profile", h.GetProfile)
		api.PUT("/profile", h.UpsertProfile)
		api.POST("/rts", h.CreateRT)
		api.GET("/rts", h.ListRTs)
		api.POST("/rts/:id/join", h.JoinRT)
		api.GET("/rts/:id/members", h.ListMembers)
		api.GET("/membership", h.GetMembership)
		api.PUT("/members/:id/role", h.SetMemberRole)

		// Items and social
		api.POST("/items", h.CreateItem)
		api.GET("/items", h.ListItems)
		api.GET("/items/search", h.SearchItems)
		api.GET("/items/:id", h.GetItem)
		api.PATCH("/items/:id", h.UpdateItem)
		api.DELETE("/items/:id", h.DeleteItem)
		api.GET("/items/:id/stats", h.ItemStats)
		api.POST("/items/:id/like", h.ToggleLike)
		api.GET("/items/:id/comments", h.ListComments)
		api.POST("/items/:id/comments", h.AddComment)
		api.DELETE("/comments/:id", h.DeleteComment)

		// Requests
		api.POST("/items/:id/requests", h.CreateRequest)
		api.GET("/requests", h.ListMyRequests)
		api.GET("/requests/incoming", h.ListIncomingRequests)
		api.GET("/requests/:id", h.GetRequest)
		api.POST("/requests/:id/accept", h.AcceptRequest)
		api.POST("/requests/:id/reject", h.RejectRequest)
		api.POST("/requests/:id/reply", h.ReplyToRequest)
		api.GET("/requests/:id/pickup-code.png", h.PickupCodePNG)
		api.POST("/requests/:id/redeem", h.RedeemRequest)

		// Notifications
		api.GET("/notifications", h.ListNotifications)
		api.GET("/notifications/unread-count", h.UnreadCount)
		api.POST("/notifications/read-all", h.MarkAllNotificationsRead)
		api.POST("/notifications/:id/read", h.MarkNotificationRead)
		api.DELETE("/notifications/:id", h.DeleteNotification)
	}

	// Code guessing goes through a tighter bucket.
	pickups := api.Group("/pickups", pickupMW...)
	{
		pickups.POST("/scan", h.ScanPickup)
		pickups.POST("/confirm", h.ConfirmPickup)
	}
}

// pickupLimiter allows a fifth of the global rate on pickup endpoints.
func pickupLimiter(cfg config.Config) *middleware.RateLimiter {
	return middleware.NewRateLimiter(cfg.RateRPS/5, max(cfg.RateBurst/5, 1), middleware.KeyByUserOrIP())
}

// idempotencyLookup reports whether the caller already used key for scopeID.
func idempotencyLookup(db *gorm.DB) middleware.IdempotencyLookup {
	return func(ctx context.Context, userID, scopeID, key string, now time.Time) (bool, error) {
		rec, err := repo.GetIdempotency(ctx, db, userID, scopeID, key, now)
		if errors.Is(err, repo.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return rec != nil, nil
	}
}

// corsMiddleware allows any origin when origins is empty. Otherwise the
// request Origin is echoed only when it is in the allowlist.
func corsMiddleware(origins []string) []gin.HandlerFunc {
	cc := cors.Config{
		AllowMethods:     corsMethods,
		AllowHeaders:     corsHeaders,
		ExposeHeaders:    corsExpose,
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cc.AllowAllOrigins = true
		// ACAO: * even without an Origin header, so plain probes see it too.
		return []gin.HandlerFunc{
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(cc),
		}
	}

	cc.AllowOrigins = origins
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		},
		cors.New(cc),
	}
}

// health reports liveness plus a database ping.
func health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			middleware.LoggerFrom(c).Warn().Err(err).Msg("health: database unreachable")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "down"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "up"})
	}
}

// limitBody caps request bodies at maxBytes. Reads past the cap fail.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
