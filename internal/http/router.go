// Package httpapi wires the HTTP transport (Gin) to the message service,
// middleware, and route handlers. It centralizes cross-cutting concerns:
// tracing, correlation IDs, logging, panic recovery, metrics, CORS,
// security headers, body caps, and rate limiting.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured access logs
//  4. Recovery: capture panics after logger
//  5. Body size limiter (upload cap)
//  6. Metrics
//  7. Rate limiter (per IP)
//  8. Gzip (JSON only; /media payloads are already compressed)
//  9. CORS and security headers
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/elanexo/audio-backend/internal/config"
	"github.com/elanexo/audio-backend/internal/http/handlers"
	"github.com/elanexo/audio-backend/internal/http/middleware"
	"github.com/elanexo/audio-backend/internal/repo"
	"github.com/elanexo/audio-backend/internal/services"
	"github.com/elanexo/audio-backend/internal/storage"
)

// RegisterRoutes attaches all middleware and endpoints to the Gin engine:
// observability (tracing, metrics), abuse control, CORS and security
// headers, health and metrics endpoints, and the public message/media API.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, blobs storage.Backend, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured access logging
	r.Use(middleware.Logger())

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Upload body cap
	r.Use(limitBody(cfg.MaxUploadBytes))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Token-bucket rate limiter per IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByIP())
	r.Use(rl.Handler())

	// 8) Compress JSON responses; skip media, audio codecs already did.
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/media"})))

	// 9) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Health: verifies the database answers, not just that the process is up.
	r.GET("/health", func(c *gin.Context) {
		if _, err := repo.CountMessages(c.Request.Context(), db); err != nil {
			handlers.Fail(c, http.StatusServiceUnavailable, handlers.ErrCodeInternal, "database unavailable")
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Dependency injection: handlers ← service ← db/blobs
	svc := &services.MessageService{DB: db, Blobs: blobs}
	h := handlers.New(svc)

	// Public API
	r.GET("/", h.Index)
	r.GET("/messages", h.ListMessages)
	r.GET("/messages/:id", h.GetMessage)
	r.POST("/messages", h.CreateMessage)
	r.PUT("/messages/:id", h.UpdateMessage)
	r.DELETE("/messages/:id", h.DeleteMessage)
	r.GET("/media/:filename", h.ServeMedia)
}

// limitBody caps the request body for all endpoints with http.MaxBytesReader;
// oversized uploads fail when the multipart reader crosses the cap.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
