// Package http provides HTTP server implementation and request handlers.
package http

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/tenantvault/internal/config"
	credentialsHTTP "github.com/allisson/tenantvault/internal/credentials/http"
	"github.com/allisson/tenantvault/internal/metrics"
	tenantHTTP "github.com/allisson/tenantvault/internal/tenant/http"
)

// Server represents the API server.
type Server struct {
	db     *sql.DB
	server *http.Server
	logger *slog.Logger
	router *gin.Engine
}

// NewServer creates a new API server. SetupRouter must be called before Start.
func NewServer(
	db *sql.DB,
	host string,
	port int,
	logger *slog.Logger,
) *Server {
	return &Server{
		db:     db,
		logger: logger,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", host, port),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// RouterDeps groups what SetupRouter mounts.
type RouterDeps struct {
	Resolver          tenantHTTP.ScopeResolver
	Guard             tenantHTTP.AdminGuard
	CredentialHandler *credentialsHTTP.CredentialHandler
	TenantHandler     *tenantHTTP.TenantHandler
	MetricsProvider   *metrics.Provider
}

// SetupRouter builds the Gin router.
//
// Route layout:
//
//	GET  /up, /ready                              no tenant
//	/v1/credentials/...                           tenant scope + rate limit
//	/v1/admin/tenants/...                         admin scope + rate limit
//
// The tenant middleware runs globally so that every /v1 route is scoped before
// any handler runs; health checks pass through unscoped.
func (s *Server) SetupRouter(ctx context.Context, cfg *config.Config, deps RouterDeps) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, cfg.TenantBaseDomain, s.logger)
	if corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	if deps.MetricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(deps.MetricsProvider.MeterProvider(), cfg.MetricsNamespace))
	}

	router.GET("/up", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	v1 := router.Group("/v1")
	v1.Use(tenantHTTP.TenantMiddleware(deps.Resolver, s.logger))
	if cfg.RateLimitEnabled {
		v1.Use(tenantHTTP.RateLimitMiddleware(ctx, cfg.RateLimitRequestsPerSec, cfg.RateLimitBurst, s.logger))
	}

	if h := deps.CredentialHandler; h != nil {
		credentials := v1.Group("/credentials")
		credentials.POST("", h.CreateHandler)
		credentials.GET("", h.ListHandler)
		credentials.GET("/:id", h.GetHandler)
		credentials.POST("/:id/reveal", h.RevealHandler)
		credentials.PUT("/:id/secret", h.RotateSecretHandler)
		credentials.DELETE("/:id", h.DeleteHandler)
	}

	if h := deps.TenantHandler; h != nil {
		admin := v1.Group("/admin")
		admin.Use(tenantHTTP.AdminMiddleware(deps.Guard, s.logger))
		admin.GET("/tenants", h.ListHandler)
		admin.POST("/tenants", h.CreateHandler)
		admin.POST("/tenants/:id/deactivate", h.DeactivateHandler)
		admin.POST("/tenants/:id/activate", h.ActivateHandler)
		admin.POST("/tenants/:id/keys/rotate", h.RotateKeyHandler)
	}

	s.router = router
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start(ctx context.Context) error {
	s.server.Handler = s.router

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}

// healthHandler reports liveness. It never touches a dependency.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports whether the database answers.
func (s *Server) readinessHandler(c *gin.Context) {
	if s.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": gin.H{"database": "error"},
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Warn("readiness check failed", slog.Any("error", err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": gin.H{"database": "error"},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ready",
		"components": gin.H{"database": "ok"},
	})
}
