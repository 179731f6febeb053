// Package server exposes the latest collected report over HTTP. It reads
// from the report cache and never triggers collection on the request
// path; cycles run on the scheduler or via an explicit trigger endpoint.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/finopshub/advisor/internal/annotations"
	"github.com/finopshub/advisor/internal/cache"
	"github.com/finopshub/advisor/internal/config"
)

// Version is reported by the health endpoint. The command layer
// overrides it with build information.
var Version = "dev"

// Server holds the HTTP server state and dependencies.
type Server struct {
	cfg         *config.Config
	reports     *cache.ReportCache
	annotations *annotations.Store
	trigger     func()
	logger      *zerolog.Logger
	engine      *gin.Engine
	httpServer  *http.Server
	startTime   time.Time

	// Guards in-place status mutation of the cached report against
	// concurrent reads.
	mu sync.RWMutex
}

// Option configures a Server.
type Option func(*Server)

// WithAnnotations attaches the annotation store so status updates
// survive across cycles.
func WithAnnotations(store *annotations.Store) Option {
	return func(s *Server) { s.annotations = store }
}

// WithTrigger sets the callback invoked by POST /api/v1/collect. The
// callback must return promptly; the cycle itself runs elsewhere.
func WithTrigger(fn func()) Option {
	return func(s *Server) { s.trigger = fn }
}

// New creates a server over the report cache.
func New(cfg *config.Config, reports *cache.ReportCache, logger *zerolog.Logger, opts ...Option) *Server {
	s := &Server{
		cfg:       cfg,
		reports:   reports,
		logger:    logger,
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLogger())
	s.registerRoutes(engine)
	s.engine = engine

	return s
}

// Engine returns the underlying router, mainly for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Start runs the HTTP server until the context is canceled, then shuts
// down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.cfg.ListenAddr).Msg("HTTP server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info().Msg("Shutting down HTTP server")
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	}
}

func (s *Server) registerRoutes(engine *gin.Engine) {
	engine.GET("/healthz", s.handleHealth)

	api := engine.Group("/api/v1")
	api.GET("/report", s.handleReport)
	api.GET("/summary", s.handleSummary)
	api.GET("/recommendations", s.handleRecommendations)
	api.GET("/recommendations/:id", s.handleRecommendation)
	api.PATCH("/recommendations/:id/status", s.handleStatusUpdate)
	api.POST("/collect", s.handleCollect)
}
