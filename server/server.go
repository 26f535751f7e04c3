// Package server is the HTTP front of audiolens: a gin engine served over
// HTTP/1.1 and cleartext HTTP/2, with the standard middleware stack and the
// system endpoints (/, /health, /ready, /version).
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kbukum/audiolens/logger"
	"github.com/kbukum/audiolens/observability"
	"github.com/kbukum/audiolens/server/endpoint"
	"github.com/kbukum/audiolens/server/middleware"
)

// Server wraps a gin engine and its http.Server.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     Config
	log        *logger.Logger

	mu       sync.Mutex
	listener net.Listener
}

// New creates a server with no middleware or routes.
func New(cfg Config, log *logger.Logger) *Server {
	cfg.ApplyDefaults()
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	h2s := &http2.Server{
		MaxConcurrentStreams: 250,
		IdleTimeout:          120 * time.Second,
	}
	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           h2c.NewHandler(engine, h2s),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout:      time.Duration(cfg.WriteTimeout) * time.Second,
		IdleTimeout:       time.Duration(cfg.IdleTimeout) * time.Second,
	}
	return &Server{
		httpServer: httpServer,
		engine:     engine,
		config:     cfg,
		log:        log.WithComponent("server"),
	}
}

// Engine returns the gin engine for route registration.
func (s *Server) Engine() *gin.Engine { return s.engine }

// Handler returns the root handler, for tests.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Start binds the port and serves in the background. It returns once the
// listener is bound.
func (s *Server) Start(_ context.Context) error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server failed to bind %s: %w", s.httpServer.Addr, err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("server error", logger.Fields(logger.FieldError, err.Error()))
		}
	}()
	s.log.Info("HTTP server started", logger.Fields("addr", listener.Addr().String()))
	return nil
}

// Stop shuts the server down, waiting up to 10 seconds for in-flight requests.
func (s *Server) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.log.Info("HTTP server stopped")
	return nil
}

// Addr returns the bound address after Start, else the configured one.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

// ApplyMiddleware installs recovery, request id, telemetry, CORS, body limit,
// rate limit and request logging, outermost first. metrics may be nil.
func (s *Server) ApplyMiddleware(metrics *observability.HTTPMetrics) {
	limit, _ := ParseSize(s.config.MaxBodySize)
	s.engine.Use(
		middleware.Recovery(s.log),
		middleware.RequestID(),
		middleware.Telemetry(metrics),
		middleware.CORS(&s.config.CORS),
		middleware.BodySizeLimit(limit),
	)
	if s.config.RateLimit.RequestsPerMinute > 0 {
		s.engine.Use(middleware.RateLimit(s.config.RateLimit))
	}
	s.engine.Use(middleware.RequestLogger(s.log))
}

// RegisterSystemEndpoints mounts /, /health, /ready and /version.
func (s *Server) RegisterSystemEndpoints(serviceName string, checker endpoint.HealthChecker) {
	s.engine.GET("/", endpoint.Root(serviceName))
	s.engine.GET("/health", endpoint.Health(serviceName))
	s.engine.GET("/ready", endpoint.Readiness(serviceName, checker))
	s.engine.GET("/version", endpoint.Version())
}
