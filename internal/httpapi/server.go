// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package httpapi

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/observability"
)

// Config holds the API server settings.
type Config struct {
	// Addr is the listen address in "host:port" format.
	Addr string
	// AllowedOrigins are the CORS origins permitted to send credentials.
	AllowedOrigins []string
	// SecureCookies marks session cookies Secure. Enable behind TLS.
	SecureCookies bool
}

// Server serves the authentication API.
type Server struct {
	cfg        Config
	auth       *auth.Service
	users      auth.UserRepository
	logger     *slog.Logger
	metrics    *observability.Metrics
	engine     *gin.Engine
	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// NewServer creates the API server. metrics may be nil when the
// observability endpoint is disabled.
func NewServer(cfg Config, authService *auth.Service, users auth.UserRepository, logger *slog.Logger, metrics *observability.Metrics) (*Server, error) {
	if authService == nil {
		return nil, oops.Code("API_NIL_DEPENDENCY").Errorf("auth service is required")
	}
	if users == nil {
		return nil, oops.Code("API_NIL_DEPENDENCY").Errorf("users repository is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:     cfg,
		auth:    authService,
		users:   users,
		logger:  logger,
		metrics: metrics,
	}
	s.engine = s.buildEngine()

	return s, nil
}

// Handler returns the HTTP handler. Exposed for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) buildEngine() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(s.requestLogger())
	engine.Use(s.requestMetrics())

	if len(s.cfg.AllowedOrigins) > 0 {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = s.cfg.AllowedOrigins
		corsConfig.AllowCredentials = true
		corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
		engine.Use(cors.New(corsConfig))
	}

	engine.GET("/", s.handleHomepage)
	engine.POST("/signup", s.handleSignup)
	engine.POST("/login", s.handleLogin)
	engine.GET("/logout", s.RequireLogin(), s.handleLogout)
	engine.GET("/auth", s.handleAuthCheck)
	engine.NoRoute(s.handleNotFound)

	return engine
}

// Start begins serving the API. It returns an error channel that receives
// any server failures after startup; the channel closes on graceful stop.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("api server already running")
	}

	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", s.cfg.Addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)

	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			s.logger.Error("api server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("api server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the API server.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.With("operation", "shutdown_api_server").Wrap(err)
		}
	}

	s.logger.Info("api server stopped")
	return nil
}

// Addr returns the address the server is listening on.
// Returns empty string if not running.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}
