// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/gatehouse/gatehouse/internal/auth"
	authpg "github.com/gatehouse/gatehouse/internal/auth/postgres"
	authredis "github.com/gatehouse/gatehouse/internal/auth/redis"
	"github.com/gatehouse/gatehouse/internal/httpapi"
	"github.com/gatehouse/gatehouse/internal/logging"
	"github.com/gatehouse/gatehouse/internal/observability"
	"github.com/gatehouse/gatehouse/internal/store"
)

// serveConfig holds configuration for the serve command.
type serveConfig struct {
	addr           string
	metricsAddr    string
	logFormat      string
	sessionBackend string
	corsOrigins    string
	secureCookies  bool
}

// Validate checks that the configuration is valid.
func (cfg *serveConfig) Validate() error {
	if cfg.addr == "" {
		return fmt.Errorf("addr is required")
	}
	if cfg.logFormat != "json" && cfg.logFormat != "text" {
		return fmt.Errorf("log-format must be 'json' or 'text', got %q", cfg.logFormat)
	}
	if cfg.sessionBackend != "postgres" && cfg.sessionBackend != "redis" {
		return fmt.Errorf("session-backend must be 'postgres' or 'redis', got %q", cfg.sessionBackend)
	}
	return nil
}

// allowedOrigins splits the comma-separated CORS origin list.
func (cfg *serveConfig) allowedOrigins() []string {
	if cfg.corsOrigins == "" {
		return nil
	}
	parts := strings.Split(cfg.corsOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

// Default values for serve command flags.
const (
	defaultAddr        = "127.0.0.1:8080"
	defaultMetricsAddr = "127.0.0.1:9100"
	defaultLogFormat   = "json"
	defaultBackend     = "postgres"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cfg := &serveConfig{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the authentication HTTP server",
		Long: `Start the HTTP server exposing signup, login, logout and auth-check.
Reads DATABASE_URL from the environment; with --session-backend=redis,
also reads REDIS_ADDR and REDIS_PASSWORD.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServeWithDeps(cmd.Context(), cfg, cmd, nil)
		},
	}

	cmd.Flags().StringVar(&cfg.addr, "addr", defaultAddr, "HTTP listen address")
	cmd.Flags().StringVar(&cfg.metricsAddr, "metrics-addr", defaultMetricsAddr, "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().StringVar(&cfg.logFormat, "log-format", defaultLogFormat, "log format (json or text)")
	cmd.Flags().StringVar(&cfg.sessionBackend, "session-backend", defaultBackend, "session store backend (postgres or redis)")
	cmd.Flags().StringVar(&cfg.corsOrigins, "cors-origins", "", "comma-separated CORS origins allowed to send credentials")
	cmd.Flags().BoolVar(&cfg.secureCookies, "secure-cookies", false, "mark session cookies Secure (enable behind TLS)")

	return cmd
}

// runServeWithDeps starts the server with injectable dependencies.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cfg *serveConfig, cmd *cobra.Command, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}

	if deps.PoolFactory == nil {
		deps.PoolFactory = store.Connect
	}
	if deps.RedisSessionFactory == nil {
		deps.RedisSessionFactory = func(ctx context.Context, addr, password string) (auth.SessionRepository, error) {
			return authredis.NewSessionStore(ctx, addr, password)
		}
	}
	if deps.APIServerFactory == nil {
		deps.APIServerFactory = func(apiCfg httpapi.Config, svc *auth.Service, users auth.UserRepository, metrics *observability.Metrics) (APIServer, error) {
			return httpapi.NewServer(apiCfg, svc, users, slog.Default(), metrics)
		}
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker)
		}
	}
	if deps.DatabaseURLGetter == nil {
		deps.DatabaseURLGetter = func() string {
			return os.Getenv("DATABASE_URL")
		}
	}
	if deps.RedisURLGetter == nil {
		deps.RedisURLGetter = func() string {
			return os.Getenv("REDIS_ADDR")
		}
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logging.SetDefault("gatehouse", version, cfg.logFormat)

	slog.Info("starting gatehouse",
		"addr", cfg.addr,
		"session_backend", cfg.sessionBackend,
		"log_format", cfg.logFormat,
	)

	databaseURL := deps.DatabaseURLGetter()
	if databaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is required")
	}

	pool, err := deps.PoolFactory(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	slog.Info("connected to database")

	users := authpg.NewUserRepository(pool)

	sessions, closeSessions, err := buildSessionStore(ctx, cfg, deps, pool)
	if err != nil {
		return err
	}
	defer closeSessions()

	svc, err := auth.NewService(users, sessions, auth.NewArgon2idHasher())
	if err != nil {
		return fmt.Errorf("failed to create auth service: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Start observability server if configured
	var obsServer ObservabilityServer
	var metrics *observability.Metrics
	if cfg.metricsAddr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.metricsAddr, func() bool {
			pingCtx, pingCancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer pingCancel()
			return pool.Ping(pingCtx) == nil
		})
		metrics = obsServer.Metrics()
		svc.SetPurgeHook(func(purged int64) {
			metrics.ActiveSessionPurges.Add(float64(purged))
		})

		obsErrChan, err := obsServer.Start()
		if err != nil {
			return fmt.Errorf("failed to start observability server: %w", err)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
	}

	apiServer, err := deps.APIServerFactory(httpapi.Config{
		Addr:           cfg.addr,
		AllowedOrigins: cfg.allowedOrigins(),
		SecureCookies:  cfg.secureCookies,
	}, svc, users, metrics)
	if err != nil {
		return fmt.Errorf("failed to create api server: %w", err)
	}

	apiErrChan, err := apiServer.Start()
	if err != nil {
		if obsServer != nil {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer stopCancel()
			if stopErr := obsServer.Stop(stopCtx); stopErr != nil {
				slog.Warn("failed to stop observability server during cleanup", "error", stopErr)
			}
		}
		return fmt.Errorf("failed to start api server: %w", err)
	}
	go monitorServerErrors(ctx, cancel, apiErrChan, "api")

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("Gatehouse started")
	slog.Info("gatehouse ready", "addr", apiServer.Addr())

	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := apiServer.Stop(shutdownCtx); err != nil {
		slog.Warn("error stopping api server", "error", err)
	}

	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			slog.Warn("error stopping observability server", "error", err)
		}
	}

	slog.Info("shutdown complete")
	return nil
}

// buildSessionStore selects the configured session backend. The returned
// cleanup func is a no-op for the pool-backed store since the caller owns
// the pool.
func buildSessionStore(ctx context.Context, cfg *serveConfig, deps *ServeDeps, pool *pgxpool.Pool) (auth.SessionRepository, func(), error) {
	switch cfg.sessionBackend {
	case "redis":
		redisAddr := deps.RedisURLGetter()
		if redisAddr == "" {
			return nil, nil, fmt.Errorf("REDIS_ADDR environment variable is required for the redis session backend")
		}
		sessionStore, err := deps.RedisSessionFactory(ctx, redisAddr, os.Getenv("REDIS_PASSWORD"))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		closeFn := func() {}
		if closer, ok := sessionStore.(interface{ Close() error }); ok {
			closeFn = func() {
				if closeErr := closer.Close(); closeErr != nil {
					slog.Warn("error closing redis session store", "error", closeErr)
				}
			}
		}
		slog.Info("using redis session store", "addr", redisAddr)
		return sessionStore, closeFn, nil
	default:
		return authpg.NewSessionRepository(pool), func() {}, nil
	}
}

// monitorServerErrors monitors a server's error channel and cancels the
// context on error so a failed component triggers full shutdown. It exits
// when an error arrives, the channel closes, or the context is cancelled.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
