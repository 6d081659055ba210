// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/gatehouse/internal/auth"
	"github.com/holomush/gatehouse/internal/config"
	"github.com/holomush/gatehouse/internal/logging"
	"github.com/holomush/gatehouse/internal/observability"
	"github.com/holomush/gatehouse/internal/session"
	"github.com/holomush/gatehouse/internal/store"
	"github.com/holomush/gatehouse/internal/telemetry"
	"github.com/holomush/gatehouse/internal/web"
	"github.com/holomush/gatehouse/pkg/errutil"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		Long: `Start the web server along with the metrics and health endpoints.
Pending migrations are applied first unless auto-migrate is disabled.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			return runServeWithDeps(cmd.Context(), cfg, cmd, nil)
		},
	}

	config.RegisterFlags(cmd.Flags())

	return cmd
}

func (d *ServeDeps) withDefaults() *ServeDeps {
	if d == nil {
		d = &ServeDeps{}
	}
	if d.DatabaseOpener == nil {
		d.DatabaseOpener = openDatabase
	}
	if d.MigratorFactory == nil {
		d.MigratorFactory = func(dialect store.Dialect, url string) (AutoMigrator, error) {
			return store.NewMigrator(dialect, url)
		}
	}
	if d.ObservabilityServerFactory == nil {
		d.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker)
		}
	}
	if d.TelemetrySetup == nil {
		d.TelemetrySetup = telemetry.Setup
	}
	if d.ListenerFactory == nil {
		d.ListenerFactory = net.Listen
	}
	return d
}

// runServeWithDeps runs the server until ctx is cancelled, SIGINT/SIGTERM
// arrives, or a server fails. If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cfg *config.Config, cmd *cobra.Command, deps *ServeDeps) error {
	deps = deps.withDefaults()

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger := logging.Setup(serviceName, version, cfg.Log.Format, level, deps.LogWriter)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := deps.TelemetrySetup(ctx, serviceName, version, cfg.OTel.Endpoint)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			slog.Warn("error flushing traces", "error", err)
		}
	}()

	if cfg.Database.AutoMigrate {
		if err := runAutoMigration(ctx, cfg.Database, deps.MigratorFactory); err != nil {
			return err
		}
	}

	db, err := deps.DatabaseOpener(ctx, cfg.Database)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("driver", cfg.Database.Driver).Wrap(err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Warn("error closing database", "error", err)
		}
	}()
	slog.Info("connected to database", "driver", cfg.Database.Driver)

	hasher, err := auth.NewBcryptHasher(cfg.Password.BcryptCost, 0)
	if err != nil {
		return err
	}
	authService, err := auth.NewServiceWithLogger(db.Users(), hasher, logger)
	if err != nil {
		return oops.Wrap(err)
	}

	key, err := loadSessionKey(cfg.Session.Key)
	if err != nil {
		return err
	}
	revocations := session.NewRevocations(session.DefaultSweepInterval)
	defer revocations.Close()
	codec, err := session.NewCodec(key, session.WithTTL(cfg.Session.TTL), session.WithRevocations(revocations))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var metrics *observability.Metrics
	var obsServer ObservabilityServer
	if cfg.MetricsAddr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.MetricsAddr, db.Ping)
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return oops.Code("OBSERVABILITY_START_FAILED").With("addr", cfg.MetricsAddr).Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		metrics = obsServer.Metrics()
	}

	app, err := web.New(web.Options{
		Auth:         authService,
		Sessions:     codec,
		Metrics:      metrics,
		Logger:       logger,
		CookieSecure: cfg.Session.CookieSecure,
	})
	if err != nil {
		return err
	}

	listener, err := deps.ListenerFactory("tcp", cfg.ListenAddr)
	if err != nil {
		return oops.Code("LISTEN_FAILED").With("addr", cfg.ListenAddr).Wrap(err)
	}

	httpServer := &http.Server{
		Handler:           app.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	webErrChan := make(chan error, 1)
	go func() {
		defer close(webErrChan)
		if serveErr := httpServer.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			webErrChan <- serveErr
		}
	}()

	cmd.Printf("Gatehouse listening on %s\n", listener.Addr())
	slog.Info("gatehouse ready",
		"addr", listener.Addr().String(),
		"metrics_addr", cfg.MetricsAddr,
		"session_ttl", cfg.Session.TTL,
	)

	var serveErr error
	select {
	case serveErr = <-webErrChan:
		slog.Error("web server error, shutting down", "error", serveErr)
	case <-ctx.Done():
		slog.Info("shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("error stopping web server", "error", err)
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			slog.Warn("error stopping observability server", "error", err)
		}
	}

	if serveErr != nil {
		return oops.Code("SERVE_FAILED").Wrap(serveErr)
	}
	slog.Info("shutdown complete")
	return nil
}

// loadSessionKey decodes the configured key or, when none is set, creates
// one for this process only.
func loadSessionKey(encoded string) ([]byte, error) {
	if encoded != "" {
		return session.LoadKey(encoded)
	}
	slog.Warn("no session key configured, generated an ephemeral one; sessions will not survive a restart",
		"hint", "run 'gatehouse keygen' and set GATEHOUSE_SESSION_KEY")
	return session.NewRandomKey(session.MinKeyBytes)
}

// runAutoMigration applies pending migrations before the server starts.
// Creating the migrator connects to the database, so it is retried like
// openDatabase.
func runAutoMigration(ctx context.Context, cfg config.DatabaseConfig, factory func(store.Dialect, string) (AutoMigrator, error)) error {
	dialect := store.Dialect(cfg.Driver)
	migrator, err := withConnectRetry(ctx, connectBackoff(cfg.ConnectRetries), func(context.Context) (AutoMigrator, error) {
		return factory(dialect, cfg.URL)
	})
	if err != nil {
		return oops.Code("MIGRATION_INIT_FAILED").With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			slog.Warn("error closing migrator, connection may leak", "error", closeErr)
		}
	}()

	if err := migrator.Up(); err != nil {
		return oops.Code("AUTO_MIGRATION_FAILED").With("operation", "apply migrations").Wrap(err)
	}
	slog.Info("database migrations applied", "dialect", string(dialect))
	return nil
}

// monitorServerErrors cancels ctx when the server reports an error.
// It exits on error, channel close, or context cancellation.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			errutil.LogErrorContext(ctx, slog.Default(), "server error, triggering shutdown", oops.With("server", serverName).Wrap(err))
			cancel()
		}
	case <-ctx.Done():
	}
}
