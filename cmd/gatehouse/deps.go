// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"io"
	"net"

	"github.com/holomush/gatehouse/internal/auth"
	"github.com/holomush/gatehouse/internal/config"
	"github.com/holomush/gatehouse/internal/observability"
	"github.com/holomush/gatehouse/internal/store"
	"github.com/holomush/gatehouse/internal/telemetry"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// DatabaseOpener connects to the configured user store.
	// Default: openDatabase
	DatabaseOpener func(ctx context.Context, cfg config.DatabaseConfig) (Database, error)

	// MigratorFactory creates a migrator for auto-migration.
	// Default: store.NewMigrator
	MigratorFactory func(dialect store.Dialect, url string) (AutoMigrator, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer

	// TelemetrySetup installs trace export.
	// Default: telemetry.Setup
	TelemetrySetup func(ctx context.Context, service, version, endpoint string) (telemetry.ShutdownFunc, error)

	// ListenerFactory creates the web listener.
	// Default: net.Listen
	ListenerFactory func(network, address string) (net.Listener, error)

	// LogWriter receives log output.
	// Default: os.Stderr
	LogWriter io.Writer
}

// Database is an open user store.
type Database interface {
	Users() auth.UserRepository
	Ping(ctx context.Context) error
	Close() error
}

// AutoMigrator is the subset of store.Migrator used on startup.
type AutoMigrator interface {
	Up() error
	Close() error
}

// Migrator is the subset of store.Migrator used by the migrate command.
type Migrator interface {
	AutoMigrator
	Down() error
	Version() (version uint, dirty bool, err error)
	Force(version int) error
	PendingMigrations() ([]uint, error)
}

// ObservabilityServer interface wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}
