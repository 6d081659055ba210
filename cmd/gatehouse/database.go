// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sethvargo/go-retry"

	"github.com/holomush/gatehouse/internal/auth"
	"github.com/holomush/gatehouse/internal/auth/postgres"
	"github.com/holomush/gatehouse/internal/auth/sqlite"
	"github.com/holomush/gatehouse/internal/config"
	"github.com/holomush/gatehouse/internal/store"
	"github.com/holomush/gatehouse/pkg/errutil"
)

// connectBackoff paces connection attempts while the database comes up.
var connectBackoff = func(retries int) retry.Backoff {
	b := retry.NewExponential(250 * time.Millisecond)
	b = retry.WithCappedDuration(5*time.Second, b)
	return retry.WithMaxRetries(uint64(max(retries, 0)), b)
}

// openDatabase connects to the driver named in cfg, retrying connection
// failures up to cfg.ConnectRetries times.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (Database, error) {
	dialect := store.Dialect(cfg.Driver)
	if err := dialect.Validate(); err != nil {
		return nil, err
	}

	if dialect == store.DialectPostgres {
		pool, err := withConnectRetry(ctx, connectBackoff(cfg.ConnectRetries), func(ctx context.Context) (*pgxpool.Pool, error) {
			return store.OpenPostgres(ctx, cfg.URL)
		})
		if err != nil {
			return nil, err
		}
		return &postgresDatabase{pool: pool, users: postgres.NewUserRepository(pool)}, nil
	}

	db, err := withConnectRetry(ctx, connectBackoff(cfg.ConnectRetries), func(ctx context.Context) (*sql.DB, error) {
		return store.OpenSQLite(ctx, cfg.URL)
	})
	if err != nil {
		return nil, err
	}
	return &sqliteDatabase{db: db, users: sqlite.NewUserRepository(db)}, nil
}

// unreachableCodes mark errors from a database that may still be starting.
// golang-migrate pings while initialising, so MIGRATION_INIT_FAILED is one.
var unreachableCodes = map[string]bool{
	"DB_CONNECT_FAILED":     true,
	"MIGRATION_INIT_FAILED": true,
}

// withConnectRetry calls open until it succeeds, fails with anything other
// than a connection error, or the backoff gives up.
func withConnectRetry[T any](ctx context.Context, b retry.Backoff, open func(context.Context) (T, error)) (T, error) {
	var result T
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		v, err := open(ctx)
		if err != nil {
			if unreachableCodes[errutil.Code(err)] {
				slog.WarnContext(ctx, "database not reachable, retrying", "error", err)
				return retry.RetryableError(err)
			}
			return err
		}
		result = v
		return nil
	})
	//nolint:wrapcheck // open errors already carry codes
	return result, err
}

type postgresDatabase struct {
	pool  *pgxpool.Pool
	users *postgres.UserRepository
}

func (d *postgresDatabase) Users() auth.UserRepository { return d.users }

func (d *postgresDatabase) Ping(ctx context.Context) error {
	//nolint:wrapcheck // readiness reports the raw driver error
	return d.pool.Ping(ctx)
}

func (d *postgresDatabase) Close() error {
	d.pool.Close()
	return nil
}

type sqliteDatabase struct {
	db    *sql.DB
	users *sqlite.UserRepository
}

func (d *sqliteDatabase) Users() auth.UserRepository { return d.users }

func (d *sqliteDatabase) Ping(ctx context.Context) error {
	//nolint:wrapcheck // readiness reports the raw driver error
	return d.db.PingContext(ctx)
}

func (d *sqliteDatabase) Close() error {
	//nolint:wrapcheck // shutdown path
	return d.db.Close()
}
