// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package storetest

import (
	"context"
	"time"

	"github.com/samber/oops"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/holomush/gatehouse/internal/store"
)

// Postgres is a disposable Postgres container.
type Postgres struct {
	URL       string
	container *postgres.PostgresContainer
}

// StartPostgres runs postgres:16-alpine and waits until it accepts
// connections. When migrate is true the embedded schema is applied.
func StartPostgres(ctx context.Context, migrate bool) (*Postgres, error) {
	c, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("gatehouse_test"),
		postgres.WithUsername("gatehouse"),
		postgres.WithPassword("gatehouse"),
		testcontainers.WithWaitStrategy(
			// postgres restarts once after initdb
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	if err != nil {
		return nil, oops.With("image", "postgres:16-alpine").Wrap(err)
	}
	pg := &Postgres{container: c}

	pg.URL, err = c.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, pg.failed(ctx, err)
	}
	if !migrate {
		return pg, nil
	}

	m, err := store.NewMigrator(store.DialectPostgres, pg.URL)
	if err != nil {
		return nil, pg.failed(ctx, err)
	}
	err = m.Up()
	if closeErr := m.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, pg.failed(ctx, err)
	}
	return pg, nil
}

func (p *Postgres) failed(ctx context.Context, err error) error {
	_ = p.container.Terminate(ctx)
	return err
}

// Terminate removes the container. A nil receiver is a no-op.
func (p *Postgres) Terminate(ctx context.Context) error {
	if p == nil {
		return nil
	}
	return p.container.Terminate(ctx)
}
