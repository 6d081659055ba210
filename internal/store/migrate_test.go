// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package store

import (
	"errors"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/gatehouse/pkg/errutil"
)

var errMigratorClosed = errors.New("migrator is closed")

// stubMigrate returns canned results. Once closed, every call fails.
type stubMigrate struct {
	err      error
	version  uint
	dirty    bool
	srcErr   error
	dbErr    error
	closed   bool
	lastStep int
}

func (s *stubMigrate) result() error {
	if s.closed {
		return errMigratorClosed
	}
	return s.err
}

func (s *stubMigrate) Up() error   { return s.result() }
func (s *stubMigrate) Down() error { return s.result() }

func (s *stubMigrate) Steps(n int) error {
	s.lastStep = n
	return s.result()
}

func (s *stubMigrate) Version() (uint, bool, error) {
	if err := s.result(); err != nil {
		return 0, false, err
	}
	return s.version, s.dirty, nil
}

func (s *stubMigrate) Force(int) error { return s.result() }

func (s *stubMigrate) Close() (error, error) {
	s.closed = true
	return s.srcErr, s.dbErr
}

func stubMigrator(dialect Dialect, s *stubMigrate) *Migrator {
	return &Migrator{dialect: dialect, m: s}
}

func TestNewMigrator_Errors(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		url     string
		code    string
	}{
		{"unknown dialect", Dialect("mysql"), "mysql://localhost/db", "UNKNOWN_DIALECT"},
		{"unreachable postgres", DialectPostgres, "postgresql://localhost:1/gatehouse?connect_timeout=1", "MIGRATION_INIT_FAILED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMigrator(tt.dialect, tt.url)
			errutil.AssertErrorCode(t, err, tt.code)
			assert.NotContains(t, err.Error(), "unknown driver")
		})
	}
}

func TestMigrateURL(t *testing.T) {
	tests := []struct {
		dialect Dialect
		in      string
		want    string
	}{
		{DialectPostgres, "postgres://u:p@host/db", "pgx5://u:p@host/db"},
		{DialectPostgres, "postgresql://u:p@host/db", "pgx5://u:p@host/db"},
		{DialectPostgres, "pgx5://u:p@host/db", "pgx5://u:p@host/db"},
		{DialectSQLite, "file:gatehouse.db", "sqlite://gatehouse.db"},
		{DialectSQLite, "/var/lib/gatehouse.db", "sqlite:///var/lib/gatehouse.db"},
		{DialectSQLite, "sqlite://x.db", "sqlite://x.db"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, migrateURL(tt.dialect, tt.in))
		})
	}
}

func TestMigrator_Operations(t *testing.T) {
	ops := []struct {
		name string
		code string
		call func(*Migrator) error
	}{
		{"up", "MIGRATION_UP_FAILED", (*Migrator).Up},
		{"down", "MIGRATION_DOWN_FAILED", (*Migrator).Down},
		{"steps", "MIGRATION_STEPS_FAILED", func(m *Migrator) error { return m.Steps(-1) }},
	}
	for _, op := range ops {
		t.Run(op.name, func(t *testing.T) {
			require.NoError(t, op.call(stubMigrator(DialectSQLite, &stubMigrate{})))

			err := op.call(stubMigrator(DialectSQLite, &stubMigrate{err: migrate.ErrNoChange}))
			require.NoError(t, err, "no change is success")

			err = op.call(stubMigrator(DialectSQLite, &stubMigrate{err: errors.New("database is locked")}))
			errutil.AssertErrorCode(t, err, op.code)
		})
	}
}

func TestMigrator_StepsPassesCount(t *testing.T) {
	stub := &stubMigrate{err: migrate.ErrNoChange}
	require.NoError(t, stubMigrator(DialectSQLite, stub).Steps(0))
	assert.Zero(t, stub.lastStep)

	stub.err = errors.New("no migration")
	err := stubMigrator(DialectSQLite, stub).Steps(3)
	errutil.AssertErrorContext(t, err, "steps", 3)
	assert.Equal(t, 3, stub.lastStep)
}

func TestMigrator_Version(t *testing.T) {
	tests := []struct {
		name      string
		stub      stubMigrate
		wantVer   uint
		wantDirty bool
		wantCode  string
	}{
		{name: "clean", stub: stubMigrate{version: 7}, wantVer: 7},
		{name: "dirty", stub: stubMigrate{version: 5, dirty: true}, wantVer: 5, wantDirty: true},
		{name: "never migrated", stub: stubMigrate{err: migrate.ErrNilVersion}},
		{name: "driver error", stub: stubMigrate{err: errors.New("connection lost")}, wantCode: "MIGRATION_VERSION_FAILED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, dirty, err := stubMigrator(DialectSQLite, &tt.stub).Version()
			if tt.wantCode != "" {
				errutil.AssertErrorCode(t, err, tt.wantCode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantVer, version)
			assert.Equal(t, tt.wantDirty, dirty)
		})
	}
}

func TestMigrator_Force(t *testing.T) {
	require.NoError(t, stubMigrator(DialectSQLite, &stubMigrate{}).Force(5))

	err := stubMigrator(DialectSQLite, &stubMigrate{}).Force(-1)
	errutil.AssertErrorCode(t, err, "INVALID_VERSION")

	err = stubMigrator(DialectSQLite, &stubMigrate{err: errors.New("bad version")}).Force(5)
	errutil.AssertErrorCode(t, err, "MIGRATION_FORCE_FAILED")
	errutil.AssertErrorContext(t, err, "version", 5)
}

func TestMigrator_Close(t *testing.T) {
	srcErr := errors.New("source close failed")
	dbErr := errors.New("db close failed")

	tests := []struct {
		name   string
		srcErr error
		dbErr  error
	}{
		{"source", srcErr, nil},
		{"database", nil, dbErr},
		{"both", srcErr, dbErr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := stubMigrator(DialectSQLite, &stubMigrate{srcErr: tt.srcErr, dbErr: tt.dbErr}).Close()
			errutil.AssertErrorCode(t, err, "MIGRATION_CLOSE_FAILED")
			errutil.AssertErrorContext(t, err, "source_failed", tt.srcErr != nil)
			errutil.AssertErrorContext(t, err, "database_failed", tt.dbErr != nil)
			if tt.srcErr != nil {
				assert.ErrorIs(t, err, srcErr)
			}
			if tt.dbErr != nil {
				assert.ErrorIs(t, err, dbErr)
			}
		})
	}

	require.NoError(t, stubMigrator(DialectSQLite, &stubMigrate{}).Close())
}

func TestMigrator_PendingMigrations(t *testing.T) {
	pending, err := stubMigrator(DialectSQLite, &stubMigrate{err: migrate.ErrNilVersion}).PendingMigrations()
	require.NoError(t, err)
	assert.Equal(t, []uint{1}, pending)

	pending, err = stubMigrator(DialectPostgres, &stubMigrate{version: 1}).PendingMigrations()
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, err = stubMigrator(DialectSQLite, &stubMigrate{err: errors.New("connection lost")}).PendingMigrations()
	errutil.AssertErrorCode(t, err, "MIGRATION_VERSION_FAILED")
	errutil.AssertErrorContext(t, err, "operation", "get pending migrations")
}

func versionErr(m *Migrator) error {
	_, _, err := m.Version()
	return err
}

func pendingErr(m *Migrator) error {
	_, err := m.PendingMigrations()
	return err
}

func TestMigrator_FailsAfterClose(t *testing.T) {
	calls := map[string]func(*Migrator) error{
		"up":      (*Migrator).Up,
		"down":    (*Migrator).Down,
		"steps":   func(m *Migrator) error { return m.Steps(1) },
		"force":   func(m *Migrator) error { return m.Force(1) },
		"version": versionErr,
		"pending": pendingErr,
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			m := stubMigrator(DialectSQLite, &stubMigrate{})
			require.NoError(t, m.Close())
			assert.ErrorIs(t, call(m), errMigratorClosed)
		})
	}
}

func TestMigrationName(t *testing.T) {
	for _, dialect := range []Dialect{DialectSQLite, DialectPostgres} {
		t.Run(string(dialect), func(t *testing.T) {
			name, err := MigrationName(dialect, 1)
			require.NoError(t, err)
			assert.Equal(t, "000001_create_users", name)

			name, err = MigrationName(dialect, 99999)
			require.NoError(t, err)
			assert.Empty(t, name)
		})
	}
}

func TestMigrationVersions_DialectsAgree(t *testing.T) {
	sqliteVersions, err := migrationVersions(DialectSQLite)
	require.NoError(t, err)
	postgresVersions, err := migrationVersions(DialectPostgres)
	require.NoError(t, err)

	assert.NotEmpty(t, sqliteVersions)
	assert.Equal(t, sqliteVersions, postgresVersions, "every schema change ships for both dialects")
}
