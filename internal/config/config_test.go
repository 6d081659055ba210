// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/gatehouse/internal/config"
	"github.com/holomush/gatehouse/pkg/errutil"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gatehouse.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("", newFlags(t))
	require.NoError(t, err)

	assert.Equal(t, config.Default(), *cfg)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, config.DriverSQLite, cfg.Database.Driver)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
	assert.Equal(t, 12, cfg.Password.BcryptCost)
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, `
listen_addr: ":9090"
database:
  driver: postgres
  url: postgres://gatehouse@localhost/gatehouse
session:
  ttl: 2h
  cookie_secure: true
log:
  level: debug
`)

	cfg, err := config.Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, config.DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "postgres://gatehouse@localhost/gatehouse", cfg.Database.URL)
	assert.True(t, cfg.Database.AutoMigrate, "keys absent from the file keep their defaults")
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
	assert.True(t, cfg.Session.CookieSecure)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_Precedence(t *testing.T) {
	path := writeFile(t, `
listen_addr: ":9090"
metrics_addr: ":9191"
log:
  format: text
`)
	t.Setenv("GATEHOUSE_LISTEN_ADDR", ":7070")
	t.Setenv("GATEHOUSE_METRICS_ADDR", ":7171")
	t.Setenv("GATEHOUSE_SESSION_KEY", "from-env")
	t.Setenv("GATEHOUSE_DATABASE_AUTO_MIGRATE", "false")

	cfg, err := config.Load(path, newFlags(t, "--listen-addr", ":6060"))
	require.NoError(t, err)

	assert.Equal(t, ":6060", cfg.ListenAddr, "flag beats env")
	assert.Equal(t, ":7171", cfg.MetricsAddr, "env beats file")
	assert.Equal(t, "text", cfg.Log.Format, "file beats default")
	assert.Equal(t, "from-env", cfg.Session.Key)
	assert.False(t, cfg.Database.AutoMigrate)
}

func TestLoad_UnsetFlagsDoNotOverride(t *testing.T) {
	t.Setenv("GATEHOUSE_PASSWORD_BCRYPT_COST", "10")

	cfg, err := config.Load("", newFlags(t, "--session-ttl", "30m", "--db-connect-retries", "0"))
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.Database.ConnectRetries)

	assert.Equal(t, 10, cfg.Password.BcryptCost)
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, config.CodeLoad)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := config.Load(writeFile(t, "listen_addr: [unterminated"), nil)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, config.CodeLoad)
	})

	t.Run("bad env value", func(t *testing.T) {
		t.Setenv("GATEHOUSE_SESSION_TTL", "forever")
		_, err := config.Load("", nil)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, config.CodeLoad)
	})

	t.Run("invalid result", func(t *testing.T) {
		_, err := config.Load("", newFlags(t, "--db-driver", "mysql"))
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, config.CodeInvalid)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		field  string
	}{
		{"empty listen addr", func(c *config.Config) { c.ListenAddr = "" }, "listen_addr"},
		{"unknown driver", func(c *config.Config) { c.Database.Driver = "mysql" }, "database.driver"},
		{"empty url", func(c *config.Config) { c.Database.URL = "" }, "database.url"},
		{"negative retries", func(c *config.Config) { c.Database.ConnectRetries = -1 }, "database.connect_retries"},
		{"zero ttl", func(c *config.Config) { c.Session.TTL = 0 }, "session.ttl"},
		{"cost too low", func(c *config.Config) { c.Password.BcryptCost = 3 }, "password.bcrypt_cost"},
		{"cost too high", func(c *config.Config) { c.Password.BcryptCost = 32 }, "password.bcrypt_cost"},
		{"bad log format", func(c *config.Config) { c.Log.Format = "xml" }, "log.format"},
		{"bad log level", func(c *config.Config) { c.Log.Level = "trace" }, "log.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, config.CodeInvalid)
			errutil.AssertErrorContext(t, err, "field", tt.field)
		})
	}

	t.Run("empty metrics addr is allowed", func(t *testing.T) {
		cfg := config.Default()
		cfg.MetricsAddr = ""
		assert.NoError(t, cfg.Validate())
	})
}
