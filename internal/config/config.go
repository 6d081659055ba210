// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads gatehouse settings. Sources are layered with later
// ones winning: built-in defaults, an optional YAML file, GATEHOUSE_*
// environment variables, and finally command-line flags the user set.
// Config files are checked against a generated JSON Schema before decoding.
package config

import (
	"slices"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
	"golang.org/x/crypto/bcrypt"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "GATEHOUSE_"

// Error codes returned by this package.
const (
	CodeLoad    = "CONFIG_LOAD_FAILED"
	CodeInvalid = "CONFIG_INVALID"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is the complete runtime configuration.
type Config struct {
	ListenAddr  string `koanf:"listen_addr" env:"LISTEN_ADDR"`
	MetricsAddr string `koanf:"metrics_addr" env:"METRICS_ADDR"`

	Database DatabaseConfig `koanf:"database" envPrefix:"DATABASE_"`
	Session  SessionConfig  `koanf:"session" envPrefix:"SESSION_"`
	Password PasswordConfig `koanf:"password" envPrefix:"PASSWORD_"`
	Log      LogConfig      `koanf:"log" envPrefix:"LOG_"`
	OTel     OTelConfig     `koanf:"otel" envPrefix:"OTEL_"`
}

// DatabaseConfig selects and locates the user store.
type DatabaseConfig struct {
	Driver      string `koanf:"driver" env:"DRIVER" jsonschema:"enum=sqlite,enum=postgres"`
	URL         string `koanf:"url" env:"URL"`
	AutoMigrate bool   `koanf:"auto_migrate" env:"AUTO_MIGRATE"`

	// ConnectRetries bounds startup connection attempts after the first.
	// Zero fails on the first error.
	ConnectRetries int `koanf:"connect_retries" env:"CONNECT_RETRIES" jsonschema:"minimum=0"`
}

// SessionConfig controls session tokens and the cookie carrying them.
type SessionConfig struct {
	// Key is hex or base64 signing key material. Empty means a fresh key
	// per process.
	Key          string        `koanf:"key" env:"KEY"`
	TTL          time.Duration `koanf:"ttl" env:"TTL"`
	CookieSecure bool          `koanf:"cookie_secure" env:"COOKIE_SECURE"`
}

// PasswordConfig tunes password hashing.
type PasswordConfig struct {
	BcryptCost int `koanf:"bcrypt_cost" env:"BCRYPT_COST" jsonschema:"minimum=4,maximum=31"`
}

// LogConfig configures the default logger.
type LogConfig struct {
	Format string `koanf:"format" env:"FORMAT" jsonschema:"enum=json,enum=text"`
	Level  string `koanf:"level" env:"LEVEL" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
}

// OTelConfig configures trace export. An empty endpoint disables it.
type OTelConfig struct {
	Endpoint string `koanf:"endpoint" env:"ENDPOINT"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ListenAddr:  ":8080",
		MetricsAddr: "127.0.0.1:9100",
		Database: DatabaseConfig{
			Driver:         DriverSQLite,
			URL:            "file:gatehouse.db",
			AutoMigrate:    true,
			ConnectRetries: 5,
		},
		Session: SessionConfig{
			TTL: 24 * time.Hour,
		},
		Password: PasswordConfig{
			BcryptCost: 12,
		},
		Log: LogConfig{
			Format: "json",
			Level:  "info",
		},
	}
}

// flagKeys maps command-line flag names onto configuration keys.
var flagKeys = map[string]string{
	"listen-addr":        "listen_addr",
	"metrics-addr":       "metrics_addr",
	"db-driver":          "database.driver",
	"db-url":             "database.url",
	"auto-migrate":       "database.auto_migrate",
	"db-connect-retries": "database.connect_retries",
	"session-ttl":        "session.ttl",
	"cookie-secure":      "session.cookie_secure",
	"bcrypt-cost":        "password.bcrypt_cost",
	"log-format":         "log.format",
	"log-level":          "log.level",
	"otel-endpoint":      "otel.endpoint",
}

// RegisterFlags adds the overridable settings to fs. Defaults shown in help
// come from Default; they only apply when no other source sets a value.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("listen-addr", d.ListenAddr, "web listen address")
	fs.String("metrics-addr", d.MetricsAddr, "metrics/health HTTP address (empty = disabled)")
	fs.String("db-driver", d.Database.Driver, "database driver (sqlite or postgres)")
	fs.String("db-url", d.Database.URL, "database URL or SQLite path")
	fs.Bool("auto-migrate", d.Database.AutoMigrate, "apply pending migrations on start")
	fs.Int("db-connect-retries", d.Database.ConnectRetries, "extra database connection attempts on start")
	fs.Duration("session-ttl", d.Session.TTL, "session lifetime")
	fs.Bool("cookie-secure", d.Session.CookieSecure, "mark the session cookie Secure")
	fs.Int("bcrypt-cost", d.Password.BcryptCost, "bcrypt work factor")
	fs.String("log-format", d.Log.Format, "log format (json or text)")
	fs.String("log-level", d.Log.Level, "log level (debug, info, warn, error)")
	fs.String("otel-endpoint", d.OTel.Endpoint, "OTLP/HTTP trace endpoint (empty = disabled)")
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// empty), the environment, and any flags in fs that were explicitly set.
// fs may be nil. The result is validated.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	cfg := Default()

	if path != "" {
		k := koanf.New(".")
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code(CodeLoad).With("path", path).Wrapf(err, "read config file")
		}
		if err := ValidateDocument(k.Raw()); err != nil {
			return nil, oops.With("path", path).Wrap(err)
		}
		if err := k.Unmarshal("", &cfg); err != nil {
			return nil, oops.Code(CodeLoad).With("path", path).Wrapf(err, "decode config file")
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, oops.Code(CodeLoad).Wrapf(err, "read environment")
	}

	if fs != nil {
		k := koanf.New(".")
		provider := posflag.ProviderWithFlag(fs, ".", nil, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(fs, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code(CodeLoad).Wrapf(err, "read flags")
		}
		if err := k.Unmarshal("", &cfg); err != nil {
			return nil, oops.Code(CodeLoad).Wrapf(err, "decode flags")
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var (
	logFormats = []string{"json", "text"}
	logLevels  = []string{"debug", "info", "warn", "error"}
)

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	invalid := func(field string, value any, msg string) error {
		return oops.Code(CodeInvalid).With("field", field).With("value", value).Errorf("%s %s", field, msg)
	}

	if c.ListenAddr == "" {
		return invalid("listen_addr", c.ListenAddr, "is required")
	}
	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return invalid("database.driver", c.Database.Driver, "must be 'sqlite' or 'postgres'")
	}
	if c.Database.URL == "" {
		return invalid("database.url", c.Database.URL, "is required")
	}
	if c.Database.ConnectRetries < 0 {
		return invalid("database.connect_retries", c.Database.ConnectRetries, "must not be negative")
	}
	if c.Session.TTL <= 0 {
		return invalid("session.ttl", c.Session.TTL, "must be positive")
	}
	if c.Password.BcryptCost < bcrypt.MinCost || c.Password.BcryptCost > bcrypt.MaxCost {
		return invalid("password.bcrypt_cost", c.Password.BcryptCost, "is out of range")
	}
	if !slices.Contains(logFormats, c.Log.Format) {
		return invalid("log.format", c.Log.Format, "must be 'json' or 'text'")
	}
	if !slices.Contains(logLevels, c.Log.Level) {
		return invalid("log.level", c.Log.Level, "must be one of debug, info, warn, error")
	}
	return nil
}
