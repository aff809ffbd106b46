// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads tokenauth configuration from a YAML file, command-line
// flags and a small set of environment variables.
package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/holomush/tokenauth/internal/auth"
)

// Environment variables consulted when the corresponding key is unset.
const (
	EnvSecretKey   = "TOKENAUTH_SECRET_KEY"
	EnvDatabaseURL = "DATABASE_URL"
	EnvRedisAddr   = "REDIS_ADDR"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config is the complete tokenauth configuration.
type Config struct {
	Auth     AuthConfig     `koanf:"auth"`
	Hasher   HasherConfig   `koanf:"hasher"`
	Store    StoreConfig    `koanf:"store"`
	Database DatabaseConfig `koanf:"database"`
	Redis    RedisConfig    `koanf:"redis"`
	Log      LogConfig      `koanf:"log"`
}

// AuthConfig holds token settings.
type AuthConfig struct {
	SecretKey     string `koanf:"secret_key"`
	Algorithm     string `koanf:"algorithm"`
	AccessMinutes int    `koanf:"access_minutes"`
	RefreshDays   int    `koanf:"refresh_days"`
	Issuer        string `koanf:"issuer"`
}

// HasherConfig holds argon2id cost parameters.
type HasherConfig struct {
	Time    uint32 `koanf:"time"`
	Memory  uint32 `koanf:"memory"`
	Threads uint8  `koanf:"threads"`
	SaltLen uint32 `koanf:"salt_len"`
	KeyLen  uint32 `koanf:"key_len"`
}

// StoreConfig selects the user store.
type StoreConfig struct {
	Backend string `koanf:"backend"`
}

// DatabaseConfig configures the PostgreSQL store.
type DatabaseConfig struct {
	URL            string `koanf:"url"`
	ConnectRetries uint64 `koanf:"connect_retries"`
	MaxConns       int32  `koanf:"max_conns"`
}

// RedisConfig configures the Redis store.
type RedisConfig struct {
	Addr      string `koanf:"addr"`
	Password  string `koanf:"password"`
	DB        int    `koanf:"db"`
	KeyPrefix string `koanf:"key_prefix"`
}

// LogConfig configures logging.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// Default returns the built-in configuration.
func Default() Config {
	p := auth.DefaultArgon2Params
	return Config{
		Auth: AuthConfig{
			Algorithm:     auth.DefaultAlgorithm,
			AccessMinutes: auth.DefaultAccessMinutes,
			RefreshDays:   auth.DefaultRefreshDays,
		},
		Hasher: HasherConfig{
			Time:    p.Time,
			Memory:  p.Memory,
			Threads: p.Threads,
			SaltLen: p.SaltLen,
			KeyLen:  p.KeyLen,
		},
		Store:    StoreConfig{Backend: BackendPostgres},
		Database: DatabaseConfig{ConnectRetries: 8},
		Redis:    RedisConfig{Addr: "localhost:6379", KeyPrefix: "tokenauth:"},
		Log:      LogConfig{Format: "json", Level: "info"},
	}
}

// RegisterFlags adds the configuration flags to fs. Flag names are the
// dotted configuration keys, so they layer directly over the file.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("auth.algorithm", d.Auth.Algorithm, "token signing algorithm (HS256, HS384, HS512)")
	fs.Int("auth.access_minutes", d.Auth.AccessMinutes, "access token lifetime in minutes")
	fs.Int("auth.refresh_days", d.Auth.RefreshDays, "refresh token lifetime in days")
	fs.String("auth.issuer", d.Auth.Issuer, "token issuer claim")
	fs.String("store.backend", d.Store.Backend, "user store backend (postgres, redis)")
	fs.String("database.url", d.Database.URL, "PostgreSQL connection URL")
	fs.String("redis.addr", d.Redis.Addr, "Redis address")
	fs.String("log.format", d.Log.Format, "log format (json, text)")
	fs.String("log.level", d.Log.Level, "log level (debug, info, warn, error)")
}

// Load builds the configuration. Precedence, highest first: flags set on
// the command line, the YAML file at path, environment fallbacks, flag
// defaults, built-in defaults. An empty path skips the file.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("path", path).
				Wrapf(err, "read config file")
		}
	}

	applyEnv(k)

	if fs != nil {
		if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").Wrapf(err, "read flags")
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").Wrapf(err, "decode config")
	}
	cfg.Store.Backend = strings.ToLower(cfg.Store.Backend)
	return &cfg, nil
}

// applyEnv fills keys the file left unset from the environment.
func applyEnv(k *koanf.Koanf) {
	fallbacks := map[string]string{
		"auth.secret_key": EnvSecretKey,
		"database.url":    EnvDatabaseURL,
		"redis.addr":      EnvRedisAddr,
	}
	for key, env := range fallbacks {
		if k.String(key) != "" {
			continue
		}
		if v := os.Getenv(env); v != "" {
			_ = k.Set(key, v) //nolint:errcheck // Set on a plain map cannot fail
		}
	}
}

// Validate reports configuration errors that would prevent startup.
func (c *Config) Validate() error {
	if _, err := c.AuthSettings(); err != nil {
		return err
	}
	if _, err := c.HasherParams(); err != nil {
		return err
	}
	switch c.Store.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Database.URL == "" {
			return oops.Code("CONFIG_INVALID").
				With("backend", c.Store.Backend).
				Errorf("database.url or %s is required for the postgres store", EnvDatabaseURL)
		}
	case BackendRedis:
		if c.Redis.Addr == "" {
			return oops.Code("CONFIG_INVALID").
				With("backend", c.Store.Backend).
				Errorf("redis.addr is required for the redis store")
		}
	default:
		return oops.Code("CONFIG_INVALID").
			With("backend", c.Store.Backend).
			Errorf("unknown store backend %q", c.Store.Backend)
	}
	return nil
}

// AuthSettings converts the auth section to validated auth.Settings.
func (c *Config) AuthSettings() (auth.Settings, error) {
	s := auth.Settings{
		SecretKey:     []byte(c.Auth.SecretKey),
		Algorithm:     c.Auth.Algorithm,
		AccessMinutes: c.Auth.AccessMinutes,
		RefreshDays:   c.Auth.RefreshDays,
		Issuer:        c.Auth.Issuer,
	}
	if err := s.Validate(); err != nil {
		return auth.Settings{}, oops.Code("CONFIG_INVALID").With("section", "auth").Wrap(err)
	}
	return s, nil
}

// HasherParams returns the configured argon2id parameters, validated.
func (c *Config) HasherParams() (auth.Argon2Params, error) {
	params := auth.Argon2Params{
		Time:    c.Hasher.Time,
		Memory:  c.Hasher.Memory,
		Threads: c.Hasher.Threads,
		SaltLen: c.Hasher.SaltLen,
		KeyLen:  c.Hasher.KeyLen,
	}
	if err := params.Validate(); err != nil {
		return auth.Argon2Params{}, oops.Code("CONFIG_INVALID").With("section", "hasher").Wrap(err)
	}
	return params, nil
}
