// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/oklog/ulid/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/holomush/tokenauth/internal/auth"
	"github.com/holomush/tokenauth/internal/auth/postgres"
	authredis "github.com/holomush/tokenauth/internal/auth/redis"
	"github.com/holomush/tokenauth/internal/config"
	"github.com/holomush/tokenauth/internal/store"
)

// Deps contains injectable dependencies for the CLI.
// All fields with nil values will use their default implementations.
type Deps struct {
	// MigratorFactory creates a schema migrator from a database URL.
	// Default: store.NewMigrator
	MigratorFactory func(databaseURL string) (Migrator, error)

	// UserStoreOpener opens the user store selected by the configuration.
	// The returned function releases it.
	// Default: openUserStore
	UserStoreOpener func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (UserStore, func(), error)

	// Clock is the time source for token issuance and verification.
	// Default: auth.SystemClock
	Clock auth.Clock
}

// Migrator wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (version uint, dirty bool, err error)
	Force(version int) error
	Pending() ([]uint, error)
	Close() error
}

// UserStore is the repository surface the CLI needs. Every adapter in
// internal/auth implements it.
type UserStore interface {
	auth.UserRepository
	auth.PasswordUpdater
	SetActive(ctx context.Context, id ulid.ULID, active bool) error
}

func (d *Deps) withDefaults() *Deps {
	out := *d
	if out.MigratorFactory == nil {
		out.MigratorFactory = func(databaseURL string) (Migrator, error) {
			return store.NewMigrator(databaseURL)
		}
	}
	if out.UserStoreOpener == nil {
		out.UserStoreOpener = openUserStore
	}
	if out.Clock == nil {
		out.Clock = auth.SystemClock{}
	}
	return &out
}

// openUserStore connects to the configured backend. The memory backend is
// refused: each CLI invocation is a new process, so users created by one run
// would be gone in the next.
func openUserStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (UserStore, func(), error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		return nil, nil, oops.Code("CONFIG_INVALID").
			With("backend", cfg.Store.Backend).
			Errorf("memory store does not persist between runs; choose postgres or redis")

	case config.BackendPostgres:
		opts := store.DefaultConnectOptions()
		if cfg.Database.ConnectRetries > 0 {
			opts.Attempts = cfg.Database.ConnectRetries
		}
		opts.MaxConns = cfg.Database.MaxConns
		opts.Logger = logger
		pool, err := store.Connect(ctx, cfg.Database.URL, opts)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewUserRepository(pool), pool.Close, nil

	case config.BackendRedis:
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close() //nolint:errcheck // already failing
			return nil, nil, oops.Code("REDIS_CONNECT_FAILED").With("addr", cfg.Redis.Addr).Wrap(err)
		}
		closeFn := func() {
			if err := client.Close(); err != nil {
				logger.Warn("closing redis client", "error", err)
			}
		}
		return authredis.NewUserRepositoryWithPrefix(client, cfg.Redis.KeyPrefix), closeFn, nil

	default:
		return nil, nil, oops.Code("CONFIG_INVALID").
			With("backend", cfg.Store.Backend).
			Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
