// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package store connects to and migrates the PostgreSQL user store.
package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// ConnectOptions control how Connect waits for the database.
type ConnectOptions struct {
	// Attempts is the number of pings made before giving up. Zero means 1.
	Attempts uint64
	// InitialBackoff is the first delay between pings; later delays double.
	InitialBackoff time.Duration
	// MaxBackoff caps a single delay.
	MaxBackoff time.Duration
	// MaxConns overrides the pool size when positive.
	MaxConns int32
	// Logger receives a line per failed attempt. Nil means slog.Default().
	Logger *slog.Logger
}

// DefaultConnectOptions waits roughly half a minute for a starting database.
func DefaultConnectOptions() ConnectOptions {
	return ConnectOptions{
		Attempts:       8,
		InitialBackoff: 250 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
	}
}

// Connect opens a pgx pool for databaseURL and pings it until it answers or
// the attempts run out. A malformed URL fails without retrying.
func Connect(ctx context.Context, databaseURL string, opts ConnectOptions) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").With("operation", "parse database url").Wrap(err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	attempt := 0
	err = retry.Do(ctx, connectBackoff(opts), func(ctx context.Context) error {
		attempt++
		if pingErr := pool.Ping(ctx); pingErr != nil {
			logger.WarnContext(ctx, "database not ready",
				"attempt", attempt,
				"host", cfg.ConnConfig.Host,
				"error", pingErr)
			return retry.RetryableError(pingErr)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").
			With("operation", "ping database").
			With("attempts", attempt).
			Wrap(err)
	}

	logger.DebugContext(ctx, "database connected", "host", cfg.ConnConfig.Host, "attempts", attempt)
	return pool, nil
}

func connectBackoff(opts ConnectOptions) retry.Backoff {
	initial := opts.InitialBackoff
	if initial <= 0 {
		initial = 100 * time.Millisecond
	}
	b := retry.NewExponential(initial)
	if opts.MaxBackoff > 0 {
		b = retry.WithCappedDuration(opts.MaxBackoff, b)
	}
	retries := uint64(0)
	if opts.Attempts > 1 {
		retries = opts.Attempts - 1
	}
	return retry.WithMaxRetries(retries, b)
}
