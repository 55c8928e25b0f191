// Package database provides connection setup, transaction scoping and driver
// error classification for the PostgreSQL and MySQL stores.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

// Config holds database configuration settings.
type Config struct {
	Driver             string
	ConnectionString   string
	MaxOpenConnections int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
	// ConnectTimeout is the total time spent retrying the initial ping.
	// Zero disables retries.
	ConnectTimeout time.Duration
}

// Connect opens the pool and waits until the database answers a ping. While
// ConnectTimeout has not elapsed, failed pings are retried with exponential
// backoff so the server can start alongside a database that is still booting.
func Connect(ctx context.Context, cfg Config, logger *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open(cfg.Driver, cfg.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := waitForPing(ctx, db, cfg.ConnectTimeout, logger); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

func waitForPing(ctx context.Context, db *sql.DB, timeout time.Duration, logger *slog.Logger) error {
	if timeout <= 0 {
		return db.PingContext(ctx)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 250 * time.Millisecond
	policy.MaxInterval = 5 * time.Second
	policy.MaxElapsedTime = timeout

	attempt := 0
	return backoff.RetryNotify(
		func() error {
			attempt++
			return db.PingContext(ctx)
		},
		backoff.WithContext(policy, ctx),
		func(err error, next time.Duration) {
			if logger != nil {
				logger.Warn("database not reachable yet",
					slog.Int("attempt", attempt),
					slog.Duration("retry_in", next),
					slog.Any("error", err),
				)
			}
		},
	)
}
