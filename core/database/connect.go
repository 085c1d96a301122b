package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/m3rciful/officebot/core/logger"
)

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Connect opens the configured database, sizes the pool and verifies connectivity.
// cfg must be normalized.
func Connect(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	target := []slog.Attr{slog.String("driver", cfg.Driver)}
	if cfg.Driver == DriverSQLite {
		target = append(target, slog.String("path", cfg.Path))
	} else {
		target = append(target,
			slog.String("host", cfg.Host),
			slog.String("port", cfg.Port),
			slog.String("db", cfg.Name),
		)
	}

	start := time.Now()
	db, err := sqlx.ConnectContext(ctx, cfg.Driver, cfg.DSN())
	took := logger.Took(start)
	if err != nil {
		logger.Error(ctx, logger.CompDB, "db.connect", append(target,
			slog.String("status", "fail"),
			slog.Duration("duration", took),
			slog.String("err", err.Error()),
		)...)
		return nil, fmt.Errorf("db connect: %w", err)
	}

	pool := cfg.MaxConnections
	if cfg.Driver == DriverSQLite {
		// SQLite serializes writers; one connection keeps them in order.
		pool = 1
	}
	db.SetMaxOpenConns(pool)
	db.SetMaxIdleConns(pool)

	logger.Info(ctx, logger.CompDB, "db.connect", append(target,
		slog.String("status", "ok"),
		slog.Int("pool_open", pool),
		slog.Duration("duration", took),
	)...)
	return db, nil
}

// WaitForPostgres pings dsn until the server answers or timeout passes.
func WaitForPostgres(ctx context.Context, dsn string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		db, err := sql.Open(DriverPostgres, dsn)
		if err == nil {
			err = db.PingContext(ctx)
			_ = db.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timeout reached waiting for database: %w", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}
