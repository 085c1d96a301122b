package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/officebot/core/logger"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationFiles embed.FS

// RunMigrations applies the embedded up migrations for cfg.Driver on db.
func RunMigrations(ctx context.Context, db *sqlx.DB, cfg Config) error {
	if db == nil {
		return errors.New("migrate: nil database")
	}
	if cfg.Driver == DriverPostgres {
		if err := WaitForPostgres(ctx, cfg.DSN(), 30*time.Second); err != nil {
			logger.Error(ctx, logger.CompMigrate, "db.migrate",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
			return fmt.Errorf("database not ready: %w", err)
		}
	}

	dir := path.Join("migrations", cfg.Driver)
	files := listMigrationFiles(dir)
	preview, truncated := logger.SummarizeStrings(files, 6)
	logger.Debug(ctx, logger.CompMigrate, "migrate.resolve",
		slog.String("driver", cfg.Driver),
		slog.Int("files_total", len(files)),
		slog.String("files_preview", preview),
		slog.Bool("files_truncated", truncated),
	)

	m, err := newMigrator(db, cfg.Driver, dir)
	if err != nil {
		logger.Error(ctx, logger.CompMigrate, "db.migrate",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}

	fromVer, _, _ := m.Version()
	start := time.Now()
	upErr := m.Up()
	took := logger.Took(start)

	switch {
	case upErr == nil:
	case errors.Is(upErr, migrate.ErrNoChange):
		logger.Info(ctx, logger.CompMigrate, "migrate.summary",
			slog.String("status", "skip"),
			slog.Uint64("from_ver", uint64(fromVer)),
			slog.Uint64("to_ver", uint64(fromVer)),
			slog.Int("files", 0),
			slog.Duration("duration", took),
		)
		return nil
	default:
		logger.Error(ctx, logger.CompMigrate, "migrate.apply",
			slog.String("status", "fail"),
			slog.String("err", upErr.Error()),
			slog.Duration("duration", took),
		)
		return fmt.Errorf("migration execution failed: %w", upErr)
	}

	toVer, _, _ := m.Version()
	logger.Info(ctx, logger.CompMigrate, "migrate.summary",
		slog.String("status", "ok"),
		slog.Uint64("from_ver", uint64(fromVer)),
		slog.Uint64("to_ver", uint64(toVer)),
		slog.Int("files", countApplied(files, uint64(fromVer), uint64(toVer))),
		slog.Duration("duration", took),
	)
	return nil
}

// newMigrator binds the embedded source to db. The returned migrator must not
// be closed: closing it would close db as well.
func newMigrator(db *sqlx.DB, driver, dir string) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationFiles, dir)
	if err != nil {
		return nil, fmt.Errorf("open migration source %s: %w", dir, err)
	}
	var target database.Driver
	switch driver {
	case DriverPostgres:
		target, err = postgres.WithInstance(db.DB, &postgres.Config{})
	case DriverSQLite:
		target, err = sqlite.WithInstance(db.DB, &sqlite.Config{})
	default:
		err = fmt.Errorf("unsupported driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	return migrate.NewWithInstance("iofs", src, driver, target)
}

func listMigrationFiles(dir string) []string {
	entries, err := fs.ReadDir(migrationFiles, dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

func parseVersion(name string) uint64 {
	head, _, _ := strings.Cut(name, "_")
	v, _ := strconv.ParseUint(head, 10, 64)
	return v
}

func countApplied(files []string, from, to uint64) int {
	n := 0
	for _, f := range files {
		if v := parseVersion(f); v > from && v <= to {
			n++
		}
	}
	return n
}
