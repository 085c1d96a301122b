package roster

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/officebot/core/logger"
)

// Backend names accepted by Open.
const (
	BackendFile = "file"
	BackendBolt = "bolt"
	BackendSQL  = "sql"
)

// Open builds the store for backend. path is used by the file and bolt
// backends, db by the sql backend.
func Open(ctx context.Context, backend, path string, db *sqlx.DB) (Store, error) {
	var (
		s   Store
		err error
	)
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendFile:
		backend = BackendFile
		s, err = OpenFile(path)
	case BackendBolt:
		backend = BackendBolt
		s, err = OpenBolt(path)
	case BackendSQL:
		backend = BackendSQL
		s, err = NewSQL(db)
	default:
		err = fmt.Errorf("roster: unknown backend %q", backend)
	}
	if err != nil {
		logger.Error(ctx, logger.CompRoster, "roster.open",
			slog.String("backend", backend),
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return nil, err
	}
	logger.Info(ctx, logger.CompRoster, "roster.open",
		slog.String("backend", backend),
		slog.String("path", path),
		slog.String("status", "ok"),
	)
	return s, nil
}

// Seed makes sure every configured group exists with its display text.
// groups maps group keys to display text.
func Seed(ctx context.Context, s Store, groups map[string]string) error {
	for key, text := range groups {
		if !ValidKey(key) {
			return fmt.Errorf("roster: group key %q must end with %s", key, GroupMarker)
		}
		if err := s.EnsureGroup(ctx, key, text); err != nil {
			return err
		}
	}
	logger.Debug(ctx, logger.CompRoster, "roster.seed", slog.Int("groups", len(groups)))
	return nil
}
