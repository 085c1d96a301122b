package roster

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/m3rciful/officebot/core/logger"
)

// FileStore keeps the roster in a single JSON or YAML document.
// The document is read on every call so manual edits are picked up, and
// rewritten through a temporary file and rename so readers never see a
// partial write.
type FileStore struct {
	path string
	yaml bool
	mu   sync.Mutex
}

// OpenFile returns a store for path. Files ending in .yaml or .yml are YAML,
// anything else is JSON. A missing file is treated as an empty roster.
func OpenFile(path string) (*FileStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("roster: file path is required")
	}
	ext := strings.ToLower(filepath.Ext(path))
	return &FileStore{path: filepath.Clean(path), yaml: ext == ".yaml" || ext == ".yml"}, nil
}

// Load reads the whole document.
func (s *FileStore) Load(ctx context.Context) (Roster, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// Group returns one group.
func (s *FileStore) Group(ctx context.Context, key string) (Group, error) {
	r, err := s.Load(ctx)
	if err != nil {
		return Group{}, err
	}
	g, ok := r[key]
	if !ok {
		return Group{}, fmt.Errorf("%w: %s", ErrUnknownGroup, key)
	}
	return g, nil
}

// Subscribe adds or replaces the member under its chat id.
func (s *FileStore) Subscribe(ctx context.Context, key string, m Member) error {
	return s.update(ctx, func(r Roster) error {
		g, ok := r[key]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownGroup, key)
		}
		if g.Members == nil {
			g.Members = make(map[string]Member)
		}
		g.Members[MemberKey(m.ChatID)] = m
		r[key] = g
		return nil
	})
}

// EnsureGroup creates the group or updates its text. Members are kept.
func (s *FileStore) EnsureGroup(ctx context.Context, key, text string) error {
	return s.update(ctx, func(r Roster) error {
		g := r[key]
		if g.Text == text && g.Members != nil {
			return errUnchanged
		}
		g.Text = text
		if g.Members == nil {
			g.Members = make(map[string]Member)
		}
		r[key] = g
		return nil
	})
}

// Close is a no-op.
func (s *FileStore) Close() error { return nil }

var errUnchanged = errors.New("unchanged")

func (s *FileStore) update(ctx context.Context, mutate func(Roster) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.read()
	if err != nil {
		return err
	}
	if err := mutate(r); err != nil {
		if errors.Is(err, errUnchanged) {
			return nil
		}
		return err
	}
	if err := s.write(r); err != nil {
		logger.Error(ctx, logger.CompRoster, "roster.write",
			slog.String("backend", "file"),
			slog.String("path", s.path),
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return err
	}
	return nil
}

func (s *FileStore) read() (Roster, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Roster{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("roster: read %s: %w", s.path, err)
	}
	r := Roster{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return r, nil
	}
	if s.yaml {
		err = yaml.Unmarshal(raw, &r)
	} else {
		err = json.Unmarshal(raw, &r)
	}
	if err != nil {
		return nil, fmt.Errorf("roster: decode %s: %w", s.path, err)
	}
	return r, nil
}

func (s *FileStore) write(r Roster) error {
	raw, err := s.encode(r)
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("roster: temp file: %w", err)
	}
	name := tmp.Name()
	defer os.Remove(name)

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("roster: write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("roster: sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("roster: close %s: %w", name, err)
	}
	if err := os.Rename(name, s.path); err != nil {
		return fmt.Errorf("roster: replace %s: %w", s.path, err)
	}
	return nil
}

func (s *FileStore) encode(r Roster) ([]byte, error) {
	if s.yaml {
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return nil, fmt.Errorf("roster: encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("roster: encode json: %w", err)
	}
	return buf.Bytes(), nil
}
