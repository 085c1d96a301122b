package roster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"
)

const groupsBucket = "groups"

// BoltStore keeps each group as a JSON value in one bbolt bucket.
type BoltStore struct {
	db *bbolt.DB
}

// OpenBolt opens or creates the bbolt file at path.
func OpenBolt(path string) (*BoltStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("roster: bolt path is required")
	}
	db, err := bbolt.Open(filepath.Clean(path), 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("roster: open bolt: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(groupsBucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("roster: create bucket: %w", err)
	}
	return &BoltStore{db: db}, nil
}

// Close closes the bbolt file.
func (s *BoltStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Load returns every stored group.
func (s *BoltStore) Load(ctx context.Context) (Roster, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r := Roster{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(groupsBucket)).ForEach(func(k, v []byte) error {
			var g Group
			if err := json.Unmarshal(v, &g); err != nil {
				return fmt.Errorf("decode group %s: %w", k, err)
			}
			r[string(k)] = g
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("roster: load: %w", err)
	}
	return r, nil
}

// Group returns one group.
func (s *BoltStore) Group(ctx context.Context, key string) (Group, error) {
	if err := ctx.Err(); err != nil {
		return Group{}, err
	}
	var g Group
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		g, err = getGroup(tx.Bucket([]byte(groupsBucket)), key)
		return err
	})
	return g, err
}

// Subscribe adds or replaces a member inside a single write transaction.
func (s *BoltStore) Subscribe(ctx context.Context, key string, m Member) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(groupsBucket))
		g, err := getGroup(b, key)
		if err != nil {
			return err
		}
		if g.Members == nil {
			g.Members = make(map[string]Member)
		}
		g.Members[MemberKey(m.ChatID)] = m
		return putGroup(b, key, g)
	})
}

// EnsureGroup creates the group or updates its text.
func (s *BoltStore) EnsureGroup(ctx context.Context, key, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(groupsBucket))
		g, err := getGroup(b, key)
		if err != nil && !errors.Is(err, ErrUnknownGroup) {
			return err
		}
		g.Text = text
		if g.Members == nil {
			g.Members = make(map[string]Member)
		}
		return putGroup(b, key, g)
	})
}

func getGroup(b *bbolt.Bucket, key string) (Group, error) {
	raw := b.Get([]byte(key))
	if raw == nil {
		return Group{}, fmt.Errorf("%w: %s", ErrUnknownGroup, key)
	}
	var g Group
	if err := json.Unmarshal(raw, &g); err != nil {
		return Group{}, fmt.Errorf("roster: decode group %s: %w", key, err)
	}
	return g, nil
}

func putGroup(b *bbolt.Bucket, key string, g Group) error {
	raw, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("roster: encode group %s: %w", key, err)
	}
	return b.Put([]byte(key), raw)
}
