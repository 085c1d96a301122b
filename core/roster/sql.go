package roster

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// SQLStore keeps the roster in the roster_groups and roster_members tables.
// Queries use ? placeholders and are rebound for the connected driver.
type SQLStore struct {
	db *sqlx.DB
}

// NewSQL wraps a migrated database. Close does not close db.
func NewSQL(db *sqlx.DB) (*SQLStore, error) {
	if db == nil {
		return nil, errors.New("roster: nil database")
	}
	return &SQLStore{db: db}, nil
}

type groupRow struct {
	Key   string `db:"group_key"`
	Title string `db:"title"`
}

type memberRow struct {
	Key    string `db:"group_key"`
	ChatID int64  `db:"chat_id"`
	Name   string `db:"name"`
}

// Load returns every group with its members.
func (s *SQLStore) Load(ctx context.Context) (Roster, error) {
	var groups []groupRow
	if err := s.db.SelectContext(ctx, &groups, `SELECT group_key, title FROM roster_groups`); err != nil {
		return nil, fmt.Errorf("roster: select groups: %w", err)
	}
	var members []memberRow
	if err := s.db.SelectContext(ctx, &members, `SELECT group_key, chat_id, name FROM roster_members`); err != nil {
		return nil, fmt.Errorf("roster: select members: %w", err)
	}
	r := make(Roster, len(groups))
	for _, g := range groups {
		r[g.Key] = Group{Text: g.Title, Members: make(map[string]Member)}
	}
	for _, m := range members {
		g, ok := r[m.Key]
		if !ok {
			continue
		}
		g.Members[MemberKey(m.ChatID)] = Member{ChatID: m.ChatID, Name: m.Name}
	}
	return r, nil
}

// Group returns one group with its members.
func (s *SQLStore) Group(ctx context.Context, key string) (Group, error) {
	var title string
	err := s.db.GetContext(ctx, &title, s.db.Rebind(`SELECT title FROM roster_groups WHERE group_key = ?`), key)
	if errors.Is(err, sql.ErrNoRows) {
		return Group{}, fmt.Errorf("%w: %s", ErrUnknownGroup, key)
	}
	if err != nil {
		return Group{}, fmt.Errorf("roster: select group %s: %w", key, err)
	}
	var members []memberRow
	err = s.db.SelectContext(ctx, &members,
		s.db.Rebind(`SELECT group_key, chat_id, name FROM roster_members WHERE group_key = ? ORDER BY chat_id`), key)
	if err != nil {
		return Group{}, fmt.Errorf("roster: select members of %s: %w", key, err)
	}
	g := Group{Text: title, Members: make(map[string]Member, len(members))}
	for _, m := range members {
		g.Members[MemberKey(m.ChatID)] = Member{ChatID: m.ChatID, Name: m.Name}
	}
	return g, nil
}

// Subscribe upserts the member row.
func (s *SQLStore) Subscribe(ctx context.Context, key string, m Member) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("roster: begin: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.GetContext(ctx, &exists, tx.Rebind(`SELECT 1 FROM roster_groups WHERE group_key = ?`), key)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrUnknownGroup, key)
	}
	if err != nil {
		return fmt.Errorf("roster: check group %s: %w", key, err)
	}
	_, err = tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO roster_members (group_key, chat_id, name) VALUES (?, ?, ?)
		ON CONFLICT (group_key, chat_id) DO UPDATE SET name = excluded.name`),
		key, m.ChatID, m.Name)
	if err != nil {
		return fmt.Errorf("roster: upsert member: %w", err)
	}
	return tx.Commit()
}

// EnsureGroup upserts the group row.
func (s *SQLStore) EnsureGroup(ctx context.Context, key, text string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO roster_groups (group_key, title) VALUES (?, ?)
		ON CONFLICT (group_key) DO UPDATE SET title = excluded.title`),
		key, text)
	if err != nil {
		return fmt.Errorf("roster: upsert group %s: %w", key, err)
	}
	return nil
}

// Close is a no-op; the database belongs to the caller.
func (s *SQLStore) Close() error { return nil }
