// Package roster keeps notification groups and their subscribed members.
//
// Three backends share the Store interface: a JSON or YAML document on disk,
// a bbolt file, and SQL tables managed by core/database migrations.
package roster

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
)

// GroupMarker is the suffix every group key carries.
const GroupMarker = "_GROUP"

// ErrUnknownGroup is returned for group keys that are not in the roster.
var ErrUnknownGroup = errors.New("roster: unknown group")

// Member is one subscribed chat.
type Member struct {
	ChatID int64  `json:"chat_id" yaml:"chat_id"`
	Name   string `json:"name" yaml:"name"`
}

// Group is a named list of members keyed by chat id.
type Group struct {
	Text    string            `json:"text" yaml:"text"`
	Members map[string]Member `json:"members" yaml:"members"`
}

// Roster maps group keys to groups.
type Roster map[string]Group

// MemberKey is the key a chat id is stored under.
func MemberKey(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}

// Sorted returns the members ordered by chat id.
func (g Group) Sorted() []Member {
	out := make([]Member, 0, len(g.Members))
	for _, m := range g.Members {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChatID < out[j].ChatID })
	return out
}

// Has reports whether chatID is subscribed.
func (g Group) Has(chatID int64) bool {
	_, ok := g.Members[MemberKey(chatID)]
	return ok
}

// Keys returns group keys in lexical order.
func (r Roster) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SubscribedTo returns the keys of groups chatID belongs to, in lexical order.
func (r Roster) SubscribedTo(chatID int64) []string {
	var keys []string
	for _, k := range r.Keys() {
		if r[k].Has(chatID) {
			keys = append(keys, k)
		}
	}
	return keys
}

// Store persists the roster. Implementations are safe for concurrent use.
type Store interface {
	// Load returns a snapshot of every group.
	Load(ctx context.Context) (Roster, error)
	// Group returns one group or ErrUnknownGroup.
	Group(ctx context.Context, key string) (Group, error)
	// Subscribe adds or replaces a member of an existing group.
	Subscribe(ctx context.Context, key string, m Member) error
	// EnsureGroup creates the group if needed and sets its display text.
	EnsureGroup(ctx context.Context, key, text string) error
	Close() error
}

// ValidKey reports whether key is a well-formed group key.
func ValidKey(key string) bool {
	return len(key) > len(GroupMarker) && strings.HasSuffix(key, GroupMarker)
}
