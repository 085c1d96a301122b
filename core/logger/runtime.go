package logger

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"unicode"
)

type ctxKey int

const (
	keyLogger ctxKey = iota
	keyRID
	keyUpdate
	keyHandler
)

// UpdateMeta identifies the update a context belongs to.
type UpdateMeta struct {
	UpdateID int
	UserID   int64
	ChatID   int64
}

func ensure(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func lookup[T any](ctx context.Context, key ctxKey) (T, bool) {
	var zero T
	if ctx == nil {
		return zero, false
	}
	v, ok := ctx.Value(key).(T)
	return v, ok
}

// WithLogger attaches log to ctx.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	ctx = ensure(ctx)
	if log == nil {
		return ctx
	}
	return context.WithValue(ctx, keyLogger, log)
}

// FromContext returns the logger attached to ctx, or the base logger.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := lookup[*slog.Logger](ctx, keyLogger); ok && l != nil {
		return l
	}
	return L
}

// WithRID attaches a request correlation id.
func WithRID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ensure(ctx), keyRID, rid)
}

// RIDFrom returns the correlation id, if any.
func RIDFrom(ctx context.Context) string {
	rid, _ := lookup[string](ctx, keyRID)
	return rid
}

// WithUpdateMeta attaches update, user and chat identifiers.
func WithUpdateMeta(ctx context.Context, updateID int, userID, chatID int64) context.Context {
	return context.WithValue(ensure(ctx), keyUpdate, UpdateMeta{UpdateID: updateID, UserID: userID, ChatID: chatID})
}

// UpdateMetaFrom returns the identifiers stored by WithUpdateMeta.
func UpdateMetaFrom(ctx context.Context) UpdateMeta {
	m, _ := lookup[UpdateMeta](ctx, keyUpdate)
	return m
}

// UserIDFrom returns the Telegram user id of the update.
func UserIDFrom(ctx context.Context) int64 { return UpdateMetaFrom(ctx).UserID }

// ChatIDFrom returns the chat id of the update.
func ChatIDFrom(ctx context.Context) int64 { return UpdateMetaFrom(ctx).ChatID }

// UpdateIDFrom returns the update id.
func UpdateIDFrom(ctx context.Context) int { return UpdateMetaFrom(ctx).UpdateID }

// WithHandler names the handler serving the update.
func WithHandler(ctx context.Context, handler string) context.Context {
	ctx = ensure(ctx)
	if handler == "" {
		return ctx
	}
	return context.WithValue(ctx, keyHandler, handler)
}

// HandlerFrom returns the handler name, if any.
func HandlerFrom(ctx context.Context) string {
	h, _ := lookup[string](ctx, keyHandler)
	return h
}

// Sanitize drops control and format runes except tab and newline.
func Sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) || unicode.Is(unicode.Cf, r) {
			return -1
		}
		return r
	}, s)
}

// SanitizeLimit sanitizes s and cuts it to at most max runes.
func SanitizeLimit(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(Sanitize(s))
	if len(r) > max {
		r = r[:max]
	}
	return string(r)
}

// BuildRID formats a correlation id as updateID:chatID:userID.
func BuildRID(updateID int, chatID, userID int64) string {
	return strconv.Itoa(updateID) + ":" + strconv.FormatInt(chatID, 10) + ":" + strconv.FormatInt(userID, 10)
}

// CompactRID rewrites a numeric updateID:chatID:userID id as dot-separated base36.
// Other input is returned trimmed but otherwise unchanged.
func CompactRID(rid string) string {
	rid = strings.TrimSpace(rid)
	parts := strings.Split(rid, ":")
	if len(parts) != 3 {
		return rid
	}
	for i, p := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return rid
		}
		parts[i] = strconv.FormatInt(n, 36)
	}
	return strings.Join(parts, ".")
}
