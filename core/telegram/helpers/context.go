// Package helpers carries request scoped data between telebot middlewares
// and the dialog router.
package helpers

import (
	"context"

	"github.com/m3rciful/officebot/core/logger"

	tele "gopkg.in/telebot.v4"
)

const (
	ctxKey = "officebot.ctx"
	// ridKey may be set upstream to reuse an existing request id.
	ridKey = "rid"
)

// StoreContext keeps ctx on c for later middlewares and handlers.
func StoreContext(c tele.Context, ctx context.Context) {
	if c != nil && ctx != nil {
		c.Set(ctxKey, ctx)
	}
}

// ContextFrom returns the context stored on c, if any.
func ContextFrom(c tele.Context) (context.Context, bool) {
	if c == nil {
		return nil, false
	}
	ctx, ok := c.Get(ctxKey).(context.Context)
	return ctx, ok && ctx != nil
}

// BuildContext returns the stored context or creates one tagged with the
// request id, update id, user and chat, and stores it.
func BuildContext(c tele.Context) context.Context {
	if ctx, ok := ContextFrom(c); ok {
		return ctx
	}
	updateID := c.Update().ID
	userID, chatID := ids(c)

	rid, _ := c.Get(ridKey).(string)
	if rid == "" {
		rid = logger.BuildRID(updateID, chatID, userID)
	}
	ctx := logger.WithRID(logger.Background(), rid)
	ctx = logger.WithUpdateMeta(ctx, updateID, userID, chatID)
	ctx = logger.WithLogger(ctx, logger.Component(logger.CompTG))
	StoreContext(c, ctx)
	return ctx
}

// WithHandler tags the request context with the handling route.
func WithHandler(c tele.Context, handler string) context.Context {
	ctx := BuildContext(c)
	if handler != "" {
		ctx = logger.WithHandler(ctx, handler)
		StoreContext(c, ctx)
	}
	return ctx
}

func ids(c tele.Context) (userID, chatID int64) {
	if u := c.Sender(); u != nil {
		userID = u.ID
	}
	if ch := c.Chat(); ch != nil {
		chatID = ch.ID
	}
	return userID, chatID
}
