package middleware

import (
	"context"
	"sync/atomic"

	tghelpers "github.com/m3rciful/officebot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

const countersKey = "metrics.counters"

type countersCtxKey struct{}

// Counters tracks outbound messages produced while handling one update.
type Counters struct {
	messages atomic.Int32
	kb       atomic.Bool
}

// Record counts one delivered message.
func (c *Counters) Record(hasKeyboard bool) {
	if c == nil {
		return
	}
	c.messages.Add(1)
	if hasKeyboard {
		c.kb.Store(true)
	}
}

// Snapshot returns the message count and whether any message carried a keyboard.
func (c *Counters) Snapshot() (int, bool) {
	if c == nil {
		return 0, false
	}
	return int(c.messages.Load()), c.kb.Load()
}

// CountersFrom returns the counters attached to ctx, or nil.
func CountersFrom(ctx context.Context) *Counters {
	if ctx == nil {
		return nil
	}
	c, _ := ctx.Value(countersCtxKey{}).(*Counters)
	return c
}

// WithCounters attaches fresh counters to ctx.
func WithCounters(ctx context.Context) (context.Context, *Counters) {
	c := &Counters{}
	return context.WithValue(ctx, countersCtxKey{}, c), c
}

// MessageMetricsMiddleware attaches per-update counters to the request context.
// Outbound senders record into them through CountersFrom.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if c.Get(countersKey) != nil {
			return next(c)
		}
		ctx, counters := WithCounters(tghelpers.BuildContext(c))
		c.Set(countersKey, counters)
		tghelpers.StoreContext(c, ctx)
		return next(c)
	}
}

// GetCounters reads message count and keyboard presence for the current update.
func GetCounters(c tele.Context) (int, bool) {
	counters, _ := c.Get(countersKey).(*Counters)
	return counters.Snapshot()
}
