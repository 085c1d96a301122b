package middleware

import (
	"log/slog"
	"time"

	"github.com/m3rciful/officebot/core/logger"
	tghelpers "github.com/m3rciful/officebot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// LoggerMiddleware sets the request id, stores the logging context and logs
// one receipt line per update. Applying it again on the same update is a no-op.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if _, ok := tghelpers.ContextFrom(c); ok {
			return next(c)
		}

		upd := c.Update()
		user := c.Sender()
		chat := c.Chat()

		chatID, userID := int64(0), int64(0)
		if chat != nil {
			chatID = chat.ID
		}
		if user != nil {
			userID = user.ID
		}
		rid := logger.BuildRID(upd.ID, chatID, userID)
		c.Set("rid", rid)
		c.Set("update_start", time.Now())

		ctx := logger.WithRID(logger.Background(), rid)
		ctx = logger.WithUpdateMeta(ctx, upd.ID, userID, chatID)
		ctx = logger.WithLogger(ctx, logger.Component(logger.CompTG))
		tghelpers.StoreContext(c, ctx)

		if logger.ShouldSampleDebug() {
			attrs := []slog.Attr{
				slog.String("status", "ok"),
				slog.String("kind", UpdateKind(upd)),
			}
			if chat != nil {
				attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
			}
			if user != nil {
				if user.Username != "" {
					attrs = append(attrs, slog.String("username", logger.SanitizeLimit(user.Username, 64)))
				}
				if user.LanguageCode != "" {
					attrs = append(attrs, slog.String("lang", user.LanguageCode))
				}
			}
			switch {
			case upd.Callback != nil:
				attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(upd.Callback.Data, 128)))
			case upd.Message != nil:
				if t := c.Text(); t != "" {
					attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(t, 256)))
				}
			}
			logger.Debug(ctx, logger.CompTG, "update.received", attrs...)
		}

		return next(c)
	}
}
