package router

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/officebot/core/dialog"
	"github.com/m3rciful/officebot/core/logger"
	tg "github.com/m3rciful/officebot/core/telegram"
	"github.com/m3rciful/officebot/core/telegram/callbacks"
	"github.com/m3rciful/officebot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// Dispatcher consumes dialog events.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev dialog.Event) (dialog.Outcome, error)
}

// Routes wires commands, free text and button presses into d. Every route is
// wrapped with the recover and logging middleware.
func Routes(d Dispatcher, reg *tg.Registry) []tg.Route {
	if d == nil {
		return nil
	}
	routes := CommandRoutes(d, reg)
	routes = append(routes, TextRoutes(d, reg)...)
	routes = append(routes, CallbackRoute(d))

	logger.Info(context.Background(), logger.CompTWire, "tg.wire",
		slog.String("status", "ok"),
		slog.Int("routes", len(routes)),
	)
	return routes
}

func wrap(h tele.HandlerFunc) tele.HandlerFunc {
	return middleware.RecoverMiddleware(middleware.LoggerMiddleware(h))
}

// senderIDs returns the user and chat of an update, false when either is missing.
func senderIDs(c tele.Context) (int64, int64, bool) {
	user, chat := c.Sender(), c.Chat()
	if user == nil || chat == nil {
		return 0, 0, false
	}
	return user.ID, chat.ID, true
}

// CommandRoutes binds every registered command and alias. Aliases are
// dispatched under their canonical name.
func CommandRoutes(d Dispatcher, reg *tg.Registry) []tg.Route {
	if reg == nil {
		return nil
	}
	var routes []tg.Route
	for _, endpoint := range reg.Endpoints() {
		canonical, _, _ := reg.LookupCommand(endpoint)
		name := "command." + normalizeHandlerName(canonical)
		routes = append(routes, tg.Route{
			Endpoint: endpoint,
			Handler: wrap(func(c tele.Context) error {
				start := time.Now()
				userID, chatID, ok := senderIDs(c)
				if !ok {
					return nil
				}
				return handleDialog(c, d, name, start, dialog.CommandEvent(canonical, userID, chatID))
			}),
		})
	}
	return routes
}

// TextRoutes handles free text and commands that have no dedicated route.
// Documents are acknowledged in the log and otherwise ignored.
func TextRoutes(d Dispatcher, reg *tg.Registry) []tg.Route {
	text := func(c tele.Context) error {
		start := time.Now()
		userID, chatID, ok := senderIDs(c)
		if !ok {
			return nil
		}
		body := c.Text()
		if strings.HasPrefix(body, "/") {
			cmd := strings.Fields(body)[0]
			if reg != nil {
				if key, _, found := reg.LookupCommand(dialog.CommandEvent(cmd, 0, 0).Command); found {
					cmd = key
				}
			}
			ev := dialog.CommandEvent(cmd, userID, chatID)
			return handleDialog(c, d, "command."+normalizeHandlerName(ev.Command), start, ev)
		}
		return handleDialog(c, d, "text", start, dialog.TextEvent(body, userID, chatID))
	}

	doc := func(c tele.Context) error {
		logHandlerSummary(c, "unexpected_document", time.Now(), "skip", "ok", nil)
		return nil
	}

	return []tg.Route{
		{Endpoint: tele.OnText, Handler: wrap(text)},
		{Endpoint: tele.OnDocument, Handler: wrap(doc)},
	}
}

// CallbackRoute turns inline button presses into button events.
func CallbackRoute(d Dispatcher) tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		cb := c.Callback()
		if cb == nil {
			return nil
		}
		_ = c.Respond()

		userID, chatID, ok := senderIDs(c)
		if !ok {
			return nil
		}
		msgID := 0
		if m := c.Message(); m != nil {
			msgID = m.ID
		}
		payload := callbacks.Payload(cb)
		name := "callback." + normalizeHandlerName(callbacks.Key(payload))
		return handleDialog(c, d, name, start, dialog.ButtonEvent(payload, userID, chatID, msgID))
	}
	return tg.Route{Endpoint: tele.OnCallback, Handler: wrap(handler)}
}
