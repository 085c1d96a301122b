package router

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/m3rciful/officebot/core/dialog"
	"github.com/m3rciful/officebot/core/logger"
	tghelpers "github.com/m3rciful/officebot/core/telegram/helpers"
	"github.com/m3rciful/officebot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// handleDialog feeds ev to d and logs one summary line with the transition.
func handleDialog(c tele.Context, d Dispatcher, handlerName string, start time.Time, ev dialog.Event) error {
	ctx := tghelpers.WithHandler(c, handlerName)
	ev = ev.WithUserName(tghelpers.DisplayName(c.Sender()))

	out, err := d.Dispatch(ctx, ev)

	status, outcome := "", ""
	if err == nil && !out.Matched {
		status, outcome = "skip", "unmatched"
	}
	if out.Expired {
		outcome = "expired"
	}
	extras := []slog.Attr{slog.String("kind", ev.Kind.String())}
	if out.Matched {
		extras = append(extras,
			slog.String("conv", string(out.Conversation)),
			slog.String("route", out.Route),
			slog.String("state_from", string(out.From)),
			slog.String("state", string(out.Next)),
			slog.Int("depth_before", out.DepthBefore),
			slog.Int("depth", out.DepthAfter),
		)
	}
	logHandlerSummary(c, handlerName, start, status, outcome, err, extras...)
	return err
}

func logHandlerSummary(c tele.Context, handlerName string, start time.Time, statusOverride, outcomeOverride string, err error, extras ...slog.Attr) {
	ctx := tghelpers.WithHandler(c, handlerName)
	msgs, kb := middleware.GetCounters(c)

	status := statusOverride
	if status == "" {
		status = logger.Status(err)
	}
	outcome := outcomeOverride
	if outcome == "" {
		outcome = logger.Status(err)
	}

	attrs := []slog.Attr{
		slog.String("status", status),
		slog.String("handler", handlerName),
		slog.String("outcome", outcome),
		slog.Int("messages", msgs),
		slog.Bool("kb", kb),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", deriveErrorCode(err)),
			slog.String("cause", handlerName),
		)
	}
	attrs = append(attrs, extras...)
	level := slog.LevelInfo
	if err != nil {
		level = slog.LevelError
	}
	logger.Event(ctx, logger.CompTG, level, "handler.handled", attrs...)
}

func normalizeHandlerName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "unknown"
	}
	name = strings.TrimPrefix(name, "/")
	name = strings.ReplaceAll(name, " ", "_")
	return strings.ToLower(name)
}

func deriveErrorCode(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, dialog.ErrUndeclaredState) {
		return "UNDECLARED_STATE"
	}
	type coder interface{ Code() string }
	var c coder
	if errors.As(err, &c) {
		if code := strings.TrimSpace(c.Code()); code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t != nil && t.Name() != "" {
		return strings.ToUpper(strings.ReplaceAll(t.Name(), " ", "_"))
	}
	return "UNKNOWN_ERROR"
}
