package telegram

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/m3rciful/officebot/core/dialog"
	"github.com/m3rciful/officebot/core/logger"
	"github.com/m3rciful/officebot/core/telegram/keyboard"
	"github.com/m3rciful/officebot/core/telegram/middleware"
	tgsender "github.com/m3rciful/officebot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// Messenger is the part of *tele.Bot the outbox needs.
type Messenger interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Outbox delivers dialog effects through the sender dispatcher. Every call
// waits for the final result so handlers observe delivery failures.
type Outbox struct {
	api    Messenger
	sender *tgsender.Dispatcher
}

var _ dialog.Outbox = (*Outbox)(nil)

// NewOutbox builds an outbox. A nil sender runs calls inline without retries.
func NewOutbox(api Messenger, sender *tgsender.Dispatcher) *Outbox {
	return &Outbox{api: api, sender: sender}
}

// Send posts a new message.
func (o *Outbox) Send(ctx context.Context, chatID int64, text string, kb dialog.Keyboard) (int, error) {
	if o == nil || o.api == nil {
		return 0, errors.New("telegram: outbox not configured")
	}
	markup := keyboard.Inline(kb)
	var id int
	err := o.do(ctx, tgsender.Job{Action: "send", ChatID: chatID, Run: func() error {
		opts := &tele.SendOptions{ReplyMarkup: markup}
		msg, err := o.api.Send(tele.ChatID(chatID), text, opts)
		if err != nil {
			return err
		}
		if msg != nil {
			id = msg.ID
		}
		return nil
	}})
	if err != nil {
		return 0, err
	}
	middleware.CountersFrom(ctx).Record(markup != nil)
	return id, nil
}

// Edit replaces the text and keyboard of a message. An edit that changes
// nothing succeeds; any other edit failure falls back to sending a new message
// so the user is never left without a menu.
func (o *Outbox) Edit(ctx context.Context, chatID int64, messageID int, text string, kb dialog.Keyboard) error {
	if o == nil || o.api == nil {
		return errors.New("telegram: outbox not configured")
	}
	if messageID == 0 {
		_, err := o.Send(ctx, chatID, text, kb)
		return err
	}
	markup := keyboard.Inline(kb)
	target := tele.StoredMessage{MessageID: strconv.Itoa(messageID), ChatID: chatID}
	err := o.do(ctx, tgsender.Job{Action: "edit", ChatID: chatID, Idempotent: true, Run: func() error {
		var opts []interface{}
		if markup != nil {
			opts = append(opts, markup)
		}
		_, err := o.api.Edit(target, text, opts...)
		return err
	}})
	switch {
	case err == nil:
		middleware.CountersFrom(ctx).Record(markup != nil)
		return nil
	case notModified(err):
		return nil
	}
	logger.Warn(ctx, logger.CompTG, "edit.fallback",
		slog.Int("message_id", messageID),
		slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
	)
	_, sendErr := o.Send(ctx, chatID, text, kb)
	return sendErr
}

func (o *Outbox) do(ctx context.Context, j tgsender.Job) error {
	if o.sender == nil {
		return j.Run()
	}
	err := o.sender.Do(ctx, j)
	if errors.Is(err, tgsender.ErrQueueFull) || errors.Is(err, tgsender.ErrQueueClosed) {
		logger.Warn(ctx, logger.CompSender, "queue.fallback",
			slog.String("action", j.Action),
			slog.Int64("recipient", j.ChatID),
			slog.String("err", err.Error()),
		)
		return j.Run()
	}
	return err
}

func notModified(err error) bool {
	return err != nil && strings.Contains(err.Error(), "message is not modified")
}
