package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/m3rciful/officebot/core/dialog"
	"github.com/m3rciful/officebot/core/links"
	"github.com/m3rciful/officebot/core/logger"
	"github.com/m3rciful/officebot/core/roster"
	"github.com/m3rciful/officebot/core/telegram/keyboard"
)

// Session data keys.
const (
	keyStartOver = "start_over"
	keyFeature   = "current_feature"
	keyGroup     = "current_group"
	keyDeadline  = "input_deadline"
	keyLinkPath  = "links_path"
)

const featureNotice = "notice"

const (
	textGreeting    = "Hi, I'm TKZ office Bot."
	textMenu        = "Select your action from menu. To abort, simply type /stop."
	textBye         = "Okay, bye."
	textSeeYou      = "See you around!"
	textNoticeGroup = "Select the group to send the message."
	textSubGroup    = "Select the group to subscribe."
	textTellMe      = "Okay, tell me."
	textExpired     = "Session expired, please /start again."
	textUnmatched   = "I didn't get that. Type /start to open the menu or /help to see what I can do."
	textFailed      = "Something went wrong, please try again."
	textNoSubs      = "You are not subscribed to any group yet."
	textBackLabel   = "⏪Back"
)

// handlers holds the leaf actions of every conversation.
type handlers struct {
	roster   roster.Store
	links    *links.Menu
	groups   []GroupConfig
	inputTTL time.Duration
	helpText string
	now      func() time.Time
}

func (h *handlers) menuKeyboard() dialog.Keyboard {
	return dialog.Keyboard{
		dialog.Row(
			dialog.Button{Text: "Links", Payload: payloadLinks},
			dialog.Button{Text: "Notice", Payload: payloadNotice},
		),
		dialog.Row(
			dialog.Button{Text: "Subscribe", Payload: payloadSubscribe},
			dialog.Button{Text: "My subscriptions", Payload: payloadMine},
		),
		dialog.Row(dialog.Button{Text: "Done", Payload: payloadDone}),
	}
}

func backRow() []dialog.Button {
	return dialog.Row(dialog.Button{Text: textBackLabel, Payload: payloadBack})
}

func (h *handlers) groupKeyboard() dialog.Keyboard {
	buttons := make([]dialog.Button, 0, len(h.groups))
	for _, g := range h.groups {
		buttons = append(buttons, dialog.Button{Text: g.Title, Payload: g.Key})
	}
	kb := keyboard.Chunk(buttons, 2)
	return append(kb, backRow())
}

func (h *handlers) group(key string) (GroupConfig, bool) {
	for _, g := range h.groups {
		if g.Key == key {
			return g, true
		}
	}
	return GroupConfig{}, false
}

// reply edits the message carrying the pressed button, or sends a new one for
// commands and text.
func reply(ctx context.Context, r *dialog.Request, text string, kb dialog.Keyboard) error {
	if r.Event.Kind == dialog.KindButton && r.Event.MessageID != 0 {
		return r.Out.Edit(ctx, r.Event.ChatID, r.Event.MessageID, text, kb)
	}
	_, err := r.Out.Send(ctx, r.Event.ChatID, text, kb)
	return err
}

// start shows the main menu. After a nested menu the current message is
// redrawn in place; otherwise a greeting and a fresh menu are sent.
func (h *handlers) start(ctx context.Context, r *dialog.Request) (dialog.State, error) {
	startOver := r.Data.Bool(keyStartOver)
	r.Data.Set(keyStartOver, false)

	if startOver && r.Event.Kind == dialog.KindButton && r.Event.MessageID != 0 {
		if err := r.Out.Edit(ctx, r.Event.ChatID, r.Event.MessageID, textMenu, h.menuKeyboard()); err != nil {
			return dialog.NotEntered, err
		}
		return SelectingAction, nil
	}

	if r.Event.Kind == dialog.KindCommand {
		r.Data.Delete(keyFeature, keyGroup, keyDeadline, keyLinkPath)
	}
	if _, err := r.Out.Send(ctx, r.Event.ChatID, textGreeting, nil); err != nil {
		return dialog.NotEntered, err
	}
	if _, err := r.Out.Send(ctx, r.Event.ChatID, textMenu, h.menuKeyboard()); err != nil {
		return dialog.NotEntered, err
	}
	return SelectingAction, nil
}

// back leaves a nested menu and redraws the main menu in place.
func (h *handlers) back(ctx context.Context, r *dialog.Request) (dialog.State, error) {
	r.Data.Delete(keyFeature, keyGroup, keyDeadline, keyLinkPath)
	r.Data.Set(keyStartOver, true)
	if _, err := h.start(ctx, r); err != nil {
		return dialog.NotEntered, err
	}
	return dialog.End, nil
}

func (h *handlers) stop(ctx context.Context, r *dialog.Request) (dialog.State, error) {
	if _, err := r.Out.Send(ctx, r.Event.ChatID, textBye, nil); err != nil {
		return dialog.NotEntered, err
	}
	return dialog.Stop, nil
}

func (h *handlers) done(ctx context.Context, r *dialog.Request) (dialog.State, error) {
	if err := reply(ctx, r, textSeeYou, nil); err != nil {
		return dialog.NotEntered, err
	}
	return dialog.End, nil
}

// help answers without moving the conversation.
func (h *handlers) help(ctx context.Context, r *dialog.Request) (dialog.State, error) {
	if _, err := r.Out.Send(ctx, r.Event.ChatID, h.helpText, nil); err != nil {
		return dialog.NotEntered, err
	}
	if r.State == dialog.NotEntered {
		return dialog.End, nil
	}
	return r.State, nil
}

func (h *handlers) unmatched(ctx context.Context, r *dialog.Request) error {
	if r.Event.Kind == dialog.KindButton {
		return nil
	}
	_, err := r.Out.Send(ctx, r.Event.ChatID, textUnmatched, nil)
	return err
}

// expired answers the first event after an idle session was reset. A stale
// menu loses its buttons so it cannot be pressed again.
func (h *handlers) expired(ctx context.Context, r *dialog.Request) error {
	return reply(ctx, r, textExpired, nil)
}

// failed reports a failed action and offers the current menu again as a new
// message; the state is unchanged, so its buttons keep working.
func (h *handlers) failed(ctx context.Context, r *dialog.Request, err error) error {
	logger.Warn(ctx, logger.CompBot, "action.fail",
		slog.String("conv", string(r.Conversation)),
		slog.String("state", string(r.State)),
		slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
	)
	_, sendErr := r.Out.Send(ctx, r.Event.ChatID, textFailed, h.keyboardFor(r))
	return sendErr
}

// keyboardFor rebuilds the keyboard shown in the request's state.
func (h *handlers) keyboardFor(r *dialog.Request) dialog.Keyboard {
	switch r.State {
	case SelectingAction:
		return h.menuKeyboard()
	case Showing:
		return dialog.Keyboard{backRow()}
	case SelectingLink:
		kb, err := h.linksKeyboard(r.Data.Strings(keyLinkPath))
		if err != nil {
			return dialog.Keyboard{backRow()}
		}
		return kb
	case SelectingGroup, SubscribeGroup:
		return h.groupKeyboard()
	}
	return nil
}

func (h *handlers) showSubscriptions(ctx context.Context, r *dialog.Request) (dialog.State, error) {
	all, err := h.roster.Load(ctx)
	if err != nil {
		return dialog.NotEntered, fmt.Errorf("load roster: %w", err)
	}
	keys := all.SubscribedTo(r.Event.ChatID)
	text := textNoSubs
	if len(keys) > 0 {
		var b strings.Builder
		b.WriteString("You are subscribed to:")
		for _, k := range keys {
			title := all[k].Text
			if g, ok := h.group(k); ok {
				title = g.Title
			}
			b.WriteString("\n• ")
			b.WriteString(title)
		}
		text = b.String()
	}
	if err := reply(ctx, r, text, dialog.Keyboard{backRow()}); err != nil {
		return dialog.NotEntered, err
	}
	r.Data.Set(keyStartOver, true)
	return Showing, nil
}

func (h *handlers) linksKeyboard(path []string) (dialog.Keyboard, error) {
	menu, err := h.links.Walk(path)
	if err != nil {
		return nil, err
	}
	buttons := make([]dialog.Button, 0, len(menu.Links)+len(menu.Children))
	for _, l := range menu.Links {
		buttons = append(buttons, dialog.Button{Text: l.Title, URL: l.URL})
	}
	for _, c := range menu.Children {
		buttons = append(buttons, dialog.Button{Text: c.ID, Payload: payloadLinkChild + c.ID})
	}
	return append(keyboard.Chunk(buttons, 2), backRow()), nil
}

func (h *handlers) renderLinks(ctx context.Context, r *dialog.Request, path []string) error {
	kb, err := h.linksKeyboard(path)
	if err != nil {
		return err
	}
	menu, _ := h.links.Walk(path)
	return reply(ctx, r, menu.Heading(), kb)
}

func (h *handlers) openLinks(ctx context.Context, r *dialog.Request) (dialog.State, error) {
	r.Data.Delete(keyLinkPath)
	if err := h.renderLinks(ctx, r, nil); err != nil {
		return dialog.NotEntered, err
	}
	return SelectingLink, nil
}

func (h *handlers) openLinkChild(ctx context.Context, r *dialog.Request) (dialog.State, error) {
	path := r.Data.Strings(keyLinkPath)
	id := strings.TrimPrefix(r.Event.Payload, payloadLinkChild)
	cur, err := h.links.Walk(path)
	if err != nil {
		path = nil
		cur = h.links
	}
	if _, ok := cur.Child(id); ok {
		path = append(path, id)
	}
	r.Data.Set(keyLinkPath, path)
	if err := h.renderLinks(ctx, r, path); err != nil {
		return dialog.NotEntered, err
	}
	return SelectingLink, nil
}

// linksBack goes up one submenu, or back to the main menu from the top.
func (h *handlers) linksBack(ctx context.Context, r *dialog.Request) (dialog.State, error) {
	path := r.Data.Strings(keyLinkPath)
	if len(path) == 0 {
		return h.back(ctx, r)
	}
	path = path[:len(path)-1]
	r.Data.Set(keyLinkPath, path)
	if err := h.renderLinks(ctx, r, path); err != nil {
		return dialog.NotEntered, err
	}
	return SelectingLink, nil
}

func (h *handlers) selectNoticeGroup(ctx context.Context, r *dialog.Request) (dialog.State, error) {
	if err := reply(ctx, r, textNoticeGroup, h.groupKeyboard()); err != nil {
		return dialog.NotEntered, err
	}
	return SelectingGroup, nil
}

// askForInput is the first step of a notice: remember the group and wait for text.
func (h *handlers) askForInput(ctx context.Context, r *dialog.Request) (dialog.State, error) {
	g, ok := h.group(r.Event.Payload)
	if !ok {
		return h.selectNoticeGroup(ctx, r)
	}
	r.Data.Set(keyFeature, featureNotice)
	r.Data.Set(keyGroup, g.Key)
	r.Data.Set(keyDeadline, h.now().Add(h.inputTTL))
	if err := reply(ctx, r, textTellMe, nil); err != nil {
		return dialog.NotEntered, err
	}
	return Typing, nil
}

// saveInput is the second step of a notice: the text is broadcast to the group.
func (h *handlers) saveInput(ctx context.Context, r *dialog.Request) (dialog.State, error) {
	feature, _ := r.Data.String(keyFeature)
	key, hasGroup := r.Data.String(keyGroup)
	deadline, hasDeadline := r.Data.Time(keyDeadline)
	r.Data.Delete(keyFeature, keyGroup, keyDeadline)

	if feature != featureNotice || !hasGroup || !hasDeadline || h.now().After(deadline) {
		logger.Info(ctx, logger.CompBot, "notice.expired",
			slog.String("group", key),
			slog.Bool("has_deadline", hasDeadline),
		)
		if _, err := r.Out.Send(ctx, r.Event.ChatID, textExpired, nil); err != nil {
			return dialog.NotEntered, err
		}
		return dialog.Stop, nil
	}

	sent, total, err := h.broadcast(ctx, r.Out, key, r.Event.Text)
	if err != nil && total == 0 {
		return dialog.NotEntered, err
	}
	report := fmt.Sprintf("Sent to %d of %d members.", sent, total)
	if _, err := r.Out.Send(ctx, r.Event.ChatID, report, nil); err != nil {
		return dialog.NotEntered, err
	}
	return Stopping, nil
}

// broadcast sends body to every member of the group and waits for all sends.
// A failed recipient does not stop the others; failures are returned together.
func (h *handlers) broadcast(ctx context.Context, out dialog.Outbox, key, body string) (int, int, error) {
	g, err := h.roster.Group(ctx, key)
	if errors.Is(err, roster.ErrUnknownGroup) {
		g = roster.Group{}
	} else if err != nil {
		return 0, 0, fmt.Errorf("load group %s: %w", key, err)
	}
	members := g.Sorted()

	start := time.Now()
	var (
		sent  atomic.Int64
		group multierror.Group
	)
	for _, m := range members {
		m := m
		group.Go(func() error {
			if _, err := out.Send(ctx, m.ChatID, body, nil); err != nil {
				return fmt.Errorf("member %d: %w", m.ChatID, err)
			}
			sent.Add(1)
			return nil
		})
	}
	merr := group.Wait().ErrorOrNil()

	attrs := []slog.Attr{
		slog.String("status", logger.Status(merr)),
		slog.String("group", key),
		slog.Int("members", len(members)),
		slog.Int64("sent", sent.Load()),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	}
	if merr != nil {
		attrs = append(attrs, slog.String("err", logger.SanitizeLimit(merr.Error(), 512)))
		logger.Warn(ctx, logger.CompBot, "notice.broadcast", attrs...)
	} else {
		logger.Info(ctx, logger.CompBot, "notice.broadcast", attrs...)
	}
	return int(sent.Load()), len(members), merr
}

func (h *handlers) selectSubscribeGroup(ctx context.Context, r *dialog.Request) (dialog.State, error) {
	if err := reply(ctx, r, textSubGroup, h.groupKeyboard()); err != nil {
		return dialog.NotEntered, err
	}
	return SubscribeGroup, nil
}

func (h *handlers) subscribe(ctx context.Context, r *dialog.Request) (dialog.State, error) {
	g, ok := h.group(r.Event.Payload)
	if !ok {
		return h.selectSubscribeGroup(ctx, r)
	}
	name := r.Event.UserName
	if name == "" {
		name = roster.MemberKey(r.Event.UserID)
	}
	if err := h.roster.Subscribe(ctx, g.Key, roster.Member{ChatID: r.Event.ChatID, Name: name}); err != nil {
		return dialog.NotEntered, fmt.Errorf("subscribe %s: %w", g.Key, err)
	}
	logger.Info(ctx, logger.CompBot, "subscribe",
		slog.String("status", "ok"),
		slog.String("group", g.Key),
		slog.Int64("chat_id", r.Event.ChatID),
	)
	text := fmt.Sprintf("You are successfully subscribed to the %s notifications!", g.Title)
	if _, err := r.Out.Send(ctx, r.Event.ChatID, text, nil); err != nil {
		return dialog.NotEntered, err
	}
	return Stopping, nil
}
