package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/m3rciful/officebot/core/dialog"
	tg "github.com/m3rciful/officebot/core/telegram"
	"github.com/m3rciful/officebot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

type recordingDispatcher struct {
	mu     sync.Mutex
	events []dialog.Event
}

func (r *recordingDispatcher) Dispatch(ctx context.Context, ev dialog.Event) (dialog.Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return dialog.Outcome{Matched: ev.Kind != dialog.KindText}, nil
}

func newTestBot(t *testing.T, d Dispatcher) *tele.Bot {
	t.Helper()
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
	}))
	t.Cleanup(api.Close)

	bot, err := tele.NewBot(tele.Settings{URL: api.URL, Token: "1:test", Offline: true, Synchronous: true})
	if err != nil {
		t.Fatalf("new bot: %v", err)
	}
	reg := tg.NewRegistry()
	reg.RegisterCommand("/start", commands.Command{Description: "Open the menu"})
	reg.RegisterCommand("/stop", commands.Command{Description: "Abort", Aliases: []string{"cancel"}})
	for _, r := range Routes(d, reg) {
		bot.Handle(r.Endpoint, r.Handler)
	}
	return bot
}

func message(id int, text string) tele.Update {
	return tele.Update{
		ID: id,
		Message: &tele.Message{
			ID:     id,
			Text:   text,
			Sender: &tele.User{ID: 10, Username: "ann"},
			Chat:   &tele.Chat{ID: 20, Type: tele.ChatPrivate},
		},
	}
}

func TestRoutesTranslateUpdates(t *testing.T) {
	d := &recordingDispatcher{}
	bot := newTestBot(t, d)

	bot.ProcessUpdate(message(1, "/start"))
	bot.ProcessUpdate(message(2, "/cancel"))
	bot.ProcessUpdate(message(3, "/unknown arg"))
	bot.ProcessUpdate(message(4, "hello there"))
	bot.ProcessUpdate(tele.Update{
		ID: 5,
		Callback: &tele.Callback{
			ID:      "cb",
			Data:    "TKZ_SPB_GROUP",
			Sender:  &tele.User{ID: 10, FirstName: "Ann"},
			Message: &tele.Message{ID: 77, Chat: &tele.Chat{ID: 20}},
		},
	})

	want := []dialog.Event{
		{Kind: dialog.KindCommand, Command: "start", UserID: 10, ChatID: 20, UserName: "@ann"},
		{Kind: dialog.KindCommand, Command: "stop", UserID: 10, ChatID: 20, UserName: "@ann"},
		{Kind: dialog.KindCommand, Command: "unknown", UserID: 10, ChatID: 20, UserName: "@ann"},
		{Kind: dialog.KindText, Text: "hello there", UserID: 10, ChatID: 20, UserName: "@ann"},
		{Kind: dialog.KindButton, Payload: "TKZ_SPB_GROUP", UserID: 10, ChatID: 20, MessageID: 77, UserName: "Ann"},
	}
	if len(d.events) != len(want) {
		t.Fatalf("events = %+v", d.events)
	}
	for i := range want {
		if d.events[i] != want[i] {
			t.Errorf("event %d = %+v, want %+v", i, d.events[i], want[i])
		}
	}
}

func TestRoutesSkipUpdatesWithoutSender(t *testing.T) {
	d := &recordingDispatcher{}
	bot := newTestBot(t, d)
	upd := message(1, "hello")
	upd.Message.Sender = nil
	bot.ProcessUpdate(upd)
	if len(d.events) != 0 {
		t.Fatalf("events = %+v", d.events)
	}
}

func TestNormalizeHandlerName(t *testing.T) {
	if got := normalizeHandlerName(" /Start Now "); got != "start_now" {
		t.Fatalf("got %q", got)
	}
	if got := normalizeHandlerName(""); got != "unknown" {
		t.Fatalf("got %q", got)
	}
}
