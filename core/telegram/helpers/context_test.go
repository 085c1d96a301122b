package helpers

import (
	"testing"

	"github.com/m3rciful/officebot/core/logger"

	tele "gopkg.in/telebot.v4"
)

func callbackContext(t *testing.T) tele.Context {
	t.Helper()
	b, err := tele.NewBot(tele.Settings{Token: "1:test", Offline: true})
	if err != nil {
		t.Fatalf("new bot: %v", err)
	}
	return b.NewContext(tele.Update{ID: 11, Callback: &tele.Callback{
		ID:      "cb",
		Data:    "notice",
		Sender:  &tele.User{ID: 5},
		Message: &tele.Message{ID: 42, Chat: &tele.Chat{ID: 9}},
	}})
}

func TestBuildContextCarriesUpdateMeta(t *testing.T) {
	c := callbackContext(t)
	ctx := BuildContext(c)
	if logger.UpdateIDFrom(ctx) != 11 || logger.UserIDFrom(ctx) != 5 || logger.ChatIDFrom(ctx) != 9 {
		t.Fatalf("meta = %+v", logger.UpdateMetaFrom(ctx))
	}
	if logger.RIDFrom(ctx) == "" {
		t.Fatal("missing request id")
	}
	if again := BuildContext(c); again != ctx {
		t.Fatal("BuildContext did not reuse the stored context")
	}
}

func TestBuildContextKeepsUpstreamRID(t *testing.T) {
	c := callbackContext(t)
	c.Set("rid", "fixed")
	if got := logger.RIDFrom(BuildContext(c)); got != "fixed" {
		t.Fatalf("rid = %q", got)
	}
}

func TestWithHandlerTagsContext(t *testing.T) {
	c := callbackContext(t)
	WithHandler(c, "dialog.callback")
	ctx, ok := ContextFrom(c)
	if !ok || logger.HandlerFrom(ctx) != "dialog.callback" {
		t.Fatalf("handler = %q", logger.HandlerFrom(ctx))
	}
}
