package telegram

import (
	"strings"
	"testing"
	"time"

	coreconfig "github.com/m3rciful/officebot/core/config"

	tele "gopkg.in/telebot.v4"
)

func TestBuildPollerLongpoll(t *testing.T) {
	cfg := &coreconfig.Config{}
	cfg.Telegram.RunMode = coreconfig.RunModeLongpoll
	cfg.Telegram.LongPollTimeoutSeconds = 25

	lp, ok := BuildPoller(cfg).(*tele.LongPoller)
	if !ok {
		t.Fatalf("expected long poller")
	}
	if lp.Timeout != 25*time.Second {
		t.Fatalf("timeout = %v", lp.Timeout)
	}
	if got := strings.Join(lp.AllowedUpdates, ","); got != "message,callback_query" {
		t.Fatalf("allowed updates = %q", got)
	}
}

func TestBuildPollerWebhook(t *testing.T) {
	cfg := &coreconfig.Config{}
	cfg.Telegram.RunMode = coreconfig.RunModeWebhook
	cfg.Webhook.Listen = "0.0.0.0"
	cfg.Webhook.Port = 8443
	cfg.Webhook.URL = "https://bot.example.org/hook"

	wh, ok := BuildPoller(cfg).(*tele.Webhook)
	if !ok {
		t.Fatalf("expected webhook")
	}
	if wh.Listen != "0.0.0.0:8443" {
		t.Fatalf("listen = %q", wh.Listen)
	}
	if wh.Endpoint == nil || wh.Endpoint.PublicURL != cfg.Webhook.URL {
		t.Fatalf("endpoint = %+v", wh.Endpoint)
	}
}

func TestLongPollTimeoutDefault(t *testing.T) {
	if got := LongPollTimeout(nil); got != defaultLongPollTimeout {
		t.Fatalf("nil config timeout = %v", got)
	}
	if got := LongPollTimeout(&coreconfig.Config{}); got != defaultLongPollTimeout {
		t.Fatalf("zero timeout = %v", got)
	}
}
