package telegram

import (
	"net"
	"strconv"
	"time"

	coreconfig "github.com/m3rciful/officebot/core/config"

	tele "gopkg.in/telebot.v4"
)

const defaultLongPollTimeout = 10 * time.Second

// allowedUpdates are the update kinds the dialog router consumes.
var allowedUpdates = []string{"message", "callback_query"}

// LongPollTimeout returns the configured long polling timeout or the default.
func LongPollTimeout(cfg *coreconfig.Config) time.Duration {
	if cfg == nil || cfg.Telegram.LongPollTimeoutSeconds <= 0 {
		return defaultLongPollTimeout
	}
	return time.Duration(cfg.Telegram.LongPollTimeoutSeconds) * time.Second
}

// BuildPoller returns the poller for the configured run mode.
func BuildPoller(cfg *coreconfig.Config) tele.Poller {
	if cfg != nil && cfg.Telegram.RunMode == coreconfig.RunModeWebhook {
		return &tele.Webhook{
			Listen:         net.JoinHostPort(cfg.Webhook.Listen, strconv.Itoa(cfg.Webhook.Port)),
			AllowedUpdates: allowedUpdates,
			Endpoint:       &tele.WebhookEndpoint{PublicURL: cfg.Webhook.URL},
		}
	}
	return &tele.LongPoller{
		Timeout:        LongPollTimeout(cfg),
		AllowedUpdates: allowedUpdates,
	}
}
