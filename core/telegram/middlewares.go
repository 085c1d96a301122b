package telegram

import (
	"strings"
	"time"

	coreconfig "github.com/m3rciful/officebot/core/config"
	"github.com/m3rciful/officebot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// DefaultMiddlewares builds the inbound chain: panic recovery, the optional
// per-user rate limit, request logging and reply counters. onLimited answers
// throttled updates; nil drops them silently.
func DefaultMiddlewares(cfg *coreconfig.Config, onLimited func(tele.Context) error) []Middleware {
	mws := []Middleware{{Name: "recover", Use: middleware.RecoverMiddleware}}
	if opts, ok := rateLimitOptions(cfg, onLimited); ok {
		mws = append(mws, Middleware{Name: "rate_limit", Use: middleware.RateLimitMiddleware(opts)})
	}
	return append(mws,
		Middleware{Name: "logger", Use: middleware.LoggerMiddleware},
		Middleware{Name: "metrics", Use: middleware.MessageMetricsMiddleware},
	)
}

func rateLimitOptions(cfg *coreconfig.Config, onLimited func(tele.Context) error) (middleware.RateLimitOptions, bool) {
	if cfg == nil || cfg.RateLimit.IntervalMS <= 0 {
		return middleware.RateLimitOptions{}, false
	}
	exclude := make(map[string]struct{}, len(cfg.RateLimit.ExcludeUpdates))
	for _, kind := range cfg.RateLimit.ExcludeUpdates {
		exclude[strings.ToLower(strings.TrimSpace(kind))] = struct{}{}
	}
	return middleware.RateLimitOptions{
		Interval:  time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond,
		Exclude:   exclude,
		OnLimited: onLimited,
	}, true
}
