package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	coreconfig "github.com/m3rciful/officebot/core/config"
	"github.com/m3rciful/officebot/core/logger"
	tgsender "github.com/m3rciful/officebot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// Middleware describes a global bot middleware to be registered via bot.Use.
type Middleware struct {
	Name string
	Use  func(next tele.HandlerFunc) tele.HandlerFunc
}

// Route declares a single bot handler bound to an arbitrary endpoint.
// Endpoint values are passed directly to tele.Bot.Handle.
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// RunOptions controls the behaviour of RunTelegram.
type RunOptions struct {
	Config   *coreconfig.Config
	Registry *Registry

	DispatcherOptions tgsender.Options
	Dispatcher        *tgsender.Dispatcher

	Middlewares []Middleware
	Routes      []Route
	// BuildRoutes runs once the bot and outbox exist and returns extra routes.
	BuildRoutes func(ctx context.Context, rt Runtime) ([]Route, error)

	DisableWebhookCleanup bool

	OnStart func(ctx context.Context, rt Runtime) error
	OnStop  func(ctx context.Context, rt Runtime) error
}

// Runtime exposes runtime components to lifecycle hooks.
type Runtime struct {
	Bot        *tele.Bot
	Dispatcher *tgsender.Dispatcher
	Outbox     *Outbox
	Registry   *Registry
}

// SenderOptions converts the sender section of the configuration.
func SenderOptions(sc coreconfig.SenderConfig) tgsender.Options {
	return tgsender.Options{
		QueueSize:    sc.QueueSize,
		Workers:      sc.Workers,
		MaxRetries:   sc.MaxRetries,
		RetryBackoff: time.Duration(sc.RetryBackoffMS) * time.Millisecond,
		MaxDuration:  time.Duration(sc.MaxDurationMS) * time.Millisecond,
	}
}

// RunTelegram composes and runs a Telegram bot until the provided context is done.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Config == nil {
		return fmt.Errorf("telegram: nil config provided")
	}

	rt, err := newRuntime(ctx, opts)
	if err != nil {
		return err
	}
	if err := register(ctx, rt, opts); err != nil {
		rt.Dispatcher.Close()
		return err
	}
	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			rt.Dispatcher.Close()
			return err
		}
	}

	runErr := serve(ctx, rt.Bot)

	var stopErr error
	if opts.OnStop != nil {
		stopErr = opts.OnStop(context.WithoutCancel(ctx), rt)
	}
	rt.Dispatcher.Close()
	st := rt.Dispatcher.Stats()
	logger.Info(ctx, logger.CompSender, "sender.stats",
		slog.Uint64("sent", st.Sent),
		slog.Uint64("failed", st.Failed),
		slog.Uint64("retried", st.Retried),
	)

	if stopErr != nil {
		return stopErr
	}
	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}

// newRuntime builds the bot, the sender dispatcher and the outbox.
func newRuntime(ctx context.Context, opts RunOptions) (Runtime, error) {
	cfg := opts.Config
	reg := opts.Registry
	if reg == nil {
		reg = NewRegistry()
	}

	poller := BuildPoller(cfg)
	pollTimeout := LongPollTimeout(cfg)

	start := time.Now()
	bot, err := tele.NewBot(tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: poller,
		Client: BuildHTTPClient(pollTimeout),
	})
	if err != nil {
		return Runtime{}, fmt.Errorf("telegram: bot initialization failed: %w", err)
	}
	took := logger.RoundMS(time.Since(start))

	if wh, ok := poller.(*tele.Webhook); ok {
		logger.Info(ctx, logger.CompTG, "mode",
			slog.String("mode", coreconfig.RunModeWebhook),
			slog.String("listen", wh.Listen),
			slog.String("public_url", wh.Endpoint.PublicURL),
			slog.Duration("duration", took),
		)
	} else {
		logger.Info(ctx, logger.CompTG, "mode",
			slog.String("mode", coreconfig.RunModeLongpoll),
			slog.Duration("timeout", pollTimeout),
			slog.Duration("duration", took),
		)
		if !opts.DisableWebhookCleanup {
			// A webhook left from a previous deployment blocks getUpdates.
			err := bot.RemoveWebhook(false)
			logger.Event(ctx, logger.CompTG, levelFor(err), "delete_webhook",
				slog.String("status", logger.Status(err)),
				slog.String("err", errString(err)),
			)
		}
	}

	dispatcher := opts.Dispatcher
	if dispatcher == nil {
		dopts := opts.DispatcherOptions
		if dopts == (tgsender.Options{}) {
			dopts = SenderOptions(cfg.Sender)
		}
		dispatcher = tgsender.NewDispatcher(dopts)
	}

	return Runtime{
		Bot:        bot,
		Dispatcher: dispatcher,
		Outbox:     NewOutbox(bot, dispatcher),
		Registry:   reg,
	}, nil
}

// register installs middlewares, static and built routes, and the command menu.
func register(ctx context.Context, rt Runtime, opts RunOptions) error {
	for _, mw := range opts.Middlewares {
		if mw.Use != nil {
			rt.Bot.Use(mw.Use)
		}
	}

	routes := append([]Route(nil), opts.Routes...)
	if opts.BuildRoutes != nil {
		extra, err := opts.BuildRoutes(ctx, rt)
		if err != nil {
			return fmt.Errorf("telegram: routes: %w", err)
		}
		routes = append(routes, extra...)
	}
	for _, route := range routes {
		if route.Endpoint != nil && route.Handler != nil {
			rt.Bot.Handle(route.Endpoint, route.Handler)
		}
	}

	SetupCommands(rt.Bot, rt.Registry)
	return nil
}

// serve polls until ctx ends or the poller stops by itself.
func serve(ctx context.Context, bot *tele.Bot) error {
	done := make(chan struct{})
	go func() {
		bot.Start()
		close(done)
	}()

	select {
	case <-ctx.Done():
		bot.Stop()
		<-done
		return ctx.Err()
	case <-done:
		return nil
	}
}

func levelFor(err error) slog.Level {
	if err != nil {
		return slog.LevelWarn
	}
	return slog.LevelInfo
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return logger.SanitizeLimit(err.Error(), 256)
}
