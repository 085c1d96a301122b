// Package bot is the office bot: configuration, conversation tree and the
// actions behind every menu button.
package bot

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/officebot/core/bootstrap"
	coreconfig "github.com/m3rciful/officebot/core/config"
	"github.com/m3rciful/officebot/core/dialog"
	"github.com/m3rciful/officebot/core/links"
	"github.com/m3rciful/officebot/core/logger"
	"github.com/m3rciful/officebot/core/roster"
	"github.com/m3rciful/officebot/core/state"
	coretelegram "github.com/m3rciful/officebot/core/telegram"
	"github.com/m3rciful/officebot/core/telegram/commands"
	"github.com/m3rciful/officebot/core/telegram/router"
)

//go:embed default_links.yaml
var defaultLinks []byte

// App holds everything the bot needs at runtime.
type App struct {
	cfg      *Config
	boot     *bootstrap.Result
	roster   roster.Store
	commands *coretelegram.Registry
	handlers *handlers
	dialogs  *dialog.Registry
}

// Bootstrap initializes logging, the roster store and the conversation tree.
func Bootstrap(ctx context.Context, cfg *Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bot: nil config")
	}

	opts := bootstrap.Options{
		Config: &cfg.Config,
		Modules: bootstrap.Modules{
			Services: bootstrap.ServiceProviderFunc(func(ctx context.Context, _ any, db *sqlx.DB) (any, error) {
				return roster.Open(ctx, cfg.Roster.Backend, cfg.Roster.Path, db)
			}),
			Seeders: []bootstrap.Seeder{
				bootstrap.SeederFunc(func(ctx context.Context, services any) error {
					return roster.Seed(ctx, services.(roster.Store), cfg.GroupTitles())
				}),
			},
		},
	}
	if cfg.UsesDatabase() {
		db := cfg.Database
		opts.Database = &db
	}
	res, err := bootstrap.Run(ctx, opts)
	if err != nil {
		return nil, err
	}
	store, _ := res.Services.(roster.Store)

	app, err := newApp(cfg, store)
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		_ = res.Close()
		return nil, err
	}
	app.boot = res
	return app, nil
}

func newApp(cfg *Config, store roster.Store) (*App, error) {
	if store == nil {
		return nil, fmt.Errorf("bot: roster store not initialized")
	}
	menu, err := loadLinks(cfg.Links.Path)
	if err != nil {
		return nil, err
	}

	reg := coretelegram.NewRegistry()
	reg.RegisterCommand("/start", commands.Command{Description: "Open the main menu"})
	reg.RegisterCommand("/stop", commands.Command{Description: "Abort the current dialog", Aliases: []string{"cancel"}})
	reg.RegisterCommand("/help", commands.Command{Description: "Show what the bot can do"})

	h := &handlers{
		roster:   store,
		links:    menu,
		groups:   cfg.Groups,
		inputTTL: cfg.InputTimeout(),
		helpText: helpText(reg),
		now:      time.Now,
	}
	dialogs, err := h.conversations()
	if err != nil {
		return nil, fmt.Errorf("bot: conversations: %w", err)
	}
	return &App{
		cfg:      cfg,
		roster:   store,
		commands: reg,
		handlers: h,
		dialogs:  dialogs,
	}, nil
}

func loadLinks(path string) (*links.Menu, error) {
	if strings.TrimSpace(path) == "" {
		return links.Parse(defaultLinks)
	}
	return links.Load(path)
}

func helpText(reg *coretelegram.Registry) string {
	var b strings.Builder
	b.WriteString("I'm TKZ office Bot. I can show useful links, send a notice to a group and subscribe you to group notices.\n")
	for _, c := range reg.ListCommands(true) {
		fmt.Fprintf(&b, "\n/%s - %s", c.Text, c.Description)
	}
	return b.String()
}

// Dispatcher builds the conversation dispatcher on top of out.
func (a *App) Dispatcher(out dialog.Outbox) (*dialog.Dispatcher, error) {
	core := a.cfg.CoreConfig()
	opts := dialog.Options{
		Store:      state.NewMemoryStore(),
		Registry:   a.dialogs,
		Outbox:     out,
		SessionTTL: time.Duration(core.Dialog.SessionTTLMinutes) * time.Minute,
		OnExpired:  a.handlers.expired,
		OnError:    a.handlers.failed,
		Now:        a.handlers.now,
	}
	if core.Dialog.Unmatched == coreconfig.UnmatchedHelp {
		opts.OnUnmatched = a.handlers.unmatched
	}
	return dialog.NewDispatcher(opts)
}

// TelegramRunOptions wires the dispatcher into the Telegram runtime.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	core := a.cfg.CoreConfig()
	return coretelegram.RunOptions{
		Config:      core,
		Registry:    a.commands,
		Middlewares: coretelegram.DefaultMiddlewares(core, nil),
		BuildRoutes: func(ctx context.Context, rt coretelegram.Runtime) ([]coretelegram.Route, error) {
			d, err := a.Dispatcher(rt.Outbox)
			if err != nil {
				return nil, err
			}
			return router.Routes(d, rt.Registry), nil
		},
		OnStart: func(ctx context.Context, rt coretelegram.Runtime) error {
			logger.Info(ctx, logger.CompBot, "config",
				slog.String("roster_backend", a.cfg.Roster.Backend),
				slog.Int("groups", len(a.cfg.Groups)),
				slog.String("unmatched", core.Dialog.Unmatched),
				slog.Duration("input_timeout", a.cfg.InputTimeout()),
			)
			return nil
		},
	}, nil
}

// Close releases the roster store and the database.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	var errs []error
	if a.roster != nil {
		errs = append(errs, a.roster.Close())
	}
	errs = append(errs, a.boot.Close())
	return errors.Join(errs...)
}
