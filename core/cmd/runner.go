// Package cmd is the process entry shared by bots built on core: it resolves
// the config file, bootstraps the app and runs the Telegram runtime until a
// termination signal arrives.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	coreconfig "github.com/m3rciful/officebot/core/config"
	"github.com/m3rciful/officebot/core/logger"
	coretelegram "github.com/m3rciful/officebot/core/telegram"
)

// DefaultConfigEnvVar is consulted when Options.ConfigEnvVar is empty.
const DefaultConfigEnvVar = "CONFIG_PATH"

// ConfigCarrier exposes access to the embedded core configuration.
type ConfigCarrier interface {
	CoreConfig() *coreconfig.Config
}

// TelegramApp is the minimal interface required to run a Telegram bot.
// An app that also implements io.Closer is closed on exit.
type TelegramApp interface {
	TelegramRunOptions() (coretelegram.RunOptions, error)
}

// Options describe how to load configuration, bootstrap the app, and run the bot.
type Options struct {
	ConfigEnvVar      string
	DefaultConfigPath string

	LoadConfig func(path string) (ConfigCarrier, error)
	Bootstrap  func(ctx context.Context, cfg ConfigCarrier) (TelegramApp, error)

	ShutdownLogger func() error
	RunTelegram    func(ctx context.Context, opts coretelegram.RunOptions) error
}

// Run loads configuration, bootstraps the app and blocks in the Telegram
// runtime. On return the app is closed first and the logger flushed last.
func Run(opts Options) error {
	if opts.LoadConfig == nil {
		return fmt.Errorf("cmd: LoadConfig is required")
	}
	if opts.Bootstrap == nil {
		return fmt.Errorf("cmd: Bootstrap is required")
	}

	path, err := configPath(opts)
	if err != nil {
		return err
	}
	log.Printf("loading config: %s", path)
	cfg, err := opts.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("cmd: failed to load config: %w", err)
	}
	if cfg.CoreConfig() == nil {
		return fmt.Errorf("cmd: loaded config is missing core configuration")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	startedAt := time.Now()
	app, err := opts.Bootstrap(ctx, cfg)
	if err != nil {
		return fmt.Errorf("cmd: bootstrap failed: %w", err)
	}
	defer shutdown(app, opts.ShutdownLogger)

	runOpts, err := app.TelegramRunOptions()
	if err != nil {
		return fmt.Errorf("cmd: telegram options build failed: %w", err)
	}
	wrapHooks(&runOpts, startedAt)

	run := opts.RunTelegram
	if run == nil {
		run = coretelegram.RunTelegram
	}
	return run(ctx, runOpts)
}

func configPath(opts Options) (string, error) {
	env := opts.ConfigEnvVar
	if env == "" {
		env = DefaultConfigEnvVar
	}
	if p := os.Getenv(env); p != "" {
		return p, nil
	}
	if opts.DefaultConfigPath != "" {
		return opts.DefaultConfigPath, nil
	}
	return "", fmt.Errorf("cmd: config path not provided via %s or DefaultConfigPath", env)
}

func shutdown(app TelegramApp, shutdownLogger func() error) {
	if closer, ok := app.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			log.Printf("app close error: %v", err)
		}
	}
	if shutdownLogger == nil {
		shutdownLogger = logger.Shutdown
	}
	if err := shutdownLogger(); err != nil {
		log.Printf("logger shutdown error: %v", err)
	}
}

// wrapHooks logs readiness after the app's own OnStart and the shutdown
// before its OnStop.
func wrapHooks(ro *coretelegram.RunOptions, startedAt time.Time) {
	onStart, onStop := ro.OnStart, ro.OnStop
	ro.OnStart = func(ctx context.Context, rt coretelegram.Runtime) error {
		if onStart != nil {
			if err := onStart(ctx, rt); err != nil {
				return err
			}
		}
		logger.Info(ctx, "app", "ready", slog.Duration("startup_duration", time.Since(startedAt)))
		return nil
	}
	ro.OnStop = func(ctx context.Context, rt coretelegram.Runtime) error {
		logger.Info(ctx, "app", "shutdown")
		if onStop != nil {
			return onStop(ctx, rt)
		}
		return nil
	}
}
