package cmd

import (
	"context"
	"errors"
	"testing"

	coreconfig "github.com/m3rciful/officebot/core/config"
	coretelegram "github.com/m3rciful/officebot/core/telegram"
)

type carrier struct{ core *coreconfig.Config }

func (c carrier) CoreConfig() *coreconfig.Config { return c.core }

type fakeApp struct {
	closed bool
}

func (a *fakeApp) TelegramRunOptions() (coretelegram.RunOptions, error) {
	return coretelegram.RunOptions{Config: &coreconfig.Config{}}, nil
}

func (a *fakeApp) Close() error {
	a.closed = true
	return nil
}

func TestRunWiresHooks(t *testing.T) {
	t.Setenv("OFFICEBOT_CONFIG", "from-env.yaml")
	app := &fakeApp{}
	var loadedFrom string
	var started, stopped bool

	err := Run(Options{
		ConfigEnvVar:      "OFFICEBOT_CONFIG",
		DefaultConfigPath: "default.yaml",
		LoadConfig: func(path string) (ConfigCarrier, error) {
			loadedFrom = path
			return carrier{core: &coreconfig.Config{}}, nil
		},
		Bootstrap: func(ctx context.Context, cfg ConfigCarrier) (TelegramApp, error) {
			return app, nil
		},
		ShutdownLogger: func() error { return nil },
		RunTelegram: func(ctx context.Context, opts coretelegram.RunOptions) error {
			if err := opts.OnStart(ctx, coretelegram.Runtime{}); err != nil {
				return err
			}
			started = true
			stopped = opts.OnStop(ctx, coretelegram.Runtime{}) == nil
			return nil
		},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if loadedFrom != "from-env.yaml" {
		t.Fatalf("config path = %q", loadedFrom)
	}
	if !started || !stopped || !app.closed {
		t.Fatalf("started=%v stopped=%v closed=%v", started, stopped, app.closed)
	}
}

func TestRunRequiresHooksAndConfig(t *testing.T) {
	if err := Run(Options{}); err == nil {
		t.Fatal("expected error without LoadConfig")
	}
	boom := errors.New("boom")
	err := Run(Options{
		DefaultConfigPath: "x.yaml",
		LoadConfig:        func(string) (ConfigCarrier, error) { return nil, boom },
		Bootstrap:         func(context.Context, ConfigCarrier) (TelegramApp, error) { return nil, nil },
	})
	if !errors.Is(err, boom) {
		t.Fatalf("load error = %v", err)
	}
	err = Run(Options{
		DefaultConfigPath: "x.yaml",
		LoadConfig:        func(string) (ConfigCarrier, error) { return carrier{}, nil },
		Bootstrap:         func(context.Context, ConfigCarrier) (TelegramApp, error) { return nil, nil },
	})
	if err == nil {
		t.Fatal("expected error for missing core config")
	}
}

func TestConfigPathFallsBackToDefault(t *testing.T) {
	t.Setenv(DefaultConfigEnvVar, "")
	got, err := configPath(Options{DefaultConfigPath: "config.yaml"})
	if err != nil || got != "config.yaml" {
		t.Fatalf("configPath = %q, %v", got, err)
	}
	if _, err := configPath(Options{}); err == nil {
		t.Fatal("expected error without any path")
	}
}

func TestShutdownClosesAppBeforeLogger(t *testing.T) {
	app := &fakeApp{}
	var closedFirst bool
	shutdown(app, func() error {
		closedFirst = app.closed
		return nil
	})
	if !closedFirst {
		t.Fatal("logger was shut down before the app was closed")
	}
}
