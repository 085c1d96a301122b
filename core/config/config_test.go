package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaultsAndEnv(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: from-file
  run_mode: polling
logging:
  level: debug
dialog:
  session_ttl_minutes: 30
`)
	t.Setenv("BOT_TOKEN", "from-env")
	t.Setenv("DIALOG_UNMATCHED", "HELP")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Telegram.Token != "from-env" {
		t.Fatalf("token = %q, env should win", cfg.Telegram.Token)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Fatalf("run mode = %q", cfg.Telegram.RunMode)
	}
	if cfg.Dialog.Unmatched != UnmatchedHelp {
		t.Fatalf("unmatched = %q", cfg.Dialog.Unmatched)
	}
	if cfg.Dialog.SessionTTLMinutes != 30 || cfg.Logging.Level != "debug" {
		t.Fatalf("yaml values lost: %+v", cfg)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestNormalizeRejectsInvalid(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing token", func(c *Config) { c.Telegram.Token = " " }, "token is required"},
		{"unknown run mode", func(c *Config) { c.Telegram.RunMode = "push" }, "invalid telegram.run_mode"},
		{"webhook without url", func(c *Config) { c.Telegram.RunMode = RunModeWebhook }, "webhook.url"},
		{"webhook without port", func(c *Config) {
			c.Telegram.RunMode = RunModeWebhook
			c.Webhook.URL = "https://example.org/hook"
			c.Webhook.Listen = "0.0.0.0"
		}, "webhook.port"},
		{"negative poll timeout", func(c *Config) { c.Telegram.LongPollTimeoutSeconds = -1 }, "longpoll_timeout_seconds"},
		{"bad rate limit exclusion", func(c *Config) { c.RateLimit.ExcludeUpdates = []string{"inline_query"} }, "exclude_updates"},
		{"negative sender workers", func(c *Config) { c.Sender.Workers = -2 }, "sender settings"},
		{"bad unmatched policy", func(c *Config) { c.Dialog.Unmatched = "shout" }, "dialog.unmatched"},
		{"negative ttl", func(c *Config) { c.Dialog.SessionTTLMinutes = -5 }, "session_ttl_minutes"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{Telegram: TelegramConfig{Token: "t"}}
			tc.mutate(cfg)
			err := Normalize(cfg)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("Normalize error = %v, want mention of %q", err, tc.want)
			}
		})
	}
}

func TestNormalizeLowercasesExclusions(t *testing.T) {
	cfg := &Config{
		Telegram:  TelegramConfig{Token: "t"},
		RateLimit: RateLimitConfig{ExcludeUpdates: []string{" Callback "}},
	}
	if err := Normalize(cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.RateLimit.ExcludeUpdates[0] != UpdateCallback {
		t.Fatalf("exclusion = %q", cfg.RateLimit.ExcludeUpdates[0])
	}
	if cfg.Dialog.Unmatched != UnmatchedIgnore {
		t.Fatalf("default unmatched = %q", cfg.Dialog.Unmatched)
	}
}

func TestNormalizeNil(t *testing.T) {
	if err := Normalize(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}
