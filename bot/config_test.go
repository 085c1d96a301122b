package bot

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	coreconfig "github.com/m3rciful/officebot/core/config"
	"github.com/m3rciful/officebot/core/roster"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123:abc"
dialog:
  unmatched: HELP
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	core := cfg.CoreConfig()
	if core.Telegram.Token != "123:abc" || core.Telegram.RunMode != coreconfig.RunModeLongpoll {
		t.Fatalf("core = %+v", core.Telegram)
	}
	if core.Dialog.Unmatched != coreconfig.UnmatchedHelp {
		t.Fatalf("unmatched = %q", core.Dialog.Unmatched)
	}
	if cfg.Roster.Backend != roster.BackendFile || cfg.Roster.Path != "members.json" {
		t.Fatalf("roster = %+v", cfg.Roster)
	}
	if len(cfg.Groups) != 2 || cfg.Groups[0].Key != "TKZ_SPB_GROUP" {
		t.Fatalf("groups = %+v", cfg.Groups)
	}
	if cfg.InputTimeout() != 10*time.Minute {
		t.Fatalf("input timeout = %v", cfg.InputTimeout())
	}
	if cfg.UsesDatabase() {
		t.Fatal("file backend must not use the database")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("BOT_TOKEN", "env-token")
	t.Setenv("ROSTER_BACKEND", "bolt")
	path := writeConfig(t, `
telegram:
  token: "file-token"
groups:
  - key: " DEV_GROUP "
notice:
  input_timeout_seconds: 30
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Telegram.Token != "env-token" {
		t.Fatalf("token = %q", cfg.Telegram.Token)
	}
	if cfg.Roster.Backend != roster.BackendBolt || cfg.Roster.Path != "roster.db" {
		t.Fatalf("roster = %+v", cfg.Roster)
	}
	if len(cfg.Groups) != 1 || cfg.Groups[0].Key != "DEV_GROUP" || cfg.Groups[0].Title != "DEV_GROUP" {
		t.Fatalf("groups = %+v", cfg.Groups)
	}
	if cfg.InputTimeout() != 30*time.Second {
		t.Fatalf("input timeout = %v", cfg.InputTimeout())
	}
}

func TestNormalizeRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"marker":    "groups:\n  - key: DEVS\n",
		"duplicate": "groups:\n  - key: A_GROUP\n  - key: A_GROUP\n",
		"long key":  "groups:\n  - key: ОЧЕНЬ_ДЛИННАЯ_ГРУППА_СОТРУДНИКОВ_GROUP\n",
		"backend":   "roster:\n  backend: redis\n",
		"sql":       "roster:\n  backend: sql\ndatabase:\n  driver: sqlite\n",
		"timeout":   "notice:\n  input_timeout_seconds: -1\n",
	}
	for name, body := range cases {
		_, err := Load(writeConfig(t, "telegram:\n  token: x\n"+body))
		if err == nil {
			t.Errorf("%s: expected error", name)
		}
	}

	_, err := Load(writeConfig(t, "roster:\n  backend: sql\ndatabase:\n  driver: sqlite\n  path: bot.db\ntelegram:\n  token: x\n"))
	if err != nil {
		t.Fatalf("sqlite roster: %v", err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil || !strings.Contains(err.Error(), "read config") {
		t.Fatalf("missing file error = %v", err)
	}
}
