package bot

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/officebot/core/config"
	coredatabase "github.com/m3rciful/officebot/core/database"
	"github.com/m3rciful/officebot/core/dialog"
	"github.com/m3rciful/officebot/core/roster"
)

// RosterConfig selects where group members are stored.
type RosterConfig struct {
	// Backend is one of "file", "bolt" or "sql".
	Backend string `yaml:"backend" envconfig:"ROSTER_BACKEND"`
	// Path is the members file (.json or .yaml) or the bolt database.
	Path string `yaml:"path" envconfig:"ROSTER_PATH"`
}

// GroupConfig is one notice group offered in the menus.
type GroupConfig struct {
	Key   string `yaml:"key"`
	Title string `yaml:"title"`
}

// LinksConfig points at the links catalogue. An empty path uses the built-in one.
type LinksConfig struct {
	Path string `yaml:"path" envconfig:"LINKS_PATH"`
}

// NoticeConfig tunes the two-step notice input.
type NoticeConfig struct {
	// InputTimeoutSeconds bounds the wait for the notice text; 0 -> default.
	InputTimeoutSeconds int `yaml:"input_timeout_seconds" envconfig:"NOTICE_INPUT_TIMEOUT_SECONDS"`
}

// Config is the full bot configuration. The core sections live at the top
// level of the file.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	// Database is used only by the sql roster backend.
	Database coredatabase.Config `yaml:"database"`
	Roster   RosterConfig        `yaml:"roster"`
	Groups   []GroupConfig       `yaml:"groups"`
	Links    LinksConfig         `yaml:"links"`
	Notice   NoticeConfig        `yaml:"notice"`
}

const (
	defaultMembersFile  = "members.json"
	defaultBoltFile     = "roster.db"
	defaultInputTimeout = 10 * time.Minute
)

// DefaultGroups are offered when the configuration lists none.
var DefaultGroups = []GroupConfig{
	{Key: "TKZ_SPB_GROUP", Title: "ТКЗ СПБ"},
	{Key: "TKZ_OFFICE_GROUP", Title: "Office-group"},
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// UsesDatabase reports whether the roster lives in SQL.
func (c *Config) UsesDatabase() bool {
	return c.Roster.Backend == roster.BackendSQL
}

// InputTimeout returns how long the notice text is awaited.
func (c *Config) InputTimeout() time.Duration {
	if c.Notice.InputTimeoutSeconds <= 0 {
		return defaultInputTimeout
	}
	return time.Duration(c.Notice.InputTimeoutSeconds) * time.Second
}

// GroupTitles maps group keys to their display text.
func (c *Config) GroupTitles() map[string]string {
	out := make(map[string]string, len(c.Groups))
	for _, g := range c.Groups {
		out[g.Key] = g.Title
	}
	return out
}

// Load reads the YAML file at path, overlays the environment and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates the configuration and fills in defaults.
func (c *Config) Normalize() error {
	if err := coreconfig.Normalize(&c.Config); err != nil {
		return err
	}

	backend := strings.ToLower(strings.TrimSpace(c.Roster.Backend))
	switch backend {
	case "", roster.BackendFile:
		backend = roster.BackendFile
		if strings.TrimSpace(c.Roster.Path) == "" {
			c.Roster.Path = defaultMembersFile
		}
	case roster.BackendBolt:
		if strings.TrimSpace(c.Roster.Path) == "" {
			c.Roster.Path = defaultBoltFile
		}
	case roster.BackendSQL:
		if err := c.Database.Normalize(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid roster.backend %q; allowed: file, bolt, sql", c.Roster.Backend)
	}
	c.Roster.Backend = backend

	if len(c.Groups) == 0 {
		c.Groups = append([]GroupConfig(nil), DefaultGroups...)
	}
	seen := make(map[string]struct{}, len(c.Groups))
	for i := range c.Groups {
		g := &c.Groups[i]
		g.Key = strings.TrimSpace(g.Key)
		g.Title = strings.TrimSpace(g.Title)
		if !roster.ValidKey(g.Key) {
			return fmt.Errorf("groups[%d]: key %q must end with %s", i, g.Key, roster.GroupMarker)
		}
		if err := dialog.CheckPayload(g.Key); err != nil {
			return fmt.Errorf("groups[%d]: %w", i, err)
		}
		if g.Title == "" {
			g.Title = g.Key
		}
		if _, dup := seen[g.Key]; dup {
			return fmt.Errorf("groups[%d]: duplicate key %q", i, g.Key)
		}
		seen[g.Key] = struct{}{}
	}

	if c.Notice.InputTimeoutSeconds < 0 {
		return fmt.Errorf("notice.input_timeout_seconds must be >= 0")
	}
	return nil
}
