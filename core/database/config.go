package database

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	// DriverPostgres selects PostgreSQL through lib/pq.
	DriverPostgres = "postgres"
	// DriverSQLite selects an embedded SQLite file through modernc.org/sqlite.
	DriverSQLite = "sqlite"
)

// Config holds database connection settings.
type Config struct {
	Driver string `yaml:"driver" envconfig:"DB_DRIVER"`
	// Path is the SQLite database file.
	Path string `yaml:"path" envconfig:"DB_PATH"`

	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
}

// Normalize lowercases the driver, applies defaults and checks required fields.
func (c *Config) Normalize() error {
	c.Driver = strings.ToLower(strings.TrimSpace(c.Driver))
	switch c.Driver {
	case "", DriverPostgres, "postgresql":
		c.Driver = DriverPostgres
		if strings.TrimSpace(c.Host) == "" || strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("database.host and database.name are required for postgres")
		}
		if c.Port == "" {
			c.Port = "5432"
		}
		if c.SSLMode == "" {
			c.SSLMode = "disable"
		}
	case DriverSQLite, "sqlite3":
		c.Driver = DriverSQLite
		if strings.TrimSpace(c.Path) == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	default:
		return fmt.Errorf("invalid database.driver %q; allowed: postgres, sqlite", c.Driver)
	}
	if c.MaxConnections <= 0 {
		c.MaxConnections = 5
	}
	return nil
}

// DSN returns the connection string understood by the configured driver.
func (c Config) DSN() string {
	if c.Driver == DriverSQLite {
		return "file:" + c.Path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     "/" + c.Name,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}
