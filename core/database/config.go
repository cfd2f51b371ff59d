package database

import (
	"fmt"
	"net/url"
)

const (
	// DriverPostgres selects PostgreSQL through lib/pq.
	DriverPostgres = "postgres"
	// DriverSQLite selects an embedded SQLite file through modernc.org/sqlite.
	DriverSQLite = "sqlite"
)

// Config holds database connection settings shared across bots.
type Config struct {
	Driver         string `yaml:"driver" toml:"driver" envconfig:"DB_DRIVER"`
	Host           string `yaml:"host" toml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" toml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" toml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" toml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" toml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" toml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" toml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
	// Path is the database file used by the sqlite driver.
	Path string `yaml:"path" toml:"path" envconfig:"DB_PATH"`
}

// DriverName returns the configured driver, defaulting to postgres.
func (c Config) DriverName() string {
	if c.Driver == "" {
		return DriverPostgres
	}
	return c.Driver
}

// DSN renders the driver specific data source name.
func (c Config) DSN() string {
	if c.DriverName() == DriverSQLite {
		return "file:" + c.Path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	return "user=" + c.User + " password=" + c.Password + " host=" + c.Host +
		" port=" + c.Port + " dbname=" + c.Name + " sslmode=" + c.SSLMode
}

// MigrateURL renders the database URL understood by golang-migrate.
func (c Config) MigrateURL() string {
	if c.DriverName() == DriverSQLite {
		return "sqlite://" + c.Path
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     "/" + c.Name,
		RawQuery: fmt.Sprintf("sslmode=%s", url.QueryEscape(c.SSLMode)),
	}
	return u.String()
}
