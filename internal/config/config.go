// Package config holds the photogeo application configuration: the reusable
// core sections plus database and intake settings.
package config

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/photogeo/core/config"
	coredatabase "github.com/m3rciful/photogeo/core/database"
)

// IntakeConfig tunes the photo/location conversation.
type IntakeConfig struct {
	// AlbumLatencyMS is how long a media group representative waits for siblings.
	AlbumLatencyMS int `yaml:"album_latency_ms" toml:"album_latency_ms" envconfig:"INTAKE_ALBUM_LATENCY_MS"`
	// DownloadDir is where photos are saved, one sub-directory per user.
	DownloadDir   string   `yaml:"download_dir" toml:"download_dir" envconfig:"INTAKE_DOWNLOAD_DIR"`
	BeginCommands []string `yaml:"begin_commands" toml:"begin_commands" envconfig:"INTAKE_BEGIN_COMMANDS"`
}

// AlbumLatency returns AlbumLatencyMS as a duration.
func (c IntakeConfig) AlbumLatency() time.Duration {
	return time.Duration(c.AlbumLatencyMS) * time.Millisecond
}

// Config is the full application configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database coredatabase.Config `yaml:"database" toml:"database"`
	Intake   IntakeConfig        `yaml:"intake" toml:"intake"`
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// Load reads the file at path (YAML or TOML), applies environment overrides,
// fills defaults and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.LoadFile(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates cfg and fills defaults.
func Normalize(cfg *Config) error {
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return err
	}

	db := &cfg.Database
	db.Driver = strings.ToLower(strings.TrimSpace(db.Driver))
	switch db.DriverName() {
	case coredatabase.DriverPostgres:
		db.Driver = coredatabase.DriverPostgres
		if db.Host == "" || db.Name == "" {
			return fmt.Errorf("database.host and database.name are required for postgres")
		}
		if db.Port == "" {
			db.Port = "5432"
		}
		if db.SSLMode == "" {
			db.SSLMode = "disable"
		}
		if db.MaxConnections <= 0 {
			db.MaxConnections = 5
		}
	case coredatabase.DriverSQLite:
		if strings.TrimSpace(db.Path) == "" {
			db.Path = "storage/photogeo.db"
		}
	default:
		return fmt.Errorf("invalid database.driver %q; allowed: postgres, sqlite", db.Driver)
	}

	in := &cfg.Intake
	if in.AlbumLatencyMS < 0 {
		return fmt.Errorf("intake.album_latency_ms must be >= 0")
	}
	if in.AlbumLatencyMS == 0 {
		in.AlbumLatencyMS = 10
	}
	if strings.TrimSpace(in.DownloadDir) == "" {
		in.DownloadDir = "storage/photos"
	}
	var begin []string
	for _, c := range in.BeginCommands {
		if c = strings.TrimSpace(c); c != "" {
			begin = append(begin, c)
		}
	}
	if len(begin) == 0 {
		begin = []string{"/start", "/help"}
	}
	in.BeginCommands = begin
	return nil
}
