package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram bot related settings that are common for all bots.
type TelegramConfig struct {
	Token   string `yaml:"token" toml:"token" envconfig:"BOT_TOKEN"`
	RunMode string `yaml:"run_mode" toml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" toml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
	// SkipUpdates drops updates queued while the bot was offline.
	SkipUpdates bool `yaml:"skip_updates" toml:"skip_updates" envconfig:"TELEGRAM_SKIP_UPDATES"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" toml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" toml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" toml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level" toml:"level" envconfig:"LOG_LEVEL"`
	Format      string `yaml:"format" toml:"format" envconfig:"LOG_FORMAT"`
	KeysOrder   string `yaml:"keys_order" toml:"keys_order"`
	DebugSample string `yaml:"debug_sample" toml:"debug_sample"`
	// Color is one of auto, always or never; it only affects kv output.
	Color   string `yaml:"color" toml:"color" envconfig:"LOG_COLOR"`
	Dir     string `yaml:"dir" toml:"dir"`
	BotFile string `yaml:"bot_file" toml:"bot_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile" toml:"profile" envconfig:"LOG_PROFILE"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// UpdateMessage identifies plain messages for rate limit exclusions.
	UpdateMessage = "message"
	// UpdateCommand identifies bot commands for rate limit exclusions.
	UpdateCommand = "command"
	// UpdateAlbum identifies media group members for rate limit exclusions.
	UpdateAlbum = "album"
)

// RateLimitConfig holds settings for rate limiting.
// ExcludeUpdates accepts update types to bypass limiting:
// - "message": any message that is not a command
// - "command": bot commands such as /start
// - "album": members of a media group
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" toml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" toml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// Config aggregates the configuration that belongs to the reusable core.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram" toml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook" toml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit" toml:"rate_limit"`
}

// Load reads the core configuration from a YAML or TOML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := LoadFile(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFile decodes path into out, choosing TOML for .toml files and YAML
// otherwise, then overlays environment variables.
func LoadFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), out); err != nil {
			return fmt.Errorf("config: decode toml: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, out); err != nil {
			return fmt.Errorf("config: decode yaml: %w", err)
		}
	}
	if err := envconfig.Process("", out); err != nil {
		return fmt.Errorf("config: env overlay: %w", err)
	}
	return nil
}

// Normalize validates cfg and fills in defaults. Each section is checked in
// turn and the first problem is returned.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil config")
	}
	if cfg.Telegram.Token == "" {
		return errors.New("config: telegram.token is required")
	}
	for _, step := range []func(*Config) error{normalizeRunMode, normalizeColor, normalizeExcludes} {
		if err := step(cfg); err != nil {
			return err
		}
	}
	return nil
}

func normalizeRunMode(cfg *Config) error {
	mode := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	switch mode {
	case "", "polling":
		mode = RunModeLongpoll
	}

	switch mode {
	case RunModeWebhook:
		wh := cfg.Webhook
		if strings.TrimSpace(wh.URL) == "" || strings.TrimSpace(wh.Listen) == "" || wh.Port <= 0 {
			return errors.New("config: webhook mode needs webhook.url, webhook.listen and a positive webhook.port")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return errors.New("config: telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("config: unknown telegram.run_mode %q (want webhook or longpoll)", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = mode
	return nil
}

func normalizeColor(cfg *Config) error {
	c := strings.ToLower(strings.TrimSpace(cfg.Logging.Color))
	switch c {
	case "":
		c = "auto"
	case "auto", "always", "never":
	default:
		return fmt.Errorf("config: unknown logging.color %q (want auto, always or never)", cfg.Logging.Color)
	}
	cfg.Logging.Color = c
	return nil
}

// normalizeExcludes lowercases rate_limit.exclude_updates and drops blanks.
func normalizeExcludes(cfg *Config) error {
	in := cfg.RateLimit.ExcludeUpdates
	out := in[:0]
	for _, v := range in {
		key := strings.ToLower(strings.TrimSpace(v))
		switch key {
		case "":
			continue
		case UpdateMessage, UpdateCommand, UpdateAlbum:
			out = append(out, key)
		default:
			return fmt.Errorf("config: unknown rate_limit.exclude_updates value %q (want message, command or album)", v)
		}
	}
	cfg.RateLimit.ExcludeUpdates = out
	return nil
}
