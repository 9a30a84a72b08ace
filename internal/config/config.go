package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/elonfeng/clawbeat/pkg/dispatch"
)

// Config is the root configuration.
type Config struct {
	Database  DatabaseConfig   `yaml:"database"`
	Schedule  ScheduleConfig   `yaml:"schedule"`
	Dispatch  DispatchConfig   `yaml:"dispatch"`
	Sources   SourcesConfig    `yaml:"sources"`
	Whitelist []WhitelistEntry `yaml:"whitelist"`
	Alerts    AlertsConfig     `yaml:"alerts"`
	Server    ServerConfig     `yaml:"server"`
}

// DatabaseConfig selects the relational store.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "postgres"
	DSN    string `yaml:"dsn"`
}

// ScheduleConfig holds cron specs evaluated in the dispatch timezone.
type ScheduleConfig struct {
	Collect string `yaml:"collect"`
	Publish string `yaml:"publish"`
}

// DispatchConfig configures feed curation.
type DispatchConfig struct {
	Timezone    string           `yaml:"timezone"`
	PageSize    int              `yaml:"page_size"`
	MaxPageSize int              `yaml:"max_page_size"`
	Window      int              `yaml:"window"` // most recent items loaded per render
	Weights     dispatch.Weights `yaml:"weights"`
}

// Location resolves the dispatch timezone, falling back to UTC.
func (d DispatchConfig) Location() *time.Location {
	loc, err := time.LoadLocation(d.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SourcesConfig configures ingestion.
type SourcesConfig struct {
	RSS             RSSConfig `yaml:"rss"`
	Keywords        []string  `yaml:"keywords"`
	ExcludeKeywords []string  `yaml:"exclude_keywords"`
	HistoryWindow   int       `yaml:"history_window"` // stored items considered for coverage clustering
}

// RSSConfig for the RSS collector. Feeds come from whitelist entries with an rss_url.
type RSSConfig struct {
	Enabled      bool `yaml:"enabled"`
	LimitPerFeed int  `yaml:"limit_per_feed"`
}

// WhitelistEntry is a trusted publisher and, optionally, its feed.
type WhitelistEntry struct {
	SourceName string `yaml:"source_name"`
	WebsiteURL string `yaml:"website_url"`
	RSSURL     string `yaml:"rss_url"`
	SourceType string `yaml:"source_type"`
}

// AlertsConfig configures spotlight announcements.
type AlertsConfig struct {
	Slack   SlackConfig   `yaml:"slack"`
	Discord DiscordConfig `yaml:"discord"`
	Webhook WebhookConfig `yaml:"webhook"`
}

// SlackConfig for Slack webhook alerts.
type SlackConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// DiscordConfig for Discord webhook alerts.
type DiscordConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// WebhookConfig for generic webhook alerts.
type WebhookConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Secret  string `yaml:"secret"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Driver: "sqlite", DSN: "./clawbeat.db"},
		Schedule: ScheduleConfig{
			Collect: "*/30 * * * *",
			Publish: "0 17 * * *",
		},
		Dispatch: DispatchConfig{
			Timezone:    "America/Los_Angeles",
			PageSize:    20,
			MaxPageSize: 100,
			Window:      1000,
			Weights:     dispatch.DefaultWeights(),
		},
		Sources: SourcesConfig{
			RSS:           RSSConfig{Enabled: true, LimitPerFeed: 20},
			Keywords:      []string{"openclaw", "moltbot", "clawdbot", "moltbook", "steinberger", "claudbot", "openclaw foundation"},
			HistoryWindow: 200,
		},
		Server: ServerConfig{
			Port:           8080,
			AllowedOrigins: []string{"http://localhost:3000"},
		},
	}
}

// Load reads configuration from a YAML file and applies env var overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("database.driver %q: want sqlite or postgres", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is empty"))
	}
	if _, err := time.LoadLocation(c.Dispatch.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("dispatch.timezone: %w", err))
	}
	if c.Dispatch.PageSize <= 0 {
		errs = append(errs, fmt.Errorf("dispatch.page_size must be positive, got %d", c.Dispatch.PageSize))
	}
	if c.Dispatch.MaxPageSize < c.Dispatch.PageSize {
		errs = append(errs, fmt.Errorf("dispatch.max_page_size %d is below page_size %d", c.Dispatch.MaxPageSize, c.Dispatch.PageSize))
	}
	for name, spec := range map[string]string{"schedule.collect": c.Schedule.Collect, "schedule.publish": c.Schedule.Publish} {
		if spec == "" {
			continue
		}
		if _, err := cron.ParseStandard(spec); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	for i, w := range c.Whitelist {
		if w.SourceName == "" {
			errs = append(errs, fmt.Errorf("whitelist[%d]: source_name is empty", i))
		}
	}

	return errors.Join(errs...)
}

// applyEnvOverrides overrides config values with environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.Driver = "postgres"
		cfg.Database.DSN = v
	}
	if v := os.Getenv("CLAWBEAT_DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("CLAWBEAT_DB_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("CLAWBEAT_TIMEZONE"); v != "" {
		cfg.Dispatch.Timezone = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("FRONTEND_URL"); v != "" {
		cfg.Server.AllowedOrigins = append(cfg.Server.AllowedOrigins, v)
	}
	if v := os.Getenv("SLACK_WEBHOOK_URL"); v != "" {
		cfg.Alerts.Slack.WebhookURL = v
		cfg.Alerts.Slack.Enabled = true
	}
	if v := os.Getenv("DISCORD_WEBHOOK_URL"); v != "" {
		cfg.Alerts.Discord.WebhookURL = v
		cfg.Alerts.Discord.Enabled = true
	}
	if v := os.Getenv("CLAWBEAT_WEBHOOK_SECRET"); v != "" {
		cfg.Alerts.Webhook.Secret = v
	}
}
