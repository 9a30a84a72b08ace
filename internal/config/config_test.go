package config

import (
	"os"
	"path/filepath"
	"testing"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/clawbeat/pkg/dispatch"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 20, cfg.Dispatch.PageSize)
	assert.Equal(t, dispatch.DefaultWeights(), cfg.Dispatch.Weights)
	assert.Equal(t, "America/Los_Angeles", cfg.Dispatch.Location().String())
	assert.True(t, cfg.Sources.RSS.Enabled)
	assert.Contains(t, cfg.Sources.Keywords, "openclaw")
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: postgres
  dsn: postgres://localhost/clawbeat
dispatch:
  page_size: 10
  weights:
    coverage: 5
    priority: 1
    verified: 1
sources:
  keywords: [openclaw]
whitelist:
  - source_name: Wired
    website_url: https://www.wired.com
    rss_url: https://www.wired.com/feed/rss
    source_type: priority
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 10, cfg.Dispatch.PageSize)
	assert.Equal(t, 100, cfg.Dispatch.MaxPageSize, "unset fields keep defaults")
	assert.Equal(t, dispatch.Weights{Coverage: 5, Priority: 1, Verified: 1}, cfg.Dispatch.Weights)
	assert.Equal(t, []string{"openclaw"}, cfg.Sources.Keywords)
	require.Len(t, cfg.Whitelist, 1)
	assert.Equal(t, "priority", cfg.Whitelist[0].SourceType)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db/clawbeat")
	t.Setenv("PORT", "9090")
	t.Setenv("FRONTEND_URL", "https://clawbeat.example")
	t.Setenv("SLACK_WEBHOOK_URL", "https://hooks.slack.test/x")
	t.Setenv("CLAWBEAT_TIMEZONE", "UTC")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://db/clawbeat", cfg.Database.DSN)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"http://localhost:3000", "https://clawbeat.example"}, cfg.Server.AllowedOrigins)
	assert.True(t, cfg.Alerts.Slack.Enabled)
	assert.Equal(t, "https://hooks.slack.test/x", cfg.Alerts.Slack.WebhookURL)
	assert.Equal(t, "UTC", cfg.Dispatch.Location().String())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"driver", func(c *Config) { c.Database.Driver = "mysql" }, "database.driver"},
		{"dsn", func(c *Config) { c.Database.DSN = "" }, "database.dsn"},
		{"timezone", func(c *Config) { c.Dispatch.Timezone = "Mars/Olympus" }, "dispatch.timezone"},
		{"page size", func(c *Config) { c.Dispatch.PageSize = 0 }, "dispatch.page_size"},
		{"max page size", func(c *Config) { c.Dispatch.MaxPageSize = 5 }, "dispatch.max_page_size"},
		{"cron", func(c *Config) { c.Schedule.Publish = "every day" }, "schedule.publish"},
		{"whitelist", func(c *Config) { c.Whitelist = []WhitelistEntry{{WebsiteURL: "https://x"}} }, "whitelist[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	assert.NoError(t, Default().Validate())
}

func TestValidate_JoinsErrors(t *testing.T) {
	cfg := Default()
	cfg.Database.Driver = "mysql"
	cfg.Dispatch.PageSize = -1

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.driver")
	assert.Contains(t, err.Error(), "dispatch.page_size")
}
