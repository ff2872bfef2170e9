package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/devfeed-crawler/internal/sources/techblog"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
logging:
  development: true
  level: debug
http:
  user_agent: test-agent
  timeout_seconds: 10
  rps: 0.5
  domains:
    www.saramin.co.kr: 0.25
llm:
  provider: anthropic
  api_key: secret
  model: claude-test
scrape:
  provider: readability
storage:
  backend: gcs
  gcs_bucket: devfeed
  prefix: web
pubsub:
  provider: memory
  topic: records
events:
  limit: 2
jobs:
  keyword: golang
  limit: 0
blogs:
  feeds:
    - name: 토스
      url: https://toss.tech/rss.xml
      type: company
      category: FE
`
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Logging.Development)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "test-agent", cfg.HTTP.UserAgent)
	assert.Equal(t, 10*time.Second, cfg.HTTP.Timeout())
	assert.InDelta(t, 0.25, cfg.HTTP.Domains["www.saramin.co.kr"], 0.0001)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "claude-test", cfg.LLM.Model)
	assert.Equal(t, "gcs", cfg.Storage.Backend)
	assert.Equal(t, "devfeed", cfg.Storage.GCSBucket)
	assert.Equal(t, "records", cfg.PubSub.Topic)
	assert.Equal(t, 2, cfg.Events.Limit)
	assert.Equal(t, "golang", cfg.Jobs.Keyword)
	assert.Zero(t, cfg.Jobs.Limit)
	assert.Equal(t, []techblog.Feed{{Name: "토스", URL: "https://toss.tech/rss.xml", Type: "company", Category: "FE"}}, cfg.Blogs.Feeds)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Storage.Backend)
	assert.Equal(t, "auto", cfg.Scrape.Provider)
	assert.Equal(t, 3, cfg.LLM.MaxAttempts)
	assert.Equal(t, 4*time.Second, Millis(cfg.Events.DelayMs))
	assert.Equal(t, 10*time.Second, Millis(cfg.Jobs.DelayMs))
	assert.Equal(t, 15000, cfg.Events.MaxContent)
	assert.Equal(t, 30000, cfg.Jobs.MaxContent)
	assert.Equal(t, "blogs", cfg.DB.Table)
	assert.Equal(t, "dev-events.json", cfg.Events.JSONPath)
	assert.Equal(t, "recruit-jobs.json", cfg.Jobs.JSONPath)
	assert.Equal(t, techblog.DefaultFeeds, cfg.Blogs.Feeds)
}

func TestLoadEnvironmentAliases(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "gemini-key")
	t.Setenv("WEB_DATA_DIR", "/srv/web/data")
	t.Setenv("DEV_EVENT_JSON_PATH", "dev-events.json")
	t.Setenv("TAG_REQUEST_DELAY_MS", "250")
	t.Setenv("SUPABASE_BLOGS_TABLE", "blogs_legacy")
	t.Setenv("DEVFEED_DB_TABLE", "articles")
	t.Setenv("DEVFEED_JOBS_LIMIT", "3")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "gemini-key", cfg.LLM.APIKey)
	assert.Equal(t, "/srv/web/data", cfg.Storage.BaseDir)
	assert.Equal(t, "dev-events.json", cfg.Events.JSONPath)
	assert.Equal(t, 250, cfg.Tagger.RequestDelayMs)
	assert.Equal(t, "articles", cfg.DB.Table, "prefixed variable wins over the alias")
	assert.Equal(t, 3, cfg.Jobs.Limit)
}

func TestLoadAbsoluteJSONPathAliases(t *testing.T) {
	dir := t.TempDir()
	events := filepath.Join(dir, "web", "public", "data", "dev-events.json")
	jobs := filepath.Join(dir, "recruit-jobs.json")
	t.Setenv("WEB_DATA_DIR", filepath.Join(dir, "data"))
	t.Setenv("DEV_EVENT_JSON_PATH", events)
	t.Setenv("SARAMIN_JOBS_JSON_PATH", jobs)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, events, cfg.Events.JSONPath)
	assert.Equal(t, jobs, cfg.Jobs.JSONPath)
	assert.Equal(t, filepath.Join(dir, "data"), cfg.Storage.BaseDir)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() Config {
		return Config{
			HTTP:    HTTPConfig{TimeoutSeconds: 30},
			LLM:     LLMConfig{Provider: "none", MaxAttempts: 3},
			Scrape:  ScrapeConfig{Provider: "readability"},
			Storage: StorageConfig{Backend: "local"},
			PubSub:  PubSubConfig{Provider: "none"},
			Server:  ServerConfig{Port: 8080},
			Events:  EventsConfig{JSONPath: "events.json"},
			Jobs:    JobsConfig{JSONPath: "jobs.json"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.LLM.Provider = "bard" },
			wantErr: "llm.provider must be one of",
		},
		{
			name:    "provider without key",
			mutate:  func(c *Config) { c.LLM.Provider = "openai" },
			wantErr: "llm.api_key must be set",
		},
		{
			name:    "firecrawl without key",
			mutate:  func(c *Config) { c.Scrape.Provider = "firecrawl" },
			wantErr: "scrape.firecrawl_api_key",
		},
		{
			name:    "gcs without bucket",
			mutate:  func(c *Config) { c.Storage.Backend = "gcs" },
			wantErr: "storage.gcs_bucket",
		},
		{
			name:    "gcp pubsub without project",
			mutate:  func(c *Config) { c.PubSub.Provider = "gcp" },
			wantErr: "pubsub.project_id",
		},
		{
			name:    "feed without url",
			mutate:  func(c *Config) { c.Blogs.Feeds = []techblog.Feed{{Name: "x"}} },
			wantErr: "blogs.feeds",
		},
		{
			name: "absolute json path on gcs",
			mutate: func(c *Config) {
				c.Storage = StorageConfig{Backend: "gcs", GCSBucket: "devfeed"}
				c.Events.JSONPath = "/srv/web/dev-events.json"
			},
			wantErr: "must be relative when storage.backend is gcs",
		},
		{
			name:   "absolute json path on local",
			mutate: func(c *Config) { c.Jobs.JSONPath = "/srv/web/recruit-jobs.json" },
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.HTTP.TimeoutSeconds = 0 },
			wantErr: "http.timeout_seconds",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
