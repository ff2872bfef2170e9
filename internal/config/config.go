// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/JakeFAU/devfeed-crawler/internal/sources/techblog"
)

// EnvPrefix prefixes every environment override, e.g. DEVFEED_LLM_MODEL.
const EnvPrefix = "DEVFEED"

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Logging  LoggingConfig  `mapstructure:"logging"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Scrape   ScrapeConfig   `mapstructure:"scrape"`
	Headless HeadlessConfig `mapstructure:"headless"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Storage  StorageConfig  `mapstructure:"storage"`
	DB       DBConfig       `mapstructure:"db"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Server   ServerConfig   `mapstructure:"server"`
	Events   EventsConfig   `mapstructure:"events"`
	Jobs     JobsConfig     `mapstructure:"jobs"`
	Blogs    BlogsConfig    `mapstructure:"blogs"`
	Tagger   TaggerConfig   `mapstructure:"tagger"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// HTTPConfig configures the shared page fetcher.
type HTTPConfig struct {
	UserAgent      string             `mapstructure:"user_agent"`
	TimeoutSeconds int                `mapstructure:"timeout_seconds"`
	RespectRobots  bool               `mapstructure:"respect_robots"`
	RPS            float64            `mapstructure:"rps"`
	Burst          int                `mapstructure:"burst"`
	Domains        map[string]float64 `mapstructure:"domains"`
}

// Timeout returns the per-request timeout.
func (c HTTPConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LLMConfig selects the text generation provider.
type LLMConfig struct {
	Provider       string `mapstructure:"provider"`
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	BaseURL        string `mapstructure:"base_url"`
	MaxTokens      int    `mapstructure:"max_tokens"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxAttempts    int    `mapstructure:"max_attempts"`
	RetryBaseMs    int    `mapstructure:"retry_base_ms"`
	RetryMaxMs     int    `mapstructure:"retry_max_ms"`
}

// ScrapeConfig picks how article pages are turned into text.
type ScrapeConfig struct {
	// Provider is readability, firecrawl or auto (firecrawl with a
	// readability fallback).
	Provider        string `mapstructure:"provider"`
	FirecrawlAPIKey string `mapstructure:"firecrawl_api_key"`
	FirecrawlURL    string `mapstructure:"firecrawl_url"`
	CacheTTLSeconds int    `mapstructure:"cache_ttl_seconds"`
}

// HeadlessConfig configures the headless rendering subsystem.
type HeadlessConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	NavTimeoutSec  int  `mapstructure:"nav_timeout_seconds"`
	SettleMs       int  `mapstructure:"settle_ms"`
	MinVisibleText int  `mapstructure:"min_visible_text"`
}

// RedisConfig points at the optional scrape cache.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// StorageConfig sets where the JSON documents live.
type StorageConfig struct {
	Backend   string `mapstructure:"backend"`
	BaseDir   string `mapstructure:"base_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// DBConfig controls access to the article table.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	PageSize int    `mapstructure:"page_size"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// PubSubConfig holds metadata for record.created notifications.
type PubSubConfig struct {
	// Provider is none, memory or gcp.
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// MetricsConfig enables the end-of-run Pushgateway push.
type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	Job            string `mapstructure:"job"`
}

// ServerConfig controls the read API.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// EventsConfig tunes the event list source.
type EventsConfig struct {
	ReadmeURL        string `mapstructure:"readme_url"`
	// JSONPath is relative to storage.base_dir, or absolute for the local
	// backend.
	JSONPath         string `mapstructure:"json_path"`
	Limit            int    `mapstructure:"limit"`
	DelayMs          int    `mapstructure:"delay_ms"`
	MaxContent       int    `mapstructure:"max_content"`
	ThumbnailDelayMs int    `mapstructure:"thumbnail_delay_ms"`
}

// JobsConfig tunes the job board source.
type JobsConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	Keyword    string `mapstructure:"keyword"`
	JSONPath   string `mapstructure:"json_path"`
	Limit      int    `mapstructure:"limit"`
	DelayMs    int    `mapstructure:"delay_ms"`
	MaxContent int    `mapstructure:"max_content"`
}

// BlogsConfig tunes the feed source.
type BlogsConfig struct {
	Limit            int             `mapstructure:"limit"`
	DelayMs          int             `mapstructure:"delay_ms"`
	MaxContent       int             `mapstructure:"max_content"`
	FeedDelayMs      int             `mapstructure:"feed_delay_ms"`
	ThumbnailDelayMs int             `mapstructure:"thumbnail_delay_ms"`
	Feeds            []techblog.Feed `mapstructure:"feeds"`
}

// TaggerConfig tunes the model tag classifier.
type TaggerConfig struct {
	RequestDelayMs int `mapstructure:"request_delay_ms"`
	RetryBaseMs    int `mapstructure:"retry_base_ms"`
}

// Millis converts a millisecond setting.
func Millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// aliases binds the environment names the deployment already uses.
var aliases = map[string]string{
	"llm.api_key":              "GEMINI_API_KEY",
	"scrape.firecrawl_api_key": "FIRECRAWL_API_KEY",
	"storage.base_dir":         "WEB_DATA_DIR",
	"events.json_path":         "DEV_EVENT_JSON_PATH",
	"jobs.json_path":           "SARAMIN_JOBS_JSON_PATH",
	"db.table":                 "SUPABASE_BLOGS_TABLE",
	"db.dsn":                   "DATABASE_URL",
	"tagger.request_delay_ms":  "TAG_REQUEST_DELAY_MS",
	"tagger.retry_base_ms":     "TAG_RETRY_BASE_MS",
}

var (
	llmProviders    = []string{"", "none", "anthropic", "openai", "gemini"}
	scrapeProviders = []string{"readability", "firecrawl", "auto"}
	storageBackends = []string{"local", "gcs"}
	pubsubProviders = []string{"none", "memory", "gcp"}
)

// Load builds a Config from .env files, an optional YAML file and the
// environment.
func Load(path string) (Config, error) {
	if err := loadDotenv(".env.local", ".env"); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	for key, env := range aliases {
		if err := v.BindEnv(key, envName(key), env); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.LLM.Provider == "" && cfg.LLM.APIKey != "" {
		cfg.LLM.Provider = "gemini"
	}
	if len(cfg.Blogs.Feeds) == 0 {
		cfg.Blogs.Feeds = techblog.DefaultFeeds
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// loadDotenv loads each existing file in order. Variables already set win.
func loadDotenv(files ...string) error {
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", file, err)
		}
	}
	return nil
}

func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("http.user_agent", "Mozilla/5.0 (compatible; devfeed-crawler/1.0)")
	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("http.respect_robots", false)
	v.SetDefault("http.rps", 2.0)
	v.SetDefault("http.burst", 1)
	v.SetDefault("llm.provider", "")
	v.SetDefault("llm.model", "gemini-2.0-flash")
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.timeout_seconds", 120)
	v.SetDefault("llm.max_attempts", 3)
	v.SetDefault("llm.retry_base_ms", 2000)
	v.SetDefault("llm.retry_max_ms", 30000)
	v.SetDefault("scrape.provider", "auto")
	v.SetDefault("scrape.firecrawl_url", "https://api.firecrawl.dev")
	v.SetDefault("scrape.cache_ttl_seconds", 86400)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.nav_timeout_seconds", 25)
	v.SetDefault("headless.settle_ms", 1500)
	v.SetDefault("headless.min_visible_text", 500)
	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.base_dir", "data")
	v.SetDefault("db.table", "blogs")
	v.SetDefault("db.page_size", 1000)
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("pubsub.provider", "none")
	v.SetDefault("pubsub.topic", "devfeed-records")
	v.SetDefault("metrics.job", "devfeed-crawler")
	v.SetDefault("server.port", 8080)
	v.SetDefault("events.readme_url", "https://raw.githubusercontent.com/brave-people/Dev-Event/master/README.md")
	v.SetDefault("events.json_path", "dev-events.json")
	v.SetDefault("events.limit", 5)
	v.SetDefault("events.delay_ms", 4000)
	v.SetDefault("events.max_content", 15000)
	v.SetDefault("events.thumbnail_delay_ms", 500)
	v.SetDefault("jobs.base_url", "https://www.saramin.co.kr")
	v.SetDefault("jobs.keyword", "개발자")
	v.SetDefault("jobs.json_path", "recruit-jobs.json")
	v.SetDefault("jobs.limit", 10)
	v.SetDefault("jobs.delay_ms", 10000)
	v.SetDefault("jobs.max_content", 30000)
	v.SetDefault("blogs.limit", 10)
	v.SetDefault("blogs.delay_ms", 4000)
	v.SetDefault("blogs.max_content", 20000)
	v.SetDefault("blogs.feed_delay_ms", 1000)
	v.SetDefault("blogs.thumbnail_delay_ms", 500)
	v.SetDefault("tagger.request_delay_ms", 1000)
	v.SetDefault("tagger.retry_base_ms", 2000)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if !slices.Contains(llmProviders, strings.ToLower(c.LLM.Provider)) {
		return fmt.Errorf("llm.provider must be one of none, anthropic, openai, gemini")
	}
	if p := strings.ToLower(c.LLM.Provider); p != "" && p != "none" && c.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key must be set when llm.provider is %s", p)
	}
	if c.LLM.MaxAttempts <= 0 {
		return fmt.Errorf("llm.max_attempts must be > 0")
	}
	if !slices.Contains(scrapeProviders, c.Scrape.Provider) {
		return fmt.Errorf("scrape.provider must be one of readability, firecrawl, auto")
	}
	if c.Scrape.Provider == "firecrawl" && c.Scrape.FirecrawlAPIKey == "" {
		return fmt.Errorf("scrape.firecrawl_api_key must be set when scrape.provider is firecrawl")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if !slices.Contains(storageBackends, c.Storage.Backend) {
		return fmt.Errorf("storage.backend must be one of local, gcs")
	}
	if c.Storage.Backend == "gcs" && c.Storage.GCSBucket == "" {
		return fmt.Errorf("storage.gcs_bucket must be set when storage.backend is gcs")
	}
	if !slices.Contains(pubsubProviders, c.PubSub.Provider) {
		return fmt.Errorf("pubsub.provider must be one of none, memory, gcp")
	}
	if c.PubSub.Provider == "gcp" && (c.PubSub.ProjectID == "" || c.PubSub.Topic == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic must be set when pubsub.provider is gcp")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Events.JSONPath == "" || c.Jobs.JSONPath == "" {
		return fmt.Errorf("events.json_path and jobs.json_path must be set")
	}
	if c.Storage.Backend == "gcs" && (filepath.IsAbs(c.Events.JSONPath) || filepath.IsAbs(c.Jobs.JSONPath)) {
		return fmt.Errorf("events.json_path and jobs.json_path must be relative when storage.backend is gcs")
	}
	if c.Headless.Enabled && c.Headless.NavTimeoutSec <= 0 {
		return fmt.Errorf("headless.nav_timeout_seconds must be > 0 when headless is enabled")
	}
	for _, feed := range c.Blogs.Feeds {
		if feed.Name == "" || feed.URL == "" {
			return fmt.Errorf("blogs.feeds entries need a name and a url")
		}
	}
	return nil
}
