package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// Values are read by viper from a config file or environment variables.
type Config struct {
	Timezone   string           `mapstructure:"timezone"`
	Feeds      []string         `mapstructure:"feeds"`
	Schedule   ScheduleConfig   `mapstructure:"schedule"`
	Collector  CollectorConfig  `mapstructure:"collector"`
	Summarizer SummarizerConfig `mapstructure:"summarizer"`
	Anthropic  AnthropicConfig  `mapstructure:"anthropic"`
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	Digest     DigestConfig     `mapstructure:"digest"`
	Store      StoreConfig      `mapstructure:"store"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Log        LogConfig        `mapstructure:"log"`

	location *time.Location
}

// ScheduleConfig decides which window a tick belongs to.
type ScheduleConfig struct {
	StartHour    int    `mapstructure:"start_hour"`
	EndHour      int    `mapstructure:"end_hour"`
	DeepDiveHour int    `mapstructure:"deep_dive_hour"`
	Cron         string `mapstructure:"cron"`
}

// CollectorConfig bounds how much is read per invocation.
type CollectorConfig struct {
	FlashPerSource int           `mapstructure:"flash_per_source"`
	FlashMaxItems  int           `mapstructure:"flash_max_items"`
	DeepPerSource  int           `mapstructure:"deep_per_source"`
	DeepMaxItems   int           `mapstructure:"deep_max_items"`
	MinContent     int           `mapstructure:"min_content"`
	MaxContent     int           `mapstructure:"max_content"`
	FallbackChars  int           `mapstructure:"fallback_chars"`
	Extractor      string        `mapstructure:"extractor"`
	FetchTimeout   time.Duration `mapstructure:"fetch_timeout"`
	ExtractRate    float64       `mapstructure:"extract_rate"`
}

// SummarizerConfig selects the models behind each tier.
type SummarizerConfig struct {
	FastModel     string        `mapstructure:"fast_model"`
	FastMaxTokens int64         `mapstructure:"fast_max_tokens"`
	DeepModel     string        `mapstructure:"deep_model"`
	DeepMaxTokens int64         `mapstructure:"deep_max_tokens"`
	FastChars     int           `mapstructure:"fast_chars"`
	DeepChars     int           `mapstructure:"deep_chars"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxRetries    int           `mapstructure:"max_retries"`
}

// AnthropicConfig carries API credentials.
type AnthropicConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken  string `mapstructure:"bot_token"`
	ChatID    string `mapstructure:"chat_id"`
	ServerURL string `mapstructure:"server_url"`
}

// DigestConfig tweaks message rendering.
type DigestConfig struct {
	AttachImage bool `mapstructure:"attach_image"`
}

// StoreConfig selects the ledger backend.
type StoreConfig struct {
	Driver        string        `mapstructure:"driver"`
	BadgerPath    string        `mapstructure:"badger_path"`
	SQLitePath    string        `mapstructure:"sqlite_path"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	GCInterval    time.Duration `mapstructure:"gc_interval"`
}

// MetricsConfig exposes Prometheus metrics in serve mode. Empty Addr disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// LogConfig sets the logrus level.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

var defaults = map[string]any{
	"timezone": "Europe/Rome",
	"feeds": []string{
		"https://www.ansa.it/sito/ansait_rss.xml",
		"https://www.repubblica.it/rss/homepage/rss2.0.xml",
		"https://www.ilpost.it/feed/",
	},

	"schedule.start_hour":     7,
	"schedule.end_hour":       23,
	"schedule.deep_dive_hour": 20,
	"schedule.cron":           "* * * * *",

	"collector.flash_per_source": 5,
	"collector.flash_max_items":  5,
	"collector.deep_per_source":  4,
	"collector.deep_max_items":   12,
	"collector.min_content":      50,
	"collector.max_content":      2000,
	"collector.fallback_chars":   300,
	"collector.extractor":        "readability",
	"collector.fetch_timeout":    10 * time.Second,
	"collector.extract_rate":     2.0,

	"summarizer.fast_model":      "claude-3-5-haiku-latest",
	"summarizer.fast_max_tokens": 1200,
	"summarizer.deep_model":      "claude-sonnet-4-20250514",
	"summarizer.deep_max_tokens": 4000,
	"summarizer.fast_chars":      600,
	"summarizer.deep_chars":      1500,
	"summarizer.timeout":         90 * time.Second,
	"summarizer.max_retries":     1,

	"anthropic.api_key":  "",
	"anthropic.base_url": "",

	"telegram.bot_token":  "",
	"telegram.chat_id":    "",
	"telegram.server_url": "",

	"digest.attach_image": false,

	"store.driver":         "badger",
	"store.badger_path":    "./badger_data",
	"store.sqlite_path":    "./data/news_bot.db",
	"store.redis_addr":     "localhost:6379",
	"store.redis_password": "",
	"store.redis_db":       0,
	"store.gc_interval":    10 * time.Minute,

	"metrics.addr": "",
	"log.level":    "info",
}

// LoadConfig reads configuration from file or environment variables.
// Nested keys map to upper-case env names with dots replaced by underscores,
// e.g. telegram.bot_token -> TELEGRAM_BOT_TOKEN.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine: defaults and env vars still apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("unknown timezone %q: %w", c.Timezone, err)
	}
	c.location = loc

	s := c.Schedule
	if s.StartHour < 0 || s.StartHour > 23 || s.EndHour < 1 || s.EndHour > 24 || s.StartHour >= s.EndHour {
		return fmt.Errorf("invalid publishing hours [%d, %d)", s.StartHour, s.EndHour)
	}
	if s.DeepDiveHour < 0 || s.DeepDiveHour > 23 {
		return fmt.Errorf("invalid deep dive hour %d", s.DeepDiveHour)
	}
	if len(c.Feeds) == 0 {
		return errors.New("no feeds configured")
	}
	switch c.Store.Driver {
	case "badger", "sqlite", "redis", "memory":
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	switch c.Collector.Extractor {
	case "readability", "rod", "none":
	default:
		return fmt.Errorf("unknown extractor %q", c.Collector.Extractor)
	}
	return nil
}

// RequireDelivery checks the credentials needed to summarize and publish.
func (c Config) RequireDelivery() error {
	if c.Telegram.BotToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is not set")
	}
	if c.Telegram.ChatID == "" {
		return errors.New("TELEGRAM_CHAT_ID is not set")
	}
	if c.Anthropic.APIKey == "" {
		return errors.New("ANTHROPIC_API_KEY is not set")
	}
	return nil
}

// Location is the time zone windows are computed in.
func (c Config) Location() *time.Location {
	if c.location != nil {
		return c.location
	}
	return time.UTC
}
