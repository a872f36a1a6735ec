// Package config loads and validates grabber configuration via Viper.
package config

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/gallery-grabber/internal/grabber"
)

// EnvPrefix prefixes every environment override, e.g. GRABBER_GRABBER_OUTPUT.
const EnvPrefix = "GRABBER"

// Config captures every knob loaded via Viper.
type Config struct {
	Grabber  GrabberConfig  `mapstructure:"grabber"`
	Headless HeadlessConfig `mapstructure:"headless"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Progress ProgressConfig `mapstructure:"progress"`
	DB       DBConfig       `mapstructure:"db"`
	Storage  StorageConfig  `mapstructure:"storage"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
}

// GrabberConfig holds the run itself.
type GrabberConfig struct {
	Target            string `mapstructure:"target"`
	Output            string `mapstructure:"output"`
	Mode              string `mapstructure:"mode"`
	Headless          bool   `mapstructure:"headless"`
	Threads           int    `mapstructure:"threads"`
	MaxRequestRetries int    `mapstructure:"max_request_retries"`
	APIHost           string `mapstructure:"api_host"`
}

// HeadlessConfig tunes the gallery scraper.
type HeadlessConfig struct {
	RenderTimeoutSeconds int `mapstructure:"render_timeout_seconds"`
	ScrollSettleMs       int `mapstructure:"scroll_settle_ms"`
}

// HTTPConfig configures the HTTP getters.
type HTTPConfig struct {
	// TimeoutSeconds bounds one media request; 0 means no client timeout.
	TimeoutSeconds     int    `mapstructure:"timeout_seconds"`
	PageTimeoutSeconds int    `mapstructure:"page_timeout_seconds"`
	UserAgent          string `mapstructure:"user_agent"`
	// RateLimitRPS throttles requests per host; 0 disables throttling.
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
	// RespectRobots makes page fetches honour robots.txt.
	RespectRobots  bool    `mapstructure:"respect_robots"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// MetricsConfig enables the status server when Addr is set.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// ProgressConfig sizes the progress hub.
type ProgressConfig struct {
	BufferSize     int `mapstructure:"buffer_size"`
	MaxBatchEvents int `mapstructure:"max_batch_events"`
	MaxBatchWaitMs int `mapstructure:"max_batch_wait_ms"`
}

// DBConfig enables the download ledger when DSN is set.
type DBConfig struct {
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
}

// StorageConfig enables the GCS mirror when GCSBucket is set.
type StorageConfig struct {
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// PubSubConfig enables notifications when TopicName is set.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// Load builds a Config from defaults, an optional file, the environment and
// finally overrides (typically explicit command-line flags keyed by config key).
func Load(path string, overrides map[string]any) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	for key, value := range overrides {
		v.Set(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("grabber.target", "")
	v.SetDefault("grabber.output", "")
	v.SetDefault("grabber.mode", string(grabber.ModeVideo))
	v.SetDefault("grabber.headless", false)
	v.SetDefault("grabber.threads", grabber.DefaultThreads)
	v.SetDefault("grabber.max_request_retries", grabber.MaxRequestRetries)
	v.SetDefault("grabber.api_host", grabber.DefaultAPIHost)
	v.SetDefault("headless.render_timeout_seconds", int(grabber.RenderTimeout/time.Second))
	v.SetDefault("headless.scroll_settle_ms", 750)
	v.SetDefault("http.timeout_seconds", 0)
	v.SetDefault("http.page_timeout_seconds", 15)
	v.SetDefault("http.user_agent", "gallery-grabber/0.1")
	v.SetDefault("http.rate_limit_rps", 0.0)
	v.SetDefault("http.rate_limit_burst", 1)
	v.SetDefault("http.respect_robots", false)
	v.SetDefault("logging.development", true)
	v.SetDefault("metrics.addr", "")
	v.SetDefault("progress.buffer_size", 4096)
	v.SetDefault("progress.max_batch_events", 256)
	v.SetDefault("progress.max_batch_wait_ms", 500)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.table", "downloads")
	v.SetDefault("storage.gcs_bucket", "")
	v.SetDefault("storage.prefix", "")
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")
}

// Validate ensures configuration is coherent.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Grabber.Output) == "" {
		return fmt.Errorf("grabber.output is required")
	}
	if _, err := grabber.ParseMode(c.Grabber.Mode); err != nil {
		return fmt.Errorf("grabber.mode: %w", err)
	}
	if c.Grabber.Threads <= 0 {
		return fmt.Errorf("grabber.threads must be > 0")
	}
	if c.Grabber.MaxRequestRetries <= 0 {
		return fmt.Errorf("grabber.max_request_retries must be > 0")
	}
	if c.Headless.RenderTimeoutSeconds <= 0 {
		return fmt.Errorf("headless.render_timeout_seconds must be > 0")
	}
	if c.HTTP.TimeoutSeconds < 0 {
		return fmt.Errorf("http.timeout_seconds must be >= 0")
	}
	if c.HTTP.RateLimitRPS < 0 {
		return fmt.Errorf("http.rate_limit_rps must be >= 0")
	}
	if c.PubSub.TopicName != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when pubsub.topic_name is set")
	}
	return nil
}

// Mode returns the parsed run mode. Call after Validate.
func (c Config) Mode() grabber.Mode {
	mode, err := grabber.ParseMode(c.Grabber.Mode)
	if err != nil {
		return grabber.ModeVideo
	}
	return mode
}

// Identifier is the per-target sub-directory name, or "".
func (c Config) Identifier() string {
	return grabber.TargetIdentifier(c.Grabber.Target)
}

// OutputDir is where this run reads cues and writes files.
func (c Config) OutputDir() string {
	return filepath.Join(c.Grabber.Output, c.Identifier())
}

// MirrorPrefix is the object prefix for mirrored files.
func (c Config) MirrorPrefix() string {
	return path.Join(strings.Trim(c.Storage.Prefix, "/"), c.Identifier())
}

// RenderTimeout converts the scraper wait to a duration.
func (c Config) RenderTimeout() time.Duration {
	return time.Duration(c.Headless.RenderTimeoutSeconds) * time.Second
}

// ScrollSettle converts the scroll pause to a duration.
func (c Config) ScrollSettle() time.Duration {
	return time.Duration(c.Headless.ScrollSettleMs) * time.Millisecond
}

// MediaTimeout converts the media request timeout to a duration.
func (c Config) MediaTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// PageTimeout converts the page request timeout to a duration.
func (c Config) PageTimeout() time.Duration {
	return time.Duration(c.HTTP.PageTimeoutSeconds) * time.Second
}

// MaxBatchWait converts the hub flush interval to a duration.
func (c Config) MaxBatchWait() time.Duration {
	return time.Duration(c.Progress.MaxBatchWaitMs) * time.Millisecond
}
