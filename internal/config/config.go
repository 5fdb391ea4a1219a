// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Crawler CrawlerConfig `mapstructure:"crawler"`
	Images  ImagesConfig  `mapstructure:"images"`
	Storage StorageConfig `mapstructure:"storage"`
	DB      DBConfig      `mapstructure:"db"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// CrawlerConfig governs the reconciliation policy of the engine.
type CrawlerConfig struct {
	Handler            string   `mapstructure:"handler"`
	UserAgent          string   `mapstructure:"user_agent"`
	TimeoutSeconds     int      `mapstructure:"timeout_seconds"`
	Fields             []string `mapstructure:"fields"`
	ExcludedTypes      []string `mapstructure:"excluded_types"`
	ExcludedCategories []string `mapstructure:"excluded_categories"`
	ExcludedRegions    []string `mapstructure:"excluded_regions"`
}

// ImagesConfig governs artwork resolution and caching.
type ImagesConfig struct {
	Download         bool              `mapstructure:"download"`
	ConvertWebP      bool              `mapstructure:"convert_webp"`
	ResizeThumb      ResizeConfig      `mapstructure:"resize_thumb"`
	ResizePoster     ResizeConfig      `mapstructure:"resize_poster"`
	AlternateSources []AlternateSource `mapstructure:"alternate_sources"`
}

// ResizeConfig bounds one artwork role; zero dimensions disable resizing.
type ResizeConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Width   int  `mapstructure:"width"`
	Height  int  `mapstructure:"height"`
}

// AlternateSource is one secondary metadata API queried for replacement
// artwork URLs. Endpoint carries a %s placeholder for the movie slug; Marker
// selects how the response's status field signals success.
type AlternateSource struct {
	Name     string `mapstructure:"name"`
	Endpoint string `mapstructure:"endpoint"`
	Marker   string `mapstructure:"marker"`
}

// StorageConfig selects and configures the blob store backend.
type StorageConfig struct {
	// Provider is one of "local", "gcs", "memory" or "noop".
	Provider      string `mapstructure:"provider"`
	BaseDir       string `mapstructure:"base_dir"`
	PublicBaseURL string `mapstructure:"public_base_url"`
	GCSBucket     string `mapstructure:"gcs_bucket"`
}

// DBConfig controls access to the catalog database.
type DBConfig struct {
	// DSN selects the backend: empty means the in-memory catalog,
	// otherwise a postgres connection string.
	DSN string `mapstructure:"dsn"`
}

// PubSubConfig holds metadata for movie-updated event notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("OPHIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

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

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// DefaultFields is the update whitelist applied when none is configured:
// every scalar attribute plus every association kind except studios.
var DefaultFields = []string{
	"slug", "name", "origin_name", "publish_year", "content", "type", "status",
	"thumb_url", "poster_url", "is_copyright", "trailer_url", "quality",
	"language", "episode_time", "episode_current", "episode_total", "notify",
	"showtimes", "is_shown_in_theater",
	"actors", "directors", "categories", "regions", "tags", "episodes",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("crawler.handler", "ophim")
	v.SetDefault("crawler.user_agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/111.0.0.0 Safari/537.36")
	v.SetDefault("crawler.timeout_seconds", 30)
	v.SetDefault("crawler.fields", DefaultFields)
	v.SetDefault("images.download", true)
	v.SetDefault("images.convert_webp", true)
	v.SetDefault("images.alternate_sources", []map[string]any{
		{"name": "phimapi", "endpoint": "https://phimapi.com/phim/%s", "marker": "bool"},
		{"name": "nguonc", "endpoint": "https://phim.nguonc.com/api/film/%s", "marker": "success"},
	})
	v.SetDefault("storage.provider", "local")
	v.SetDefault("storage.base_dir", "data/images")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Crawler.Handler == "" {
		return fmt.Errorf("crawler.handler must be set")
	}
	if c.Crawler.TimeoutSeconds <= 0 {
		return fmt.Errorf("crawler.timeout_seconds must be > 0")
	}
	switch c.Storage.Provider {
	case "local", "gcs", "memory", "noop":
	default:
		return fmt.Errorf("storage.provider %q is not supported", c.Storage.Provider)
	}
	if c.Storage.Provider == "gcs" && c.Storage.GCSBucket == "" {
		return fmt.Errorf("storage.gcs_bucket must be set when storage.provider is gcs")
	}
	if c.PubSub.TopicName != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when pubsub.topic_name is set")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	for _, source := range c.Images.AlternateSources {
		if !strings.Contains(source.Endpoint, "%s") {
			return fmt.Errorf("alternate source %q endpoint must carry a %%s slug placeholder", source.Name)
		}
	}
	return nil
}

// FetchTimeout converts the crawler timeout config into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Crawler.TimeoutSeconds) * time.Second
}
