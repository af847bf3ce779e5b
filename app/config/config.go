package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/address-validator/internal/swisspost"
	"github.com/spf13/viper"
)

// AppConfig cấu hình HTTP server
type AppConfig struct {
	Port string `mapstructure:"port"`
	Env  string `mapstructure:"env"`
}

// SwissPostConfig OAuth credentials và address API
type SwissPostConfig struct {
	TokenURL          string        `mapstructure:"token_url"`
	BaseURL           string        `mapstructure:"base_url"`
	ClientID          string        `mapstructure:"client_id"`
	ClientSecret      string        `mapstructure:"client_secret"`
	Scope             string        `mapstructure:"scope"`
	LookupTimeout     time.Duration `mapstructure:"lookup_timeout"`
	ValidationTimeout time.Duration `mapstructure:"validation_timeout"`
	TokenTimeout      time.Duration `mapstructure:"token_timeout"`
	RefreshMargin     time.Duration `mapstructure:"refresh_margin"`
	TokenLifetime     time.Duration `mapstructure:"token_lifetime"`
	RateLimit         float64       `mapstructure:"rate_limit"`
	RateBurst         int           `mapstructure:"rate_burst"`
}

// RedisConfig shared token store. Empty URL keeps the token in memory only.
type RedisConfig struct {
	URL string `mapstructure:"url"`
}

// CacheConfig lookup LRU. Size 0 disables it.
type CacheConfig struct {
	LookupSize int           `mapstructure:"lookup_size"`
	LookupTTL  time.Duration `mapstructure:"lookup_ttl"`
}

// BatchConfig giới hạn xử lý batch
type BatchConfig struct {
	Concurrency  int           `mapstructure:"concurrency"`
	MaxSize      int           `mapstructure:"max_size"`
	MaxJobs      int           `mapstructure:"max_jobs"`
	JobRetention time.Duration `mapstructure:"job_retention"`
}

// Config is the typed view of config/app.yaml plus environment overrides.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	SwissPost SwissPostConfig `mapstructure:"swisspost"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Batch     BatchConfig     `mapstructure:"batch"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.env", "development")

	v.SetDefault("swisspost.token_url", "https://api.post.ch/OAuth/token")
	v.SetDefault("swisspost.base_url", "https://dcapi.apis.post.ch/address/v1")
	v.SetDefault("swisspost.client_id", "")
	v.SetDefault("swisspost.client_secret", "")
	v.SetDefault("swisspost.scope", "DCAPI_ADDRESS_VALIDATE DCAPI_ADDRESS_AUTOCOMPLETE")
	v.SetDefault("swisspost.lookup_timeout", 10*time.Second)
	v.SetDefault("swisspost.validation_timeout", 15*time.Second)
	v.SetDefault("swisspost.token_timeout", 10*time.Second)
	v.SetDefault("swisspost.refresh_margin", 30*time.Second)
	v.SetDefault("swisspost.token_lifetime", 300*time.Second)
	v.SetDefault("swisspost.rate_limit", 0.0)
	v.SetDefault("swisspost.rate_burst", 1)

	v.SetDefault("redis.url", "")

	v.SetDefault("cache.lookup_size", 0)
	v.SetDefault("cache.lookup_ttl", time.Hour)

	v.SetDefault("batch.concurrency", 4)
	v.SetDefault("batch.max_size", 500)
	v.SetDefault("batch.max_jobs", 100)
	v.SetDefault("batch.job_retention", time.Hour)
}

// Load reads app.yaml from the given directories (default ./config and .)
// and applies environment overrides: swisspost.client_id <- SWISSPOST_CLIENT_ID,
// app.port <- APP_PORT, redis.url <- REDIS_URL and so on. A missing file is
// not an error.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"./config", "."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.SwissPost.ClientID = strings.TrimSpace(cfg.SwissPost.ClientID)
	cfg.SwissPost.ClientSecret = strings.TrimSpace(cfg.SwissPost.ClientSecret)
	cfg.SwissPost.Scope = strings.TrimSpace(cfg.SwissPost.Scope)
	return &cfg, nil
}

// MissingCredentials returns the env names of the unset credentials.
func (c *Config) MissingCredentials() []string {
	var missing []string
	if c.SwissPost.ClientID == "" {
		missing = append(missing, "SWISSPOST_CLIENT_ID")
	}
	if c.SwissPost.ClientSecret == "" {
		missing = append(missing, "SWISSPOST_CLIENT_SECRET")
	}
	if c.SwissPost.Scope == "" {
		missing = append(missing, "SWISSPOST_SCOPE")
	}
	return missing
}

// Validate returns an error wrapping swisspost.ErrConfig when credentials are missing.
func (c *Config) Validate() error {
	if missing := c.MissingCredentials(); len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", swisspost.ErrConfig, strings.Join(missing, ", "))
	}
	if c.Batch.Concurrency < 1 {
		return fmt.Errorf("batch.concurrency must be >= 1, got %d", c.Batch.Concurrency)
	}
	return nil
}

// IsProduction reports app.env == production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.App.Env, "production")
}

// OAuth maps the swisspost section onto the token cache config.
func (c *Config) OAuth() swisspost.OAuthConfig {
	return swisspost.OAuthConfig{
		TokenURL:        c.SwissPost.TokenURL,
		ClientID:        c.SwissPost.ClientID,
		ClientSecret:    c.SwissPost.ClientSecret,
		Scope:           c.SwissPost.Scope,
		Timeout:         c.SwissPost.TokenTimeout,
		RefreshMargin:   c.SwissPost.RefreshMargin,
		DefaultLifetime: c.SwissPost.TokenLifetime,
	}
}

// Client maps the swisspost section onto the API client config.
func (c *Config) Client() swisspost.Config {
	return swisspost.Config{
		BaseURL:           c.SwissPost.BaseURL,
		LookupTimeout:     c.SwissPost.LookupTimeout,
		ValidationTimeout: c.SwissPost.ValidationTimeout,
		RateLimit:         c.SwissPost.RateLimit,
		RateBurst:         c.SwissPost.RateBurst,
	}
}
