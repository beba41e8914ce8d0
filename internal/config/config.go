package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Logging  LoggingConfig  `mapstructure:",squash"`
	Scraper  ScraperConfig  `mapstructure:",squash"`
	Output   OutputConfig   `mapstructure:",squash"`
	Metrics  MetricsConfig  `mapstructure:",squash"`
	Database DatabaseConfig `mapstructure:",squash"`
	Redis    RedisConfig    `mapstructure:",squash"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"log_level"`
	Format string `mapstructure:"log_format"`
}

type ScraperConfig struct {
	TimeoutSeconds       float64           `mapstructure:"timeout"`
	MaxRetries           int               `mapstructure:"max_retries"`
	BackoffBaseSeconds   float64           `mapstructure:"backoff_base"`
	BackoffMaxSeconds    float64           `mapstructure:"backoff_max"`
	RotateUserAgents     bool              `mapstructure:"rotate_user_agents"`
	UserAgents           []string          `mapstructure:"user_agents"`
	Headers              map[string]string `mapstructure:"headers"`
	RequestDelaySeconds  float64           `mapstructure:"request_delay"`
	ConcurrencyBatch     int               `mapstructure:"concurrency_batch"`
	Workers              int               `mapstructure:"workers"`
	MaxRequestsPerSecond float64           `mapstructure:"max_requests_per_second"`
	MaxPages             int               `mapstructure:"max_pages"`
	MaxBodyBytes         int64             `mapstructure:"max_body_bytes"`
}

type OutputConfig struct {
	Pretty bool `mapstructure:"pretty"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"metrics_addr"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"postgres_dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"redis_addr"`
	Password string `mapstructure:"redis_password"`
	DB       int    `mapstructure:"redis_db"`
	Stream   string `mapstructure:"redis_stream"`
}

// Load reads the JSON settings file at path. A missing file yields the
// defaults; SCRAPER_* environment variables (optionally from .env) override
// both.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("json")
	v.SetEnvPrefix("SCRAPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("error reading settings file: %w", err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("error reading settings file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode settings: %w", err)
	}

	if cfg.Scraper.RequestDelaySeconds < 0 {
		cfg.Scraper.RequestDelaySeconds = 0
	}
	if cfg.Scraper.BackoffBaseSeconds > cfg.Scraper.BackoffMaxSeconds {
		cfg.Scraper.BackoffBaseSeconds = cfg.Scraper.BackoffMaxSeconds
	}
	if cfg.Scraper.Headers == nil {
		cfg.Scraper.Headers = map[string]string{}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "INFO")
	v.SetDefault("log_format", "text")

	v.SetDefault("timeout", 15)
	v.SetDefault("max_retries", 3)
	v.SetDefault("backoff_base", 0.5)
	v.SetDefault("backoff_max", 5)
	v.SetDefault("rotate_user_agents", true)
	v.SetDefault("user_agents", []string{})
	v.SetDefault("headers", map[string]string{})
	v.SetDefault("request_delay", 0.0)
	v.SetDefault("concurrency_batch", 8)
	v.SetDefault("workers", 1)
	v.SetDefault("max_requests_per_second", 0.0)
	v.SetDefault("max_pages", 0)
	v.SetDefault("max_body_bytes", 10*1024*1024)

	v.SetDefault("pretty", true)
	v.SetDefault("metrics_addr", "")
	v.SetDefault("postgres_dsn", "")

	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("redis_stream", "stream:products")
}

func (c *Config) Validate() error {
	s := c.Scraper

	if s.TimeoutSeconds <= 0 {
		return fmt.Errorf("timeout must be positive")
	}

	if s.MaxRetries < 1 {
		return fmt.Errorf("max_retries must be at least 1")
	}

	if s.BackoffBaseSeconds < 0 || s.BackoffMaxSeconds < 0 {
		return fmt.Errorf("backoff values cannot be negative")
	}

	if s.ConcurrencyBatch < 1 {
		return fmt.Errorf("concurrency_batch must be at least 1")
	}

	if s.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}

	if s.MaxRequestsPerSecond < 0 {
		return fmt.Errorf("max_requests_per_second cannot be negative")
	}

	if s.MaxPages < 0 {
		return fmt.Errorf("max_pages cannot be negative")
	}

	if s.MaxBodyBytes <= 0 {
		return fmt.Errorf("max_body_bytes must be positive")
	}

	return nil
}

func (s ScraperConfig) Timeout() time.Duration {
	return seconds(s.TimeoutSeconds)
}

func (s ScraperConfig) BackoffBase() time.Duration {
	return seconds(s.BackoffBaseSeconds)
}

func (s ScraperConfig) BackoffMax() time.Duration {
	return seconds(s.BackoffMaxSeconds)
}

func (s ScraperConfig) RequestDelay() time.Duration {
	return seconds(s.RequestDelaySeconds)
}

// RequestRate is the shared requests-per-second gate. Without an explicit
// max_requests_per_second, several workers share one request_delay cadence.
func (s ScraperConfig) RequestRate() float64 {
	if s.MaxRequestsPerSecond > 0 {
		return s.MaxRequestsPerSecond
	}
	if s.Workers > 1 && s.RequestDelaySeconds > 0 {
		return 1 / s.RequestDelaySeconds
	}
	return 0
}

func seconds(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}
