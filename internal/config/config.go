// Package config loads service configuration from YAML and/or environment.
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config is the root configuration.
// Source priority:
//  1. explicit path passed to Load/MustLoad;
//  2. CONFIG_PATH;
//  3. ./local.yaml;
//  4. environment only.
//
// A .env file in the working directory, if present, is loaded into the
// environment first.
type Config struct {
	Env        string           `yaml:"env" env:"ENV" env-default:"local"`
	HTTP       HTTPConfig       `yaml:"http"`
	DB         DBConfig         `yaml:"db"`
	Session    SessionConfig    `yaml:"session"`
	Auth       AuthConfig       `yaml:"auth"`
	NATS       NATSConfig       `yaml:"nats"`
	Comments   CommentsConfig   `yaml:"comments"`
	Dispatcher DispatcherConfig `yaml:"dispatcher"`
	Timeouts   TimeoutConfig    `yaml:"timeouts"`
}

type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
}

// Addr returns host:port.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

type DBConfig struct {
	URL          string `yaml:"url" env:"DATABASE_URL" env-required:"true"`
	MaxOpenConns int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	MaxIdleConns int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS" env-default:"5"`
}

// SessionConfig configures the cookie store shared with the main site.
type SessionConfig struct {
	Secret string `yaml:"secret" env:"SESSION_SECRET" env-default:"secret_key_change_me"`
	Name   string `yaml:"name" env:"SESSION_NAME" env-default:"blogtalk_session"`
}

// AuthConfig: an empty JWTSecret disables bearer tokens.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" env:"JWT_SECRET"`
}

// NATSConfig: an empty URL disables event publishing.
type NATSConfig struct {
	URL string `yaml:"url" env:"NATS_URL"`
}

type CommentsConfig struct {
	PageSize      int `yaml:"page_size" env:"COMMENTS_PAGE_SIZE" env-default:"5"`
	MaxBodyLength int `yaml:"max_body_length" env:"COMMENTS_MAX_BODY_LENGTH" env-default:"10000"`
	// Transactions that hit a unique violation (numbering, pin race) are
	// retried this many times before the caller sees a conflict.
	RetryAttempts int `yaml:"retry_attempts" env:"COMMENTS_RETRY_ATTEMPTS" env-default:"3"`
}

// DispatcherConfig tunes the mention notification workers.
type DispatcherConfig struct {
	QueueSize  int           `yaml:"queue_size" env:"DISPATCH_QUEUE_SIZE" env-default:"1000"`
	Workers    int           `yaml:"workers" env:"DISPATCH_WORKERS" env-default:"2"`
	JobTimeout time.Duration `yaml:"job_timeout" env:"DISPATCH_JOB_TIMEOUT" env-default:"5s"`
	CacheSize  int           `yaml:"cache_size" env:"DISPATCH_CACHE_SIZE" env-default:"500"`
	CacheTTL   time.Duration `yaml:"cache_ttl" env:"DISPATCH_CACHE_TTL" env-default:"1m"`
}

type TimeoutConfig struct {
	Request  time.Duration `yaml:"request" env:"REQUEST_TIMEOUT" env-default:"5s"`
	Shutdown time.Duration `yaml:"shutdown" env:"SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// MustLoad is Load that panics on error.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads the configuration following the priority documented on Config.
// Environment variables always overlay values read from a file.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	var cfg Config

	readFile := func(p string) error {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("config file %q stat failed: %w", p, err)
		}
		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return fmt.Errorf("failed to overlay env: %w", err)
		}
		return nil
	}

	switch {
	case path != "":
		if err := readFile(path); err != nil {
			return nil, err
		}
	case os.Getenv("CONFIG_PATH") != "":
		if err := readFile(os.Getenv("CONFIG_PATH")); err != nil {
			return nil, err
		}
	default:
		if _, err := os.Stat("local.yaml"); err == nil {
			if err := readFile("local.yaml"); err != nil {
				return nil, err
			}
		} else if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DB.URL == "" {
		return fmt.Errorf("db.url is required")
	}

	switch c.Env {
	case "local", "dev", "prod":
	default:
		return fmt.Errorf("env must be one of local, dev, prod (got %q)", c.Env)
	}

	if c.Comments.PageSize <= 0 {
		return fmt.Errorf("comments.page_size must be > 0")
	}

	if c.Comments.MaxBodyLength <= 0 {
		return fmt.Errorf("comments.max_body_length must be > 0")
	}

	if c.Comments.RetryAttempts < 1 {
		return fmt.Errorf("comments.retry_attempts must be >= 1")
	}

	if c.Dispatcher.QueueSize <= 0 || c.Dispatcher.Workers <= 0 {
		return fmt.Errorf("dispatcher.queue_size and dispatcher.workers must be > 0")
	}

	if c.Dispatcher.JobTimeout <= 0 {
		return fmt.Errorf("dispatcher.job_timeout must be > 0")
	}

	if c.Dispatcher.CacheSize <= 0 {
		return fmt.Errorf("dispatcher.cache_size must be > 0")
	}

	if c.Env == "prod" && c.Session.Secret == "secret_key_change_me" {
		return fmt.Errorf("session.secret must be set in prod")
	}

	return nil
}
