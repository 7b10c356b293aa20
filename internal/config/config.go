// Package config loads process configuration from the environment, an
// optional YAML file and, in development, a .env file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Session store backends.
const (
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// Config is everything the server needs to start. Every field can be set
// from the environment; CONFIG_PATH additionally points at a YAML file whose
// values the environment overrides.
type Config struct {
	Env       string    `yaml:"env" env:"APP_ENV" env-default:"production"`
	LogLevel  string    `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	HTTP      HTTP      `yaml:"http"`
	DB        DB        `yaml:"db"`
	Session   Session   `yaml:"session"`
	Redis     Redis     `yaml:"redis"`
	Auth      Auth      `yaml:"auth"`
	RateLimit RateLimit `yaml:"rate_limit"`
	CSRF      CSRF      `yaml:"csrf"`
}

type HTTP struct {
	Port         int           `yaml:"port" env:"PORT" env-default:"8080"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"15s"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
}

type DB struct {
	Path string `yaml:"path" env:"DB_PATH" env-default:"data/energy.db"`
}

// Session configures the login cookie and where session records live.
type Session struct {
	Secret      string        `yaml:"secret" env:"SESSION_SECRET"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"SESSION_IDLE_TIMEOUT" env-default:"30m"`
	MaxAge      time.Duration `yaml:"max_age" env:"SESSION_MAX_AGE" env-default:"168h"`
	CookieName  string        `yaml:"cookie_name" env:"SESSION_COOKIE" env-default:"energy_session"`
	Secure      bool          `yaml:"secure" env:"SESSION_SECURE" env-default:"true"`
	Store       string        `yaml:"store" env:"SESSION_STORE" env-default:"sqlite"`
}

type Redis struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type Auth struct {
	BcryptCost           int    `yaml:"bcrypt_cost" env:"BCRYPT_COST" env-default:"12"`
	FallbackTempPassword string `yaml:"fallback_temp_password" env:"FALLBACK_TEMP_PASSWORD"`
}

type RateLimit struct {
	Enabled bool    `yaml:"enabled" env:"RATE_LIMIT_ENABLED" env-default:"true"`
	RPS     float64 `yaml:"rps" env:"RATE_LIMIT_RPS" env-default:"1"`
	Burst   int     `yaml:"burst" env:"RATE_LIMIT_BURST" env-default:"10"`
}

type CSRF struct {
	Key string `yaml:"key" env:"CSRF_KEY"`
}

// Load reads the configuration and validates it.
func Load() (*Config, error) {
	cfg, err := Read()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read loads the configuration without validating it, for commands such as
// migrate that only need part of it.
func Read() (*Config, error) {
	if os.Getenv("APP_ENV") == "dev" {
		// A missing .env is fine; the environment may already be complete.
		_ = godotenv.Load()
	}

	var cfg Config
	var err error
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("config: reading: %w", err)
	}
	return &cfg, nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Session.Secret) < 16 {
		errs = append(errs, errors.New("SESSION_SECRET must be at least 16 bytes"))
	}
	if c.Session.IdleTimeout <= 0 {
		errs = append(errs, errors.New("SESSION_IDLE_TIMEOUT must be positive"))
	}
	if c.Session.Store != StoreSQLite && c.Session.Store != StoreRedis {
		errs = append(errs, fmt.Errorf("SESSION_STORE must be %q or %q, got %q", StoreSQLite, StoreRedis, c.Session.Store))
	}
	if len(c.CSRF.Key) != 32 {
		errs = append(errs, errors.New("CSRF_KEY must be exactly 32 bytes"))
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d is out of range", c.HTTP.Port))
	}
	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.Burst < 1) {
		errs = append(errs, errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// IsDev reports whether the process runs in development mode.
func (c *Config) IsDev() bool { return c.Env == "dev" }

// SlogLevel maps LogLevel to a slog level, defaulting to Info.
func (c *Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
