package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingDatabaseURL is returned when no database URL is configured.
var ErrMissingDatabaseURL = errors.New("database_url is required (set DATABASE_URL or use a config file)")

// Config holds application configuration (DB, cache, fetcher and probe settings).
type Config struct {
	DatabaseURL  string        `yaml:"database_url"`
	RedisURL     string        `yaml:"redis_url"`
	LogDir       string        `yaml:"log_dir"`
	UserAgent    string        `yaml:"user_agent"`
	Timeout      time.Duration `yaml:"timeout"`
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
	Workers      int           `yaml:"workers"` // 0 = heuristic default
}

// Load builds config from environment variables.
// If DATABASE_URL is not set, Load tries .env.local and .env from the current
// directory first. DATABASE_URL is required; everything else is optional.
func Load() (*Config, error) {
	if os.Getenv("DATABASE_URL") == "" {
		// Overload is not used: real environment variables win over .env files.
		_ = godotenv.Load(".env.local", ".env")
	}
	c := &Config{
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		RedisURL:     os.Getenv("REDIS_URL"),
		LogDir:       os.Getenv("KPTV_LOG_DIR"),
		UserAgent:    os.Getenv("FETCHER_USER_AGENT"),
		Workers:      0,
	}
	if s := os.Getenv("FETCHER_TIMEOUT"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			c.Timeout = d
		}
	}
	if s := os.Getenv("PROBE_TIMEOUT"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			c.ProbeTimeout = d
		}
	}
	if s := os.Getenv("KPTV_WORKERS"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			c.Workers = n
		}
	}
	c.applyDefaults()
	if c.DatabaseURL == "" {
		return nil, ErrMissingDatabaseURL
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.UserAgent == "" {
		// Providers routinely reject unknown clients; identify as VLC.
		c.UserAgent = "VLC/3.0.21 LibVLC/3.0.21"
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = 10 * time.Second
	}
	if c.LogDir == "" {
		c.LogDir = "."
	}
}
