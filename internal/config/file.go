package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type fileConfig struct {
	DatabaseURL  string `yaml:"database_url"`
	RedisURL     string `yaml:"redis_url"`
	LogDir       string `yaml:"log_dir"`
	UserAgent    string `yaml:"user_agent"`
	Timeout      string `yaml:"timeout"`
	ProbeTimeout string `yaml:"probe_timeout"`
	Workers      int    `yaml:"workers"`
}

// LoadFromFile loads config from a YAML file. database_url is required.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f fileConfig
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if f.DatabaseURL == "" {
		return nil, ErrMissingDatabaseURL
	}
	c := &Config{
		DatabaseURL: f.DatabaseURL,
		RedisURL:    f.RedisURL,
		LogDir:      f.LogDir,
		UserAgent:   f.UserAgent,
		Workers:     f.Workers,
	}
	if f.Timeout != "" {
		if d, err := time.ParseDuration(f.Timeout); err == nil {
			c.Timeout = d
		}
	}
	if f.ProbeTimeout != "" {
		if d, err := time.ParseDuration(f.ProbeTimeout); err == nil {
			c.ProbeTimeout = d
		}
	}
	c.applyDefaults()
	return c, nil
}
