package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Store struct {
		Driver string `yaml:"driver"`
	} `yaml:"store"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL     string `yaml:"ttl"`
		OrderBy string `yaml:"order_by"`
		// SeedSamples writes the demo question bank on start when it is empty.
		SeedSamples bool `yaml:"seed_samples"`
	} `yaml:"quiz"`
	Leaderboard struct {
		FanOut int `yaml:"fan_out"`
	} `yaml:"leaderboard"`
	Auth struct {
		JWTSecret  string `yaml:"jwt_secret"`
		UserHeader string `yaml:"user_header"`
	} `yaml:"auth"`
	Log struct {
		Mode string `yaml:"mode"`
	} `yaml:"log"`
}

// Load reads YAML config from path, expanding ${VAR} references from the
// environment. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Store.Driver == "" {
		switch {
		case c.Postgres.URL != "":
			c.Store.Driver = DriverPostgres
		case c.Redis.Addr != "":
			c.Store.Driver = DriverRedis
		default:
			c.Store.Driver = DriverMemory
		}
	}
	if c.Redis.TTL == "" {
		c.Redis.TTL = "10m"
	}
	if c.Quiz.TTL == "" {
		c.Quiz.TTL = "10m"
	}
	if c.Leaderboard.FanOut <= 0 {
		c.Leaderboard.FanOut = 8
	}
	if c.Auth.UserHeader == "" {
		c.Auth.UserHeader = "X-User-ID"
	}
	if c.Log.Mode == "" {
		c.Log.Mode = "development"
	}
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case DriverMemory:
	case DriverRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("store driver %q requires redis.addr", c.Store.Driver)
		}
	case DriverPostgres:
		if c.Postgres.URL == "" {
			return fmt.Errorf("store driver %q requires postgres.url", c.Store.Driver)
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	return nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
