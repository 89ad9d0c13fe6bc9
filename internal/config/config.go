package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Domain   string `yaml:"domain"`
		BaseURL  string `yaml:"base_url"`
		HTTPPort string `yaml:"http_port"`
	} `yaml:"server"`

	Database struct {
		Postgres struct {
			Host           string `yaml:"host"`
			Port           int    `yaml:"port"`
			User           string `yaml:"user"`
			Password       string `yaml:"password"`
			Database       string `yaml:"database"`
			SSLMode        string `yaml:"sslmode"`
			MaxConnections int    `yaml:"max_connections"`
		} `yaml:"postgres"`
		Redis struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"database"`

	ActivityPub struct {
		UserAgent string `yaml:"user_agent"`
		// MaxClockSkew is the signature freshness window in seconds.
		MaxClockSkew int `yaml:"max_clock_skew"`
		// KeyCacheTTL is how long remote public keys stay cached, in seconds.
		KeyCacheTTL int `yaml:"key_cache_ttl"`
		// MaxCachedActors bounds the in-process actor store cache.
		MaxCachedActors int `yaml:"max_cached_actors"`
	} `yaml:"activitypub"`

	Sessions struct {
		// TTL is the login session lifetime in seconds.
		TTL int `yaml:"ttl"`
	} `yaml:"sessions"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	// Expand environment variables in path
	path = os.ExpandEnv(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in config content
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}

// LoadOrDefault loads config from path, or returns default if file doesn't exist
func LoadOrDefault(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		return DefaultConfig()
	}
	return cfg
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Server.Domain = "localhost"
	cfg.Server.BaseURL = "http://localhost:8080"
	cfg.Server.HTTPPort = "8080"

	cfg.Database.Postgres.Host = "localhost"
	cfg.Database.Postgres.Port = 5432
	cfg.Database.Postgres.User = "modpub"
	cfg.Database.Postgres.Password = "modpub_dev_password"
	cfg.Database.Postgres.Database = "modpub"
	cfg.Database.Postgres.SSLMode = "disable"
	cfg.Database.Postgres.MaxConnections = 25

	cfg.Database.Redis.Host = "localhost"
	cfg.Database.Redis.Port = 6379
	cfg.Database.Redis.DB = 0

	cfg.ActivityPub.UserAgent = "modpub/0.1.0"
	cfg.ActivityPub.MaxClockSkew = 300
	cfg.ActivityPub.KeyCacheTTL = 3600
	cfg.ActivityPub.MaxCachedActors = 1024

	cfg.Sessions.TTL = 86400

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	return cfg
}
