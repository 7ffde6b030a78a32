package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	DB     DBConfig     `yaml:"db"`
	Log    LogConfig    `yaml:"log"`
	Feed   FeedConfig   `yaml:"feed"`
	Digest DigestConfig `yaml:"digest"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DBConfig selects the storage backend. An empty Path keeps everything
// in memory, which is handy for demos and tests.
type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// FeedConfig shapes the exported iCalendar feed.
type FeedConfig struct {
	Name       string `yaml:"name"`
	WindowDays int    `yaml:"window_days"`
}

// DigestConfig controls the periodic schedule digest job.
type DigestConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Spec       string `yaml:"spec"`
	WindowDays int    `yaml:"window_days"`
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		DB: DBConfig{
			Path: "verger.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Feed: FeedConfig{
			Name:       "Ministry Schedule",
			WindowDays: 90,
		},
		Digest: DigestConfig{
			Enabled:    true,
			Spec:       "0 6 * * MON",
			WindowDays: 7,
		},
	}

	if path := os.Getenv("VERGER_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if host := os.Getenv("VERGER_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("VERGER_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid VERGER_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if dbPath := os.Getenv("VERGER_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if level := os.Getenv("VERGER_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if name := os.Getenv("VERGER_FEED_NAME"); name != "" {
		cfg.Feed.Name = name
	}
	if spec := os.Getenv("VERGER_DIGEST_SPEC"); spec != "" {
		cfg.Digest.Spec = spec
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
