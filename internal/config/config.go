// Package config loads the server configuration from YAML. A missing file
// yields the defaults; a present file only overrides what it names.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr    string `yaml:"addr"`
	DataDir string `yaml:"data_dir"`
	DBPath  string `yaml:"db_path"`

	// LockTTLSeconds is the edit lock's time to live between renewals.
	LockTTLSeconds int `yaml:"lock_ttl_seconds"`
	// PenalizeFailedLocation flags failed location attempts for grading.
	PenalizeFailedLocation bool `yaml:"penalize_failed_location"`

	Feed FeedConfig `yaml:"feed"`
}

type FeedConfig struct {
	// QueueSize is the per-subscriber buffer. A subscriber that falls this
	// far behind is dropped; polling recovers the missed entries.
	QueueSize int `yaml:"queue_size"`
	// WriteTimeoutSeconds bounds one websocket write.
	WriteTimeoutSeconds int `yaml:"write_timeout_seconds"`
}

func Load(path string) (Config, error) {
	cfg := defaults()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("config.yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config.yaml: %w", err)
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		Addr:           ":8080",
		DataDir:        "data",
		DBPath:         "data/trailhunt.db",
		LockTTLSeconds: 120,
		Feed: FeedConfig{
			QueueSize:           64,
			WriteTimeoutSeconds: 10,
		},
	}
}

func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr must not be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path must not be empty")
	}
	if c.LockTTLSeconds <= 0 {
		return fmt.Errorf("lock_ttl_seconds must be positive, got %d", c.LockTTLSeconds)
	}
	if c.Feed.QueueSize <= 0 {
		return fmt.Errorf("feed.queue_size must be positive, got %d", c.Feed.QueueSize)
	}
	if c.Feed.WriteTimeoutSeconds <= 0 {
		return fmt.Errorf("feed.write_timeout_seconds must be positive, got %d", c.Feed.WriteTimeoutSeconds)
	}
	return nil
}

func (c Config) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}

func (c Config) FeedWriteTimeout() time.Duration {
	return time.Duration(c.Feed.WriteTimeoutSeconds) * time.Second
}
