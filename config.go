package redcache

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the file form of a Client setup:
//
//	url: redis://localhost:6379/0
//	default_ttl: 10m
//	lock:
//	  ttl: 100s
//	  retry_times: 3
//	  retry_delay: 200ms
//	token:
//	  ttl: 30m
//
// Zero values fall back to the component defaults.
type Config struct {
	URL        string        `yaml:"url"`
	DefaultTTL time.Duration `yaml:"default_ttl,omitempty"`
	Lock       LockConfig    `yaml:"lock,omitempty"`
	Token      TokenConfig   `yaml:"token,omitempty"`
}

type LockConfig struct {
	TTL        time.Duration `yaml:"ttl,omitempty"`
	RetryTimes int           `yaml:"retry_times,omitempty"`
	RetryDelay time.Duration `yaml:"retry_delay,omitempty"`
}

type TokenConfig struct {
	TTL time.Duration `yaml:"ttl,omitempty"`
}

// ParseConfig decodes YAML and validates the result.
func ParseConfig(b []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("redcache: parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func LoadConfig(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("redcache: load config: %w", err)
	}
	return ParseConfig(b)
}

func (c Config) Validate() error {
	switch {
	case c.URL == "":
		return &ConfigError{Field: "url", Reason: "required"}
	case c.Lock.TTL < 0:
		return &ConfigError{Field: "lock.ttl", Reason: "must not be negative"}
	case c.Lock.RetryTimes < -1:
		return &ConfigError{Field: "lock.retry_times", Reason: "must be -1 (disabled) or greater"}
	}
	return nil
}

// LockOptions converts the lock section; logging and hooks are left unset.
func (c Config) LockOptions() LockOptions {
	return LockOptions{TTL: c.Lock.TTL, RetryTimes: c.Lock.RetryTimes, RetryDelay: c.Lock.RetryDelay}
}
