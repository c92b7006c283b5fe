/*
File: config.go
Version: 1.3.0
Last Update: 2026-08-22
Description: YAML configuration structures, defaulting, and loading for the
             gateway: listeners, TLS material, upstream resolver, ACL,
             rate limiting, and logging.
*/

package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Global configuration instance, assigned once by LoadConfig before any
// listener starts.
var config *Config

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Upstream  UpstreamConfig  `yaml:"upstream"`
	ACL       ACLConfig       `yaml:"acl"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`

	Ports struct {
		TLS   int `yaml:"tls"`
		HTTPS int `yaml:"https"`
	} `yaml:"ports"`

	TLS struct {
		CertFile string `yaml:"cert_file"`
		KeyFile  string `yaml:"key_file"`
	} `yaml:"tls"`

	DOT struct {
		IdleTimeout string `yaml:"idle_timeout"` // "0s" disables the idle wrapper

		parsedIdleTimeout time.Duration
	} `yaml:"dot"`

	DOH struct {
		HTTP3     bool `yaml:"http3"`
		RobotsTxt bool `yaml:"robots_txt"`
	} `yaml:"doh"`

	Timeout string `yaml:"timeout"`
}

type UpstreamConfig struct {
	BaseURL  string `yaml:"base_url"` // rewrite target for mirrored DoH requests
	Insecure bool   `yaml:"insecure"`
	Timeout  string `yaml:"timeout"`

	parsedTimeout time.Duration
}

type ACLConfig struct {
	Allow []string `yaml:"allow"`
	Deny  []string `yaml:"deny"`
}

type RateLimitConfig struct {
	Enabled          bool   `yaml:"enabled"`
	ClientQPS        int    `yaml:"client_qps"`
	ClientBurst      int    `yaml:"client_burst"`
	CleanupInterval  string `yaml:"cleanup_interval"`
	ClientExpiration string `yaml:"client_expiration"`

	parsedCleanupInterval  time.Duration
	parsedClientExpiration time.Duration
}

type LoggingConfig struct {
	Level   string   `yaml:"level"`
	Format  string   `yaml:"format"`
	Outputs []string `yaml:"outputs"`

	File struct {
		Path        string `yaml:"path"`
		Permissions uint32 `yaml:"permissions"`
	} `yaml:"file"`
}

// parseDurationField parses a duration string, logging and falling back to the
// given default when it is malformed.
func parseDurationField(name, value string, def time.Duration) time.Duration {
	if value == "" {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		LogWarn("[CONFIG] Invalid %s '%s', defaulting to %v", name, value, def)
		return def
	}
	return d
}

// LoadConfig reads, parses, and installs the global configuration, then
// initializes the logger, limiter, and ACL from it.
func LoadConfig(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	// Defaults
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = "0.0.0.0"
	}
	if cfg.Server.Ports.TLS == 0 {
		cfg.Server.Ports.TLS = 10000
	}
	if cfg.Server.Ports.HTTPS == 0 {
		cfg.Server.Ports.HTTPS = 8080
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "INFO"
	}
	if len(cfg.Logging.Outputs) == 0 {
		cfg.Logging.Outputs = []string{"console"}
	}
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.ClientQPS <= 0 {
			cfg.RateLimit.ClientQPS = 100
		}
		if cfg.RateLimit.ClientBurst <= 0 {
			cfg.RateLimit.ClientBurst = cfg.RateLimit.ClientQPS
		}
	}

	// Parsed durations
	cfg.Server.DOT.parsedIdleTimeout = parseDurationField("dot.idle_timeout", cfg.Server.DOT.IdleTimeout, 0)
	cfg.Upstream.parsedTimeout = parseDurationField("upstream.timeout", cfg.Upstream.Timeout, 10*time.Second)
	cfg.RateLimit.parsedCleanupInterval = parseDurationField("rate_limit.cleanup_interval", cfg.RateLimit.CleanupInterval, time.Minute)
	cfg.RateLimit.parsedClientExpiration = parseDurationField("rate_limit.client_expiration", cfg.RateLimit.ClientExpiration, 5*time.Minute)

	if err := InitLogger(cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	InitLimiter(cfg.RateLimit)

	if err := InitACL(cfg.ACL); err != nil {
		return fmt.Errorf("failed to build ACL: %w", err)
	}

	config = &cfg
	return nil
}
