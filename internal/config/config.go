// Custodia - AI Data Access Transparency and Audit
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodia

// Package config loads Custodia configuration using Koanf v2 with layered
// sources: struct defaults, an optional YAML file, then CUSTODIA_* environment
// variables (highest priority).
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order
// of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/custodia/config.yaml",
	"/etc/custodia/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CUSTODIA_CONFIG_PATH"

// envPrefix is stripped from environment variables before mapping to koanf paths:
// CUSTODIA_SERVER_LISTEN_ADDR -> server.listen_addr
const envPrefix = "CUSTODIA_"

// Config is the root configuration for the Custodia server.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Storage   StorageConfig   `koanf:"storage"`
	Security  SecurityConfig  `koanf:"security"`
	Analysis  AnalysisConfig  `koanf:"analysis"`
	Archive   ArchiveConfig   `koanf:"archive"`
	Audit     AuditConfig     `koanf:"audit"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	ListenAddr      string        `koanf:"listen_addr"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// StorageConfig holds BadgerDB settings.
type StorageConfig struct {
	// Path is the BadgerDB directory. Empty means in-memory (tests only).
	Path string `koanf:"path"`
}

// SecurityConfig holds credential and rate limiting settings.
type SecurityConfig struct {
	// RateLimitRequests is the default per-key request cap when a key does
	// not declare its own RateLimit.
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`

	// BootstrapOwner, when set, makes the server issue a first API key at
	// startup if the key collection is empty. The plaintext is logged once.
	BootstrapOwner string `koanf:"bootstrap_owner"`

	CORSOrigins []string `koanf:"cors_origins"`
}

// AnalysisConfig holds settings for the log analysis service.
type AnalysisConfig struct {
	// BaseURL is an OpenAI-compatible chat completions endpoint,
	// e.g. https://api.openai.com or an Azure OpenAI deployment URL.
	BaseURL string `koanf:"base_url"`
	APIKey  string `koanf:"api_key"`
	Model   string `koanf:"model"`

	// Timeout bounds a single analysis call. Expiry is treated as a normal
	// execution failure.
	Timeout time.Duration `koanf:"timeout"`
}

// ArchiveConfig holds blob archival settings.
type ArchiveConfig struct {
	Enabled bool `koanf:"enabled"`

	// ConnectionString is the Azure Storage connection string.
	ConnectionString string `koanf:"connection_string"`

	// Timeout bounds a single background upload.
	Timeout time.Duration `koanf:"timeout"`
}

// AuditConfig holds audit scheduler settings.
type AuditConfig struct {
	// RearmOnStart replays persisted scheduled audits into the timer table
	// at startup so they are not silently lost across restarts.
	RearmOnStart bool `koanf:"rearm_on_start"`

	// MaxConcurrentExecutions caps simultaneously running audit executions.
	MaxConcurrentExecutions int `koanf:"max_concurrent_executions"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all sensible default values.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:      ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			Path: "/data/custodia",
		},
		Security: SecurityConfig{
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			BootstrapOwner:    "",
			CORSOrigins:       []string{},
		},
		Analysis: AnalysisConfig{
			BaseURL: "https://api.openai.com",
			APIKey:  "",
			Model:   "gpt-4o-mini",
			Timeout: 2 * time.Minute,
		},
		Archive: ArchiveConfig{
			Enabled:          false,
			ConnectionString: "",
			Timeout:          10 * time.Second,
		},
		Audit: AuditConfig{
			RearmOnStart:            true,
			MaxConcurrentExecutions: 8,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load loads configuration with layered precedence: ENV > file > defaults.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", envTransform)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// envTransform maps CUSTODIA_SECTION_FIELD_NAME to section.field_name.
// The first underscore separates the section; the rest stay joined.
func envTransform(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	parts := strings.SplitN(s, "_", 2)
	if len(parts) != 2 {
		return s
	}
	return parts[0] + "." + parts[1]
}

// findConfigFile searches for a config file in the default paths.
// Returns the first file found, or empty string if none exists.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
