// Custodia - AI Data Access Transparency and Audit
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodia

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("expected :8080, got %s", cfg.Server.ListenAddr)
	}
	if cfg.Security.RateLimitRequests != 100 {
		t.Errorf("expected default rate limit 100, got %d", cfg.Security.RateLimitRequests)
	}
	if cfg.Analysis.Model != "gpt-4o-mini" {
		t.Errorf("unexpected default model %s", cfg.Analysis.Model)
	}
	if cfg.Archive.Enabled {
		t.Error("archival must be disabled by default")
	}
	if !cfg.Audit.RearmOnStart {
		t.Error("rearm_on_start must default to true")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("CUSTODIA_SERVER_LISTEN_ADDR", ":9999")
	t.Setenv("CUSTODIA_ANALYSIS_MODEL", "gpt-4o")
	t.Setenv("CUSTODIA_AUDIT_MAX_CONCURRENT_EXECUTIONS", "2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.ListenAddr != ":9999" {
		t.Errorf("env override not applied: %s", cfg.Server.ListenAddr)
	}
	if cfg.Analysis.Model != "gpt-4o" {
		t.Errorf("env override not applied: %s", cfg.Analysis.Model)
	}
	if cfg.Audit.MaxConcurrentExecutions != 2 {
		t.Errorf("env override not applied: %d", cfg.Audit.MaxConcurrentExecutions)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("server:\n  listen_addr: \":7070\"\nlogging:\n  level: debug\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.ListenAddr != ":7070" {
		t.Errorf("file value not applied: %s", cfg.Server.ListenAddr)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("file value not applied: %s", cfg.Logging.Level)
	}

	// Environment still wins over the file.
	t.Setenv("CUSTODIA_SERVER_LISTEN_ADDR", ":6060")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.ListenAddr != ":6060" {
		t.Errorf("env should override file, got %s", cfg.Server.ListenAddr)
	}
}

func TestEnvTransform(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"CUSTODIA_SERVER_LISTEN_ADDR", "server.listen_addr"},
		{"CUSTODIA_SECURITY_RATE_LIMIT_REQUESTS", "security.rate_limit_requests"},
		{"CUSTODIA_ANALYSIS_TIMEOUT", "analysis.timeout"},
	}
	for _, tt := range tests {
		if got := envTransform(tt.in); got != tt.want {
			t.Errorf("envTransform(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	valid := defaultConfig()
	if err := valid.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty listen addr", func(c *Config) { c.Server.ListenAddr = "" }},
		{"rate limit too low", func(c *Config) { c.Security.RateLimitRequests = 0 }},
		{"rate limit window too short", func(c *Config) { c.Security.RateLimitWindow = time.Millisecond }},
		{"analysis timeout too long", func(c *Config) { c.Analysis.Timeout = time.Hour }},
		{"empty analysis url", func(c *Config) { c.Analysis.BaseURL = "" }},
		{"archive enabled without connection string", func(c *Config) { c.Archive.Enabled = true }},
		{"zero concurrent executions", func(c *Config) { c.Audit.MaxConcurrentExecutions = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error, got nil")
			}
		})
	}
}

func TestValidate_RateLimitDisabledSkipsBounds(t *testing.T) {
	cfg := defaultConfig()
	cfg.Security.RateLimitDisabled = true
	cfg.Security.RateLimitRequests = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled rate limit must skip bounds checks: %v", err)
	}
}
