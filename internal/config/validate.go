// Custodia - AI Data Access Transparency and Audit
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodia

package config

import (
	"fmt"
	"time"
)

// Validation bounds. Values outside these ranges are almost certainly
// misconfiguration rather than intent.
const (
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour

	minAnalysisTimeout = time.Second
	maxAnalysisTimeout = 30 * time.Minute

	maxConcurrentExecutionsCap = 256
)

// Validate checks configuration bounds and cross-field requirements.
func (c *Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr must not be empty")
	}

	if !c.Security.RateLimitDisabled {
		if c.Security.RateLimitRequests < minRateLimitRequests || c.Security.RateLimitRequests > maxRateLimitRequests {
			return fmt.Errorf("security.rate_limit_requests must be between %d and %d",
				minRateLimitRequests, maxRateLimitRequests)
		}
		if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
			return fmt.Errorf("security.rate_limit_window must be between %s and %s",
				minRateLimitWindow, maxRateLimitWindow)
		}
	}

	if c.Analysis.Timeout < minAnalysisTimeout || c.Analysis.Timeout > maxAnalysisTimeout {
		return fmt.Errorf("analysis.timeout must be between %s and %s",
			minAnalysisTimeout, maxAnalysisTimeout)
	}
	if c.Analysis.BaseURL == "" {
		return fmt.Errorf("analysis.base_url must not be empty")
	}

	if c.Archive.Enabled && c.Archive.ConnectionString == "" {
		return fmt.Errorf("archive.connection_string is required when archive.enabled is true")
	}
	if c.Archive.Timeout <= 0 {
		return fmt.Errorf("archive.timeout must be positive")
	}

	if c.Audit.MaxConcurrentExecutions < 1 || c.Audit.MaxConcurrentExecutions > maxConcurrentExecutionsCap {
		return fmt.Errorf("audit.max_concurrent_executions must be between 1 and %d",
			maxConcurrentExecutionsCap)
	}

	return nil
}
