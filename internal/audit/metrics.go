// Custodia - AI Data Access Transparency and Audit
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodia

package audit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ExecutionsTotal counts finished audit executions by outcome:
	// completed, failed, or stuck (terminal status could not be written).
	ExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "custodia",
			Subsystem: "audit",
			Name:      "executions_total",
			Help:      "Total audit executions by outcome",
		},
		[]string{"outcome"},
	)

	// ScheduledTotal counts audits accepted for scheduling.
	ScheduledTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "custodia",
			Subsystem: "audit",
			Name:      "scheduled_total",
			Help:      "Total audits accepted for scheduling",
		},
	)

	// PendingTimers tracks the number of armed one-shot timers.
	PendingTimers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "custodia",
			Subsystem: "audit",
			Name:      "pending_timers",
			Help:      "Number of armed audit timers",
		},
	)
)
