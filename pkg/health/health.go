// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Postrec Contributors

package health

import "time"

// Metrics is a point-in-time snapshot of an embedding provider's health,
// served on /health.
type Metrics struct {
	Available bool `json:"available"`
	// FailureCount counts upstream failures; each one starts a cooldown.
	FailureCount int64 `json:"failure_count"`
	// RejectedCount counts requests the provider refused as invalid input.
	RejectedCount int64      `json:"rejected_count"`
	LastFailureAt *time.Time `json:"last_failure_at,omitempty"`
	LastErrorCode string     `json:"last_error_code,omitempty"`
	CooldownUntil *time.Time `json:"cooldown_until,omitempty"`
}
