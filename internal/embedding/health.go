// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Postrec Contributors

package embedding

import (
	"context"
	"errors"
	"sync"
	"time"

	recerr "github.com/expertbridge/postrec/pkg/errors"
	"github.com/expertbridge/postrec/pkg/health"
)

// DefaultHealthCooldown is how long a provider stays unavailable after an
// upstream failure.
const DefaultHealthCooldown = 30 * time.Second

// HealthTracker follows the availability of one embedding provider.
//
// Only upstream failures (transport errors, 5xx, 429) open a cooldown.
// Input the provider rejected is counted but leaves it available, and a
// call abandoned by its own caller is not held against the provider.
type HealthTracker struct {
	mu        sync.RWMutex
	cooldown  time.Duration
	nowFunc   func() time.Time
	downUntil time.Time

	failures    int64
	rejected    int64
	lastFailure time.Time
	lastCode    recerr.Code
}

// NewHealthTracker creates a tracker that starts available.
func NewHealthTracker(cooldown time.Duration) (*HealthTracker, error) {
	if cooldown <= 0 {
		return nil, recerr.Errorf(recerr.CodeEmbeddingConfigInvalid,
			"health tracker cooldown must be positive, got %s", cooldown)
	}
	return &HealthTracker{cooldown: cooldown, nowFunc: time.Now}, nil
}

func (h *HealthTracker) coolingLocked() bool {
	return h.nowFunc().Before(h.downUntil)
}

// IsHealthy reports whether calls may reach the provider.
func (h *HealthTracker) IsHealthy() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return !h.coolingLocked()
}

// RecordSuccess ends any cooldown.
func (h *HealthTracker) RecordSuccess() {
	h.mu.Lock()
	h.downUntil = time.Time{}
	h.mu.Unlock()
}

// RecordFailure classifies err and reports whether it opened a cooldown.
func (h *HealthTracker) RecordFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastCode = recerr.CodeOf(err)
	if !recerr.IsUpstreamFailure(err) {
		h.rejected++
		return false
	}
	now := h.nowFunc()
	h.failures++
	h.lastFailure = now
	h.downUntil = now.Add(h.cooldown)
	return true
}

// SetNowFunc overrides the time source (for testing).
func (h *HealthTracker) SetNowFunc(fn func() time.Time) {
	h.mu.Lock()
	h.nowFunc = fn
	h.mu.Unlock()
}

// Metrics returns a snapshot of the tracker.
func (h *HealthTracker) Metrics() health.Metrics {
	h.mu.RLock()
	defer h.mu.RUnlock()

	m := health.Metrics{
		Available:     !h.coolingLocked(),
		FailureCount:  h.failures,
		RejectedCount: h.rejected,
		LastErrorCode: string(h.lastCode),
	}
	if h.failures > 0 {
		t := h.lastFailure
		m.LastFailureAt = &t
	}
	if !m.Available {
		until := h.downUntil
		m.CooldownUntil = &until
	}
	return m
}
