// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Postrec Contributors

package embedding_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expertbridge/postrec/internal/embedding"
	recerr "github.com/expertbridge/postrec/pkg/errors"
	"github.com/expertbridge/postrec/pkg/health"
)

var (
	errUpstreamDown = recerr.New(recerr.CodeEmbeddingUpstreamFailure, "503 from provider")
	errRejected     = recerr.New(recerr.CodeEmbeddingRequestInvalid, "input too long")
)

func newTracker(t *testing.T, cooldown time.Duration) *embedding.HealthTracker {
	t.Helper()
	h, err := embedding.NewHealthTracker(cooldown)
	require.NoError(t, err)
	return h
}

func TestHealthTracker_RejectsNonPositiveCooldown(t *testing.T) {
	for _, d := range []time.Duration{0, -time.Second} {
		_, err := embedding.NewHealthTracker(d)
		require.Error(t, err)
		assert.True(t, recerr.IsInvalidInput(err))
	}
}

func TestHealthTracker_RecordFailureClassifies(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantCooldown bool
		wantRejected int64
	}{
		{name: "upstream failure", err: errUpstreamDown, wantCooldown: true},
		{name: "wrapped upstream failure", err: fmt.Errorf("batch 2: %w", errUpstreamDown), wantCooldown: true},
		{name: "rejected input", err: errRejected, wantRejected: 1},
		{name: "caller cancelled", err: recerr.Wrap(context.Canceled, recerr.CodeEmbeddingUpstreamFailure, "cancelled")},
		{name: "nil", err: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTracker(t, time.Minute)
			assert.Equal(t, tt.wantCooldown, h.RecordFailure(tt.err))
			assert.Equal(t, !tt.wantCooldown, h.IsHealthy())

			m := h.Metrics()
			assert.Equal(t, tt.wantRejected, m.RejectedCount)
			if tt.wantCooldown {
				assert.Equal(t, int64(1), m.FailureCount)
				assert.Equal(t, string(recerr.CodeEmbeddingUpstreamFailure), m.LastErrorCode)
			} else {
				assert.Zero(t, m.FailureCount)
			}
		})
	}
}

func TestHealthTracker_SuccessEndsCooldown(t *testing.T) {
	h := newTracker(t, 30*time.Second)
	require.True(t, h.RecordFailure(errUpstreamDown))
	assert.False(t, h.IsHealthy())

	h.RecordSuccess()
	assert.True(t, h.IsHealthy())
}

func TestHealthTracker_CooldownBoundary(t *testing.T) {
	cooldown := 10 * time.Second
	now := time.Now()

	tests := []struct {
		name        string
		elapsed     time.Duration
		wantHealthy bool
	}{
		{name: "before cooldown", elapsed: 9 * time.Second, wantHealthy: false},
		{name: "at exact cooldown boundary", elapsed: 10 * time.Second, wantHealthy: true},
		{name: "after cooldown", elapsed: 11 * time.Second, wantHealthy: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTracker(t, cooldown)
			h.SetNowFunc(func() time.Time { return now })
			h.RecordFailure(errUpstreamDown)

			h.SetNowFunc(func() time.Time { return now.Add(tt.elapsed) })
			assert.Equal(t, tt.wantHealthy, h.IsHealthy())
		})
	}
}

func TestHealthTracker_Metrics(t *testing.T) {
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	cooldownUntil := now.Add(10 * time.Second)

	h := newTracker(t, 10*time.Second)
	assert.Equal(t, health.Metrics{Available: true}, h.Metrics())

	h.SetNowFunc(func() time.Time { return now })
	h.RecordFailure(errRejected)
	h.RecordFailure(errUpstreamDown)
	assert.Equal(t, health.Metrics{
		Available:     false,
		FailureCount:  1,
		RejectedCount: 1,
		LastFailureAt: &now,
		LastErrorCode: string(recerr.CodeEmbeddingUpstreamFailure),
		CooldownUntil: &cooldownUntil,
	}, h.Metrics())

	h.RecordSuccess()
	m := h.Metrics()
	assert.True(t, m.Available)
	assert.Equal(t, int64(1), m.FailureCount, "failure count is cumulative")
	assert.Nil(t, m.CooldownUntil)
}

func TestHealthTracker_ConcurrentRecordCalls(t *testing.T) {
	h := newTracker(t, 30*time.Second)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(3)
		go func() {
			defer wg.Done()
			for range 100 {
				h.RecordFailure(errUpstreamDown)
				h.RecordFailure(errRejected)
			}
		}()
		go func() {
			defer wg.Done()
			for range 100 {
				h.RecordSuccess()
			}
		}()
		go func() {
			defer wg.Done()
			for range 100 {
				_ = h.Metrics()
			}
		}()
	}
	wg.Wait()

	m := h.Metrics()
	assert.Equal(t, int64(1000), m.FailureCount)
	assert.Equal(t, int64(1000), m.RejectedCount)
}
