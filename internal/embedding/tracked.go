// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Postrec Contributors

package embedding

import (
	"context"
	"log/slog"
	"time"

	recerr "github.com/expertbridge/postrec/pkg/errors"
	"github.com/expertbridge/postrec/pkg/health"
)

// Tracked wraps a provider with a HealthTracker. While the tracker is
// cooling down, calls fail fast instead of reaching the upstream service.
type Tracked struct {
	inner  Provider
	health *HealthTracker
}

var _ Provider = (*Tracked)(nil)

// NewTracked wraps p with a tracker using the given cooldown.
func NewTracked(p Provider, cooldown time.Duration) (*Tracked, error) {
	h, err := NewHealthTracker(cooldown)
	if err != nil {
		return nil, err
	}
	return &Tracked{inner: p, health: h}, nil
}

func (t *Tracked) Name() string    { return t.inner.Name() }
func (t *Tracked) Dimensions() int { return t.inner.Dimensions() }

// Health returns the current health snapshot of the wrapped provider.
func (t *Tracked) Health() health.Metrics { return t.health.Metrics() }

// Tracker exposes the underlying tracker.
func (t *Tracked) Tracker() *HealthTracker { return t.health }

func (t *Tracked) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := t.admit(); err != nil {
		return nil, err
	}
	vec, err := t.inner.Embed(ctx, text)
	t.record(err)
	return vec, err
}

func (t *Tracked) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	if err := t.admit(); err != nil {
		return nil, err
	}
	vecs, err := t.inner.EmbedMany(ctx, texts)
	t.record(err)
	return vecs, err
}

func (t *Tracked) admit() error {
	if t.health.IsHealthy() {
		return nil
	}
	m := t.health.Metrics()
	fields := []recerr.Attr{recerr.FieldProvider(t.inner.Name())}
	if m.CooldownUntil != nil {
		fields = append(fields, recerr.Field("cooldown_until", m.CooldownUntil.UTC().Format(time.RFC3339)))
	}
	return recerr.New(recerr.CodeEmbeddingUpstreamFailure, "embedding provider is cooling down after a failure", fields...)
}

func (t *Tracked) record(err error) {
	if err == nil {
		t.health.RecordSuccess()
		return
	}
	if t.health.RecordFailure(err) {
		slog.Warn("embedding provider failure", "provider", t.inner.Name(), "error", err)
	}
}
