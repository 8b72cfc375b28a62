// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Postrec Contributors

package embedding

import (
	"context"

	"golang.org/x/time/rate"

	recerr "github.com/expertbridge/postrec/pkg/errors"
)

// RateLimitConfig holds the token-bucket settings for upstream calls.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate. Zero disables limiting.
	RequestsPerSecond float64
	// Burst is the maximum burst size; values below 1 are raised to 1.
	Burst int
}

// RateLimited spaces out calls to a provider. Each Embed or EmbedMany call
// consumes one token.
type RateLimited struct {
	inner   Provider
	limiter *rate.Limiter
}

var _ Provider = (*RateLimited)(nil)

// NewRateLimited wraps p with a token bucket.
func NewRateLimited(p Provider, cfg RateLimitConfig) *RateLimited {
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{
		inner:   p,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
	}
}

func (r *RateLimited) Name() string    { return r.inner.Name() }
func (r *RateLimited) Dimensions() int { return r.inner.Dimensions() }

func (r *RateLimited) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	return r.inner.Embed(ctx, text)
}

func (r *RateLimited) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	return r.inner.EmbedMany(ctx, texts)
}

func (r *RateLimited) wait(ctx context.Context) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return recerr.Wrap(err, recerr.CodeEmbeddingRateLimitFailure, "waiting for embedding rate limit",
			recerr.FieldProvider(r.inner.Name()))
	}
	return nil
}
