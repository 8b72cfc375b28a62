// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Postrec Contributors

// Package embedding defines the contract for turning post text into
// fixed-length vectors and the wrappers shared by every provider.
package embedding

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	recerr "github.com/expertbridge/postrec/pkg/errors"
)

// Provider maps text to vectors of a fixed dimensionality.
//
// Embed is deterministic for a fixed model. EmbedMany returns one vector per
// input in input order, each identical to what Embed returns for that text.
// Every failure is reported with an embedding.* error code.
type Provider interface {
	Name() string
	Dimensions() int
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedMany(ctx context.Context, texts []string) ([][]float32, error)
}

// DefaultDimensions matches the all-MiniLM-L6-v2 sentence model.
const DefaultDimensions = 384

// Config selects and configures a provider.
type Config struct {
	Provider   string
	Model      string
	Dimensions int
	APIKey     string
	BaseURL    string
	RateLimit  RateLimitConfig
}

// Factory builds a provider from a resolved configuration.
type Factory func(cfg Config) (Provider, error)

var (
	factories   = map[string]Factory{}
	factoriesMu sync.RWMutex
)

// RegisterProvider makes a provider available to New under name.
// Provider packages call this from init().
func RegisterProvider(name string, factory Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = factory
}

// Providers lists registered provider names in sorted order.
func Providers() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds the configured provider wrapped with rate limiting (when
// configured) and health tracking.
func New(cfg Config) (*Tracked, error) {
	name := cfg.Provider
	if name == "" {
		name = "hashing"
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}
	cfg.Provider = name

	factoriesMu.RLock()
	factory, ok := factories[name]
	factoriesMu.RUnlock()
	if !ok {
		return nil, recerr.New(recerr.CodeEmbeddingConfigInvalid,
			fmt.Sprintf("unknown embedding provider %q (registered: %s)", name, strings.Join(Providers(), ", ")),
			recerr.FieldProvider(name))
	}

	base, err := factory(cfg)
	if err != nil {
		return nil, err
	}

	var p Provider = base
	if cfg.RateLimit.RequestsPerSecond > 0 {
		p = NewRateLimited(p, cfg.RateLimit)
	}

	return NewTracked(p, DefaultHealthCooldown)
}

// ValidateInput rejects batches containing blank texts before any upstream
// call is made.
func ValidateInput(provider string, texts []string) error {
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return recerr.New(recerr.CodeEmbeddingRequestInvalid, "cannot embed empty text",
				recerr.FieldProvider(provider), recerr.Field("index", i))
		}
	}
	return nil
}

// CheckResult verifies that a provider answered with one vector per input.
func CheckResult(provider string, texts []string, vectors [][]float32) error {
	if len(vectors) != len(texts) {
		return recerr.New(recerr.CodeEmbeddingUpstreamFailure,
			fmt.Sprintf("provider returned %d embeddings for %d inputs", len(vectors), len(texts)),
			recerr.FieldProvider(provider))
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return recerr.New(recerr.CodeEmbeddingUpstreamFailure, "provider returned an empty embedding",
				recerr.FieldProvider(provider), recerr.Field("index", i))
		}
	}
	return nil
}

// EmbedOne implements Provider.Embed on top of EmbedMany.
func EmbedOne(ctx context.Context, p Provider, text string) ([]float32, error) {
	vectors, err := p.EmbedMany(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}
