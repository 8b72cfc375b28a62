// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Postrec Contributors

package main

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/expertbridge/postrec/internal/config"
	"github.com/expertbridge/postrec/internal/embedding"
	_ "github.com/expertbridge/postrec/internal/embedding/google"  // register google provider
	_ "github.com/expertbridge/postrec/internal/embedding/hashing" // register hashing provider
	_ "github.com/expertbridge/postrec/internal/embedding/openai"  // register openai provider
	"github.com/expertbridge/postrec/internal/recommend"
	"github.com/expertbridge/postrec/internal/store"
	_ "github.com/expertbridge/postrec/internal/store/memory" // register memory backend
	_ "github.com/expertbridge/postrec/internal/store/sqlite" // register sqlite backend
	recerr "github.com/expertbridge/postrec/pkg/errors"
)

// App holds the wired recommender and the collaborators it owns.
type App struct {
	Recommender *recommend.Recommender
	Embedder    *embedding.Tracked
	Index       store.VectorStore
}

// Wire builds the embedding provider, opens the vector index and assembles
// the recommender described by cfg.
func Wire(cfg *config.Config) (*App, error) {
	if cfg.Storage.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0o755); err != nil {
			return nil, recerr.Errorf(recerr.CodeCLISetupFailure, "creating data directory: %w", err)
		}
	}

	embedder, err := embedding.New(embedding.Config{
		Provider:   cfg.Embedding.Provider,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		RateLimit: embedding.RateLimitConfig{
			RequestsPerSecond: cfg.Embedding.RateLimit.RequestsPerSecond,
			Burst:             cfg.Embedding.RateLimit.Burst,
		},
	})
	if err != nil {
		return nil, err
	}

	index, err := store.NewVectorStore(&store.StorageConfig{
		Backend:    cfg.Storage.Backend,
		Path:       cfg.Storage.Path,
		Dimensions: embedder.Dimensions(),
		Metric:     store.Metric(cfg.Storage.Metric),
	})
	if err != nil {
		return nil, err
	}

	rec, err := recommend.New(recommend.Config{
		Embedder:      embedder,
		Index:         index,
		QueryTemplate: cfg.Recommend.QueryTemplate,
		DefaultLimit:  cfg.Recommend.DefaultLimit,
		MaxLimit:      cfg.Recommend.MaxLimit,
	})
	if err != nil {
		return nil, errors.Join(err, index.Close())
	}

	slog.Debug("recommender wired",
		"provider", embedder.Name(),
		"dimensions", embedder.Dimensions(),
		"backend", cfg.Storage.Backend,
		"path", cfg.Storage.Path)

	return &App{Recommender: rec, Embedder: embedder, Index: index}, nil
}

// Close releases the index. A memory index with a path flushes its snapshot.
func (a *App) Close() error {
	return a.Index.Close()
}
