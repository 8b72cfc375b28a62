// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Postrec Contributors

package server

import (
	"context"

	"github.com/expertbridge/postrec/internal/post"
	"github.com/expertbridge/postrec/internal/recommend"
	recerr "github.com/expertbridge/postrec/pkg/errors"
	"github.com/expertbridge/postrec/pkg/health"
)

// Recommender is the part of *recommend.Recommender the routes use.
type Recommender interface {
	AddPost(ctx context.Context, p post.Post) error
	AddPosts(ctx context.Context, posts []post.Post) error
	RecommendScored(ctx context.Context, req recommend.Request) ([]recommend.Scored, error)
	Count(ctx context.Context) (int, error)
	Dimensions() int
}

// EmbedderHealth reports the health of the embedding provider.
type EmbedderHealth interface {
	Name() string
	Health() health.Metrics
}

var _ Recommender = (*recommend.Recommender)(nil)

// Services holds dependencies injected into route handlers.
type Services struct {
	recommender Recommender
	embedder    EmbedderHealth // optional; nil omits provider health from /health
}

// NewServices creates a Services instance. The recommender is required.
func NewServices(rec Recommender, embedder EmbedderHealth) (*Services, error) {
	if rec == nil {
		return nil, recerr.New(recerr.CodeServerConfigInvalid, "recommender is required")
	}
	return &Services{recommender: rec, embedder: embedder}, nil
}

// Recommender returns the recommender service.
func (s *Services) Recommender() Recommender {
	return s.recommender
}

// Embedder returns the embedder health source, which may be nil.
func (s *Services) Embedder() EmbedderHealth {
	return s.embedder
}
