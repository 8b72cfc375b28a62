// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Postrec Contributors

package embedding_test

import (
	"context"
	"sync/atomic"

	recerr "github.com/expertbridge/postrec/pkg/errors"
)

// stubProvider returns fixed vectors and fails with err when set.
type stubProvider struct {
	dims  int
	err   error
	calls atomic.Int32
}

func (s *stubProvider) Name() string    { return "stub" }
func (s *stubProvider) Dimensions() int { return s.dims }

func (s *stubProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.EmbedMany(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (s *stubProvider) EmbedMany(_ context.Context, texts []string) ([][]float32, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, s.dims)
		out[i][0] = float32(len(texts[i]))
	}
	return out, nil
}

var errUpstream = recerr.New(recerr.CodeEmbeddingUpstreamFailure, "service unavailable")
