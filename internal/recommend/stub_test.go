// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Postrec Contributors

package recommend_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/expertbridge/postrec/internal/post"
	"github.com/expertbridge/postrec/internal/recommend"
	"github.com/expertbridge/postrec/internal/store"
	"github.com/expertbridge/postrec/internal/store/memory"
)

const dims = 3

// fakeEmbedder returns the configured vector for known texts and a vector
// derived from the text length otherwise. It records every text it embeds.
type fakeEmbedder struct {
	mu      sync.Mutex
	dims    int
	vectors map[string][]float32
	seen    []string
	err     error
	// outDims overrides the length of returned vectors when non-zero.
	outDims int
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{dims: dims, vectors: map[string][]float32{}}
}

func (f *fakeEmbedder) Name() string    { return "fake" }
func (f *fakeEmbedder) Dimensions() int { return f.dims }

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.EmbedMany(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (f *fakeEmbedder) EmbedMany(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seen = append(f.seen, texts...)
	if f.err != nil {
		return nil, f.err
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		n := f.dims
		if f.outDims > 0 {
			n = f.outDims
		}
		vec := make([]float32, n)
		if known, ok := f.vectors[text]; ok {
			copy(vec, known)
		} else {
			vec[0] = float32(len(text))
			vec[n-1] = 1
		}
		out[i] = vec
	}
	return out, nil
}

func (f *fakeEmbedder) lastSeen() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.seen) == 0 {
		return ""
	}
	return f.seen[len(f.seen)-1]
}

func newIndex(t *testing.T) *memory.VectorStore {
	t.Helper()
	idx, err := memory.NewVectorStore("", dims, store.MetricCosine)
	require.NoError(t, err)
	return idx
}

func newRecommender(t *testing.T, emb *fakeEmbedder, idx store.VectorStore) *recommend.Recommender {
	t.Helper()
	r, err := recommend.New(recommend.Config{Embedder: emb, Index: idx})
	require.NoError(t, err)
	return r
}

var createdAt = time.Date(2026, 5, 17, 8, 30, 0, 0, time.UTC)

func newPost(id, content string, tags ...string) post.Post {
	return post.Post{
		UUID:      id,
		Title:     "Title " + id,
		Content:   content,
		Tags:      tags,
		Language:  "English",
		CreatedAt: createdAt,
	}
}

func uuids(posts []post.Post) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.UUID
	}
	return out
}
