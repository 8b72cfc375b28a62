// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Postrec Contributors

package hashing_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expertbridge/postrec/internal/embedding/hashing"
	"github.com/expertbridge/postrec/internal/store"
	recerr "github.com/expertbridge/postrec/pkg/errors"
)

func newProvider(t *testing.T, dims int) *hashing.Provider {
	t.Helper()
	p, err := hashing.New(dims)
	require.NoError(t, err)
	return p
}

func TestProvider_Deterministic(t *testing.T) {
	p := newProvider(t, 64)
	ctx := context.Background()

	a, err := p.Embed(ctx, "Go channels and goroutines")
	require.NoError(t, err)
	b, err := p.Embed(ctx, "Go channels and goroutines")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestProvider_EmbedManyMatchesEmbed(t *testing.T) {
	p := newProvider(t, 32)
	ctx := context.Background()
	texts := []string{"first post", "second post about databases", "third"}

	batch, err := p.EmbedMany(ctx, texts)
	require.NoError(t, err)
	require.Len(t, batch, len(texts))

	for i, text := range texts {
		single, err := p.Embed(ctx, text)
		require.NoError(t, err)
		assert.Equal(t, single, batch[i], "element %d", i)
	}
}

func TestProvider_UnitLength(t *testing.T) {
	p := newProvider(t, 128)
	vec, err := p.Embed(context.Background(), "unit length vectors make cosine and l2 agree")
	require.NoError(t, err)

	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1, math.Sqrt(sum), 1e-5)
}

func TestProvider_SharedWordsAreCloser(t *testing.T) {
	p := newProvider(t, 384)
	ctx := context.Background()

	query, err := p.Embed(ctx, "rust memory safety")
	require.NoError(t, err)
	near, err := p.Embed(ctx, "memory safety in rust without a garbage collector")
	require.NoError(t, err)
	far, err := p.Embed(ctx, "baking sourdough bread at home")
	require.NoError(t, err)

	assert.Less(t, store.MetricCosine.Distance(query, near), store.MetricCosine.Distance(query, far))
}

func TestProvider_Tokens(t *testing.T) {
	p := newProvider(t, 8)
	assert.Equal(t, []string{"hello", "wörld", "fi", "42"}, p.Tokens("Hello, WÖRLD! ﬁ 42"))
	assert.Empty(t, p.Tokens("!!! ..."))
}

func TestProvider_NoWordsEmbedsAsZero(t *testing.T) {
	p := newProvider(t, 16)
	for _, text := range []string{"🎉🎉", "!!!"} {
		vec, err := p.Embed(context.Background(), text)
		require.NoError(t, err, text)
		assert.Equal(t, make([]float32, 16), vec, text)
		assert.InDelta(t, 1, store.MetricCosine.Distance(vec, vec), 1e-9)
	}
}

func TestProvider_Errors(t *testing.T) {
	_, err := hashing.New(0)
	require.Error(t, err)
	assert.True(t, recerr.HasCode(err, recerr.CodeEmbeddingConfigInvalid))

	p := newProvider(t, 8)
	_, err = p.Embed(context.Background(), "   ")
	require.Error(t, err)
	assert.True(t, recerr.IsEmbeddingFailure(err))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.EmbedMany(ctx, []string{"a"})
	require.Error(t, err)
	assert.True(t, recerr.IsEmbeddingFailure(err))
}
