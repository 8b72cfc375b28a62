// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Postrec Contributors

package embedding_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expertbridge/postrec/internal/embedding"
	recerr "github.com/expertbridge/postrec/pkg/errors"
)

func TestRateLimited_AllowsBurst(t *testing.T) {
	stub := &stubProvider{dims: 2}
	rl := embedding.NewRateLimited(stub, embedding.RateLimitConfig{RequestsPerSecond: 1, Burst: 3})

	for range 3 {
		_, err := rl.Embed(context.Background(), "x")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), stub.calls.Load())
}

func TestRateLimited_CancelledWait(t *testing.T) {
	stub := &stubProvider{dims: 2}
	rl := embedding.NewRateLimited(stub, embedding.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1})

	_, err := rl.EmbedMany(context.Background(), []string{"x"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = rl.EmbedMany(ctx, []string{"y"})
	require.Error(t, err)
	assert.True(t, recerr.HasCode(err, recerr.CodeEmbeddingRateLimitFailure))
	assert.True(t, recerr.IsEmbeddingFailure(err))
	assert.Equal(t, int32(1), stub.calls.Load(), "upstream is not called when the wait fails")
}
