// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Postrec Contributors

package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	openaisdk "github.com/openai/openai-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expertbridge/postrec/internal/embedding/openai"
	recerr "github.com/expertbridge/postrec/pkg/errors"
)

type embeddingRequest struct {
	Input      []string `json:"input"`
	Model      string   `json:"model"`
	Dimensions int      `json:"dimensions"`
}

// newMockServer answers /v1/embeddings with vectors whose first element is the
// input position, returned in reverse order.
func newMockServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, openai.DefaultModel, req.Model)
		assert.Equal(t, 3, req.Dimensions)

		data := make([]map[string]any, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, map[string]any{
				"object":    "embedding",
				"index":     i,
				"embedding": []float64{float64(i), 0.5, float64(len(req.Input[i]))},
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  req.Model,
			"usage":  map[string]any{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestProvider_EmbedManyPreservesInputOrder(t *testing.T) {
	var calls atomic.Int32
	srv := newMockServer(t, &calls)

	p, err := openai.New(openai.Config{APIKey: "test-key", BaseURL: srv.URL + "/v1/", Dimensions: 3})
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())
	assert.Equal(t, 3, p.Dimensions())

	vecs, err := p.EmbedMany(context.Background(), []string{"a", "bb", "ccc"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.Equal(t, []float32{0, 0.5, 1}, vecs[0])
	assert.Equal(t, []float32{1, 0.5, 2}, vecs[1])
	assert.Equal(t, []float32{2, 0.5, 3}, vecs[2])
	assert.Equal(t, int32(1), calls.Load(), "batch is sent as one request")

	single, err := p.Embed(context.Background(), "bb")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0.5, 2}, single)
}

func TestProvider_RejectedRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"input too long","type":"invalid_request_error"}}`))
	}))
	t.Cleanup(srv.Close)

	p, err := openai.New(openai.Config{APIKey: "test-key", BaseURL: srv.URL + "/v1/", Dimensions: 3})
	require.NoError(t, err)

	_, err = p.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.True(t, recerr.IsEmbeddingFailure(err))
	assert.True(t, recerr.HasCode(err, recerr.CodeEmbeddingRequestInvalid))
}

func TestProvider_BlankInputNeverReachesUpstream(t *testing.T) {
	var calls atomic.Int32
	srv := newMockServer(t, &calls)

	p, err := openai.New(openai.Config{APIKey: "test-key", BaseURL: srv.URL + "/v1/", Dimensions: 3})
	require.NoError(t, err)

	_, err = p.EmbedMany(context.Background(), []string{"ok", "  "})
	require.Error(t, err)
	assert.True(t, recerr.IsEmbeddingFailure(err))
	assert.Equal(t, int32(0), calls.Load())
}

func TestProvider_MissingAPIKey(t *testing.T) {
	_, err := openai.New(openai.Config{Dimensions: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key")
	assert.True(t, recerr.HasCode(err, recerr.CodeEmbeddingConfigInvalid))
	assert.False(t, recerr.IsEmbeddingFailure(err))
}

func TestConvert_RejectsGapsInIndex(t *testing.T) {
	_, err := openai.Convert([]openaisdk.Embedding{{Index: 0, Embedding: []float64{1}}, {Index: 2, Embedding: []float64{1}}}, 3)
	require.Error(t, err)
	assert.True(t, recerr.IsUpstreamFailure(err))
}
