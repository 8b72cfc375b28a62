// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Postrec Contributors

package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/expertbridge/postrec/internal/embedding"
	"github.com/expertbridge/postrec/internal/embedding/hashing"
	"github.com/expertbridge/postrec/internal/post"
	"github.com/expertbridge/postrec/internal/recommend"
	"github.com/expertbridge/postrec/internal/server"
	"github.com/expertbridge/postrec/internal/store"
	"github.com/expertbridge/postrec/internal/store/memory"
)

const testDims = 64

// newTestServer builds a server over a real recommender backed by the
// hashing embedder and an in-memory index.
func newTestServer(t *testing.T) (*server.Server, *embedding.Tracked) {
	t.Helper()

	h, err := hashing.New(testDims)
	require.NoError(t, err)
	tracked, err := embedding.NewTracked(h, embedding.DefaultHealthCooldown)
	require.NoError(t, err)

	idx, err := memory.NewVectorStore("", testDims, store.MetricCosine)
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	rec, err := recommend.New(recommend.Config{Embedder: tracked, Index: idx})
	require.NoError(t, err)

	return newServerWith(t, rec, tracked), tracked
}

func newServerWith(t *testing.T, rec server.Recommender, eh server.EmbedderHealth) *server.Server {
	t.Helper()
	svc, err := server.NewServices(rec, eh)
	require.NoError(t, err)
	srv, err := server.New(server.Config{ListenAddr: "127.0.0.1:0"}, svc)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

func doJSON(t *testing.T, srv *server.Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// stubRecommender fails every call with err.
type stubRecommender struct {
	err error
}

func (s *stubRecommender) AddPost(context.Context, post.Post) error     { return s.err }
func (s *stubRecommender) AddPosts(context.Context, []post.Post) error { return s.err }
func (s *stubRecommender) RecommendScored(context.Context, recommend.Request) ([]recommend.Scored, error) {
	return nil, s.err
}
func (s *stubRecommender) Count(context.Context) (int, error) { return 0, s.err }
func (s *stubRecommender) Dimensions() int                    { return testDims }

var _ server.Recommender = (*stubRecommender)(nil)

