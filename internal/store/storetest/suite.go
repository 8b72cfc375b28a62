// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Postrec Contributors

// Package storetest holds the behavioral suite every store.VectorStore
// backend must pass.
package storetest

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expertbridge/postrec/internal/store"
	recerr "github.com/expertbridge/postrec/pkg/errors"
)

// Opener returns a fresh, empty store with the given dimensions. The opener
// is responsible for registering cleanup.
type Opener func(t *testing.T, dims int) store.VectorStore

// Run executes the suite against stores produced by open.
func Run(t *testing.T, open Opener) {
	t.Run("NearestFirst", func(t *testing.T) { testNearestFirst(t, open) })
	t.Run("RankingOrder", func(t *testing.T) { testRankingOrder(t, open) })
	t.Run("TiesByInsertionOrder", func(t *testing.T) { testTiesByInsertionOrder(t, open) })
	t.Run("IdempotentUpsert", func(t *testing.T) { testIdempotentUpsert(t, open) })
	t.Run("UpsertReplaces", func(t *testing.T) { testUpsertReplaces(t, open) })
	t.Run("TagFilterBeforeRanking", func(t *testing.T) { testTagFilter(t, open) })
	t.Run("LanguageFilter", func(t *testing.T) { testLanguageFilter(t, open) })
	t.Run("EmptyMatchIsNotAnError", func(t *testing.T) { testEmptyMatch(t, open) })
	t.Run("InvalidFilter", func(t *testing.T) { testInvalidFilter(t, open) })
	t.Run("LimitCapsResults", func(t *testing.T) { testLimit(t, open) })
	t.Run("DimensionMismatchRejectsBatch", func(t *testing.T) { testDimensionMismatch(t, open) })
	t.Run("SearchDimensionMismatch", func(t *testing.T) { testSearchDimensionMismatch(t, open) })
	t.Run("ZeroVectorRecord", func(t *testing.T) { testZeroVectorRecord(t, open) })
	t.Run("NonFiniteVectorsRejected", func(t *testing.T) { testNonFinite(t, open) })
	t.Run("ConcurrentSameKeyUpsert", func(t *testing.T) { testConcurrentSameKey(t, open) })
	t.Run("SearchDuringUpsert", func(t *testing.T) { testSearchDuringUpsert(t, open) })
}

func rec(id string, emb []float32, tags ...string) store.Record {
	return store.Record{
		ID:        id,
		Embedding: emb,
		Metadata:  map[string]any{"title": "title " + id, "tags": tags, "language": "English"},
		Text:      "text of " + id,
	}
}

func ids(results []store.VectorResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.ID
	}
	return out
}

func testNearestFirst(t *testing.T, open Opener) {
	ctx := context.Background()
	vs := open(t, 3)

	require.NoError(t, vs.Upsert(ctx,
		rec("v1", []float32{1, 0, 0}),
		rec("v2", []float32{0, 1, 0}),
		rec("v3", []float32{0.9, 0.1, 0}),
	))

	results, err := vs.Search(ctx, []float32{1, 0, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "v1", results[0].ID)
	assert.Equal(t, "v3", results[1].ID)
	assert.Equal(t, "text of v1", results[0].Text)
	assert.Equal(t, "title v1", results[0].Metadata["title"])
	assert.InDelta(t, 0, results[0].Distance, 1e-5)
}

func testRankingOrder(t *testing.T, open Opener) {
	ctx := context.Background()
	vs := open(t, 3)

	// Inserted out of distance order on purpose.
	require.NoError(t, vs.Upsert(ctx, rec("far", []float32{0, 1, 0})))
	require.NoError(t, vs.Upsert(ctx, rec("near", []float32{1, 0, 0})))
	require.NoError(t, vs.Upsert(ctx, rec("mid", []float32{1, 1, 0})))

	results, err := vs.Search(ctx, []float32{1, 0, 0}, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"near", "mid", "far"}, ids(results))
	assert.Less(t, results[0].Distance, results[1].Distance)
	assert.Less(t, results[1].Distance, results[2].Distance)
}

func testTiesByInsertionOrder(t *testing.T, open Opener) {
	ctx := context.Background()
	vs := open(t, 3)

	same := []float32{0.3, 0.4, 0.5}
	for _, id := range []string{"z", "x", "y"} {
		require.NoError(t, vs.Upsert(ctx, rec(id, same)))
	}

	results, err := vs.Search(ctx, []float32{1, 0, 0}, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "x", "y"}, ids(results))

	// Replacing a record keeps its original position.
	require.NoError(t, vs.Upsert(ctx, rec("z", same)))
	results, err = vs.Search(ctx, []float32{1, 0, 0}, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "x", "y"}, ids(results))
}

func testIdempotentUpsert(t *testing.T, open Opener) {
	ctx := context.Background()
	vs := open(t, 3)

	r := rec("dup", []float32{1, 0, 0}, "a")
	require.NoError(t, vs.Upsert(ctx, r))
	require.NoError(t, vs.Upsert(ctx, r))

	n, err := vs.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	results, err := vs.Search(ctx, []float32{1, 0, 0}, 10, store.TagsIn("a"))
	require.NoError(t, err)
	assert.Equal(t, []string{"dup"}, ids(results))
}

func testUpsertReplaces(t *testing.T, open Opener) {
	ctx := context.Background()
	vs := open(t, 3)

	require.NoError(t, vs.Upsert(ctx, store.Record{
		ID: "v1", Embedding: []float32{1, 0, 0}, Text: "first",
		Metadata: map[string]any{"version": "1", "tags": []string{"old"}},
	}))
	require.NoError(t, vs.Upsert(ctx, store.Record{
		ID: "v1", Embedding: []float32{0, 1, 0}, Text: "second",
		Metadata: map[string]any{"version": "2", "tags": []string{"new"}},
	}))

	results, err := vs.Search(ctx, []float32{0, 1, 0}, 1, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "v1", results[0].ID)
	assert.Equal(t, "second", results[0].Text)
	assert.Equal(t, "2", results[0].Metadata["version"])
	assert.InDelta(t, 0, results[0].Distance, 1e-5)

	// Old tags no longer match.
	results, err = vs.Search(ctx, []float32{0, 1, 0}, 10, store.TagsIn("old"))
	require.NoError(t, err)
	assert.Empty(t, results)
}

func testTagFilter(t *testing.T, open Opener) {
	ctx := context.Background()
	vs := open(t, 3)

	require.NoError(t, vs.Upsert(ctx,
		rec("closest-untagged", []float32{1, 0, 0}, "other"),
		rec("tagged-far", []float32{0, 0, 1}, "t"),
		rec("tagged-mid", []float32{1, 1, 0}, "x", "t"),
		rec("no-tags", []float32{1, 0, 0}),
	))

	results, err := vs.Search(ctx, []float32{1, 0, 0}, 10, store.TagsIn("t"))
	require.NoError(t, err)
	assert.Equal(t, []string{"tagged-mid", "tagged-far"}, ids(results))

	// Any-of semantics across several allowed tags.
	results, err = vs.Search(ctx, []float32{1, 0, 0}, 10, store.TagsIn("other", "x"))
	require.NoError(t, err)
	assert.Equal(t, []string{"closest-untagged", "tagged-mid"}, ids(results))

	// The filter restricts candidates before the limit is applied.
	results, err = vs.Search(ctx, []float32{1, 0, 0}, 1, store.TagsIn("t"))
	require.NoError(t, err)
	assert.Equal(t, []string{"tagged-mid"}, ids(results))
}

func testLanguageFilter(t *testing.T, open Opener) {
	ctx := context.Background()
	vs := open(t, 3)

	arabic := rec("ar", []float32{0, 1, 0}, "t")
	arabic.Metadata["language"] = "Arabic"
	require.NoError(t, vs.Upsert(ctx, rec("en", []float32{1, 0, 0}, "t"), arabic))

	results, err := vs.Search(ctx, []float32{1, 0, 0}, 10, map[string]any{
		"language": map[string]any{"$eq": "Arabic"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"ar"}, ids(results))

	results, err = vs.Search(ctx, []float32{1, 0, 0}, 10, map[string]any{
		"tags":     map[string]any{"$in": []any{"t"}},
		"language": map[string]any{"$in": []string{"English", "Mixed"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"en"}, ids(results))
}

func testEmptyMatch(t *testing.T, open Opener) {
	ctx := context.Background()
	vs := open(t, 3)

	results, err := vs.Search(ctx, []float32{1, 0, 0}, 5, nil)
	require.NoError(t, err)
	assert.Empty(t, results)

	require.NoError(t, vs.Upsert(ctx, rec("v1", []float32{1, 0, 0}, "a")))
	results, err = vs.Search(ctx, []float32{1, 0, 0}, 5, store.TagsIn("nonexistent-tag"))
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = vs.Search(ctx, []float32{1, 0, 0}, 0, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func testInvalidFilter(t *testing.T, open Opener) {
	ctx := context.Background()
	vs := open(t, 3)
	require.NoError(t, vs.Upsert(ctx, rec("v1", []float32{1, 0, 0}, "a")))

	bad := []map[string]any{
		{"tags": "a"},
		{"tags": map[string]any{"$gt": []string{"a"}}},
		{"tags": map[string]any{"$eq": "a"}},
		{"tags": map[string]any{"$in": []string{}}},
		{"tags": map[string]any{"$in": []any{"a", 1}}},
		{"tags": map[string]any{"$in": []string{"a"}, "$eq": "b"}},
		{"author": map[string]any{"$eq": "someone"}},
		{"language": map[string]any{"$eq": 7}},
	}
	for i, f := range bad {
		t.Run(fmt.Sprintf("case%d", i), func(t *testing.T) {
			_, err := vs.Search(ctx, []float32{1, 0, 0}, 5, f)
			require.Error(t, err)
			assert.True(t, recerr.IsInvalidFilter(err), "got %s", recerr.CodeOf(err))
		})
	}
}

func testLimit(t *testing.T, open Opener) {
	ctx := context.Background()
	vs := open(t, 3)

	for i := range 5 {
		require.NoError(t, vs.Upsert(ctx, rec(fmt.Sprintf("v%d", i), []float32{1, float32(i), 0})))
	}

	results, err := vs.Search(ctx, []float32{1, 0, 0}, 3, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"v0", "v1", "v2"}, ids(results))

	results, err = vs.Search(ctx, []float32{1, 0, 0}, 50, nil)
	require.NoError(t, err)
	assert.Len(t, results, 5)
}

func testDimensionMismatch(t *testing.T, open Opener) {
	ctx := context.Background()
	vs := open(t, 3)
	assert.Equal(t, 3, vs.Dimensions())

	require.NoError(t, vs.Upsert(ctx, rec("ok", []float32{1, 0, 0})))

	err := vs.Upsert(ctx,
		rec("fine", []float32{0, 1, 0}),
		rec("short", []float32{1, 0}),
	)
	require.Error(t, err)
	assert.True(t, recerr.HasCode(err, recerr.CodeIndexUpsertDimensionMismatch), "got %s", recerr.CodeOf(err))

	n, err := vs.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "a rejected batch must not write any record")
}

func testSearchDimensionMismatch(t *testing.T, open Opener) {
	vs := open(t, 3)

	_, err := vs.Search(context.Background(), []float32{1, 0, 0, 0}, 5, nil)
	require.Error(t, err)
	assert.True(t, recerr.HasCode(err, recerr.CodeIndexSearchDimensionMismatch), "got %s", recerr.CodeOf(err))
}

func testZeroVectorRecord(t *testing.T, open Opener) {
	ctx := context.Background()
	vs := open(t, 3)

	require.NoError(t, vs.Upsert(ctx,
		rec("zero", []float32{0, 0, 0}, "z"),
		rec("near", []float32{1, 0, 0}, "n"),
	))

	results, err := vs.Search(ctx, []float32{1, 0, 0}, 10, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"near", "zero"}, ids(results))
	for _, r := range results {
		assert.False(t, math.IsNaN(r.Distance) || math.IsInf(r.Distance, 0), "distance of %s", r.ID)
	}
	// Cosine treats a zero-norm side as unrelated; l2 measures the unit gap.
	assert.InDelta(t, 0, results[0].Distance, 1e-5)
	assert.InDelta(t, 1, results[1].Distance, 1e-5)

	results, err = vs.Search(ctx, []float32{1, 0, 0}, 10, store.TagsIn("z"))
	require.NoError(t, err)
	assert.Equal(t, []string{"zero"}, ids(results))

	// A zero query ties every record; insertion order decides.
	results, err = vs.Search(ctx, []float32{0, 0, 0}, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"zero", "near"}, ids(results))
}

func testNonFinite(t *testing.T, open Opener) {
	ctx := context.Background()
	vs := open(t, 3)
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))

	err := vs.Upsert(ctx, rec("ok", []float32{1, 0, 0}), rec("nan", []float32{nan, 0, 0}))
	require.Error(t, err)
	assert.True(t, recerr.IsInvalidInput(err), "got %s", recerr.CodeOf(err))

	n, err := vs.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = vs.Search(ctx, []float32{inf, 0, 0}, 5, nil)
	require.Error(t, err)
	assert.True(t, recerr.IsInvalidInput(err), "got %s", recerr.CodeOf(err))
}

func testConcurrentSameKey(t *testing.T, open Opener) {
	ctx := context.Background()
	vs := open(t, 3)

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- vs.Upsert(ctx, store.Record{
				ID:        "shared",
				Embedding: []float32{float32(i + 1), 1, 0},
				Text:      fmt.Sprintf("writer %d", i),
				Metadata:  map[string]any{"writer": fmt.Sprintf("writer %d", i), "tags": []string{fmt.Sprintf("w%d", i)}},
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	n, err := vs.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	results, err := vs.Search(ctx, []float32{1, 0, 0}, 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)

	winner := results[0]
	assert.Equal(t, winner.Text, winner.Metadata["writer"], "text and metadata must come from the same write")

	var idx int
	_, err = fmt.Sscanf(winner.Text, "writer %d", &idx)
	require.NoError(t, err)
	tagged, err := vs.Search(ctx, []float32{1, 0, 0}, 10, store.TagsIn(fmt.Sprintf("w%d", idx)))
	require.NoError(t, err)
	assert.Len(t, tagged, 1, "tag index must belong to the winning write")
}

func testSearchDuringUpsert(t *testing.T, open Opener) {
	ctx := context.Background()
	vs := open(t, 3)
	require.NoError(t, vs.Upsert(ctx, store.Record{
		ID: "r", Embedding: []float32{1, 0, 0}, Text: "0", Metadata: map[string]any{"version": "0"},
	}))

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(done)
		for i := 1; i <= 50; i++ {
			v := fmt.Sprintf("%d", i)
			if err := vs.Upsert(ctx, store.Record{
				ID: "r", Embedding: []float32{1, float32(i), 0}, Text: v, Metadata: map[string]any{"version": v},
			}); err != nil {
				t.Errorf("upsert %d: %v", i, err)
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			wg.Wait()
			return
		default:
		}
		results, err := vs.Search(ctx, []float32{1, 0, 0}, 1, nil)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, results[0].Text, results[0].Metadata["version"])
	}
}
