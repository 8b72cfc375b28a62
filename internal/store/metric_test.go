// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Postrec Contributors

package store_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expertbridge/postrec/internal/store"
	recerr "github.com/expertbridge/postrec/pkg/errors"
)

func TestParseMetric(t *testing.T) {
	m, err := store.ParseMetric("")
	require.NoError(t, err)
	assert.Equal(t, store.MetricCosine, m)

	m, err = store.ParseMetric("l2")
	require.NoError(t, err)
	assert.Equal(t, store.MetricL2, m)

	_, err = store.ParseMetric("dot")
	require.Error(t, err)
	assert.True(t, recerr.HasCode(err, recerr.CodeIndexOpenInvalid))
}

func TestMetricDistance(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}

	assert.InDelta(t, 0, store.MetricCosine.Distance(a, a), 1e-9)
	assert.InDelta(t, 1, store.MetricCosine.Distance(a, b), 1e-9)
	assert.InDelta(t, 2, store.MetricCosine.Distance(a, []float32{-1, 0}), 1e-9)
	assert.InDelta(t, 1, store.MetricCosine.Distance(a, []float32{0, 0}), 1e-9)
	assert.InDelta(t, 0, store.MetricCosine.Distance(a, []float32{5, 0}), 1e-9, "cosine ignores magnitude")

	assert.InDelta(t, 0, store.MetricL2.Distance(a, a), 1e-9)
	assert.InDelta(t, 1.41421356, store.MetricL2.Distance(a, b), 1e-6)
	assert.InDelta(t, 4, store.MetricL2.Distance(a, []float32{5, 0}), 1e-9)
}

func TestValidateRecordsAndQuery(t *testing.T) {
	err := store.ValidateRecords(2, []store.Record{{ID: "a", Embedding: []float32{1, 0}}, {ID: "b", Embedding: []float32{1}}})
	require.Error(t, err)
	assert.True(t, recerr.IsDimensionMismatch(err))
	assert.Equal(t, "b", recerr.FieldsOf(err)["post_id"])

	err = store.ValidateRecords(2, []store.Record{{ID: " ", Embedding: []float32{1, 0}}})
	require.Error(t, err)
	assert.True(t, recerr.IsInvalidInput(err))

	require.NoError(t, store.ValidateQuery(2, []float32{1, 0}, 0))
	assert.True(t, recerr.IsDimensionMismatch(store.ValidateQuery(2, []float32{1}, 3)))
	assert.True(t, recerr.IsInvalidInput(store.ValidateQuery(2, []float32{1, 0}, -1)))
}
