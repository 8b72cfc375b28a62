// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Postrec Contributors

package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expertbridge/postrec/internal/store"
	recerr "github.com/expertbridge/postrec/pkg/errors"
)

type stubStore struct {
	cfg store.StorageConfig
}

func (s *stubStore) Upsert(context.Context, ...store.Record) error { return nil }
func (s *stubStore) Search(context.Context, []float32, int, map[string]any) ([]store.VectorResult, error) {
	return []store.VectorResult{}, nil
}
func (s *stubStore) Count(context.Context) (int, error) { return 0, nil }
func (s *stubStore) Dimensions() int                    { return s.cfg.Dimensions }
func (s *stubStore) Close() error                       { return nil }

func TestNewVectorStore_ResolvesDefaults(t *testing.T) {
	store.RegisterBackend("stub-defaults", func(cfg store.StorageConfig) (store.VectorStore, error) {
		return &stubStore{cfg: cfg}, nil
	})

	vs, err := store.NewVectorStore(&store.StorageConfig{Backend: "stub-defaults"})
	require.NoError(t, err)

	stub, ok := vs.(*stubStore)
	require.True(t, ok)
	assert.Equal(t, store.DefaultDimensions, stub.cfg.Dimensions)
	assert.Equal(t, store.MetricCosine, stub.cfg.Metric)
	assert.Equal(t, "stub-defaults", stub.cfg.Backend)
}

func TestNewVectorStore_UnknownBackend(t *testing.T) {
	_, err := store.NewVectorStore(&store.StorageConfig{Backend: "cassandra"})
	require.Error(t, err)
	assert.True(t, recerr.HasCode(err, recerr.CodeIndexBackendUnsupported))
	assert.Contains(t, err.Error(), "cassandra")
}

func TestNewVectorStore_UnknownMetric(t *testing.T) {
	store.RegisterBackend("stub-metric", func(cfg store.StorageConfig) (store.VectorStore, error) {
		return &stubStore{cfg: cfg}, nil
	})

	_, err := store.NewVectorStore(&store.StorageConfig{Backend: "stub-metric", Metric: "manhattan"})
	require.Error(t, err)
	assert.True(t, recerr.HasCode(err, recerr.CodeIndexOpenInvalid))
}

func TestBackends_Sorted(t *testing.T) {
	store.RegisterBackend("zz-stub", func(cfg store.StorageConfig) (store.VectorStore, error) { return &stubStore{cfg: cfg}, nil })
	store.RegisterBackend("aa-stub", func(cfg store.StorageConfig) (store.VectorStore, error) { return &stubStore{cfg: cfg}, nil })

	names := store.Backends()
	assert.IsNonDecreasing(t, names)
	assert.Contains(t, names, "zz-stub")
	assert.Contains(t, names, "aa-stub")
}
