// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Postrec Contributors

package store

import (
	"sort"
	"sync"

	recerr "github.com/expertbridge/postrec/pkg/errors"
)

// DefaultDimensions matches the all-MiniLM-L6-v2 sentence embedding model.
const DefaultDimensions = 384

// VectorStoreFactory opens a vector store from a resolved configuration.
type VectorStoreFactory func(cfg StorageConfig) (VectorStore, error)

var (
	factories   = map[string]VectorStoreFactory{}
	factoriesMu sync.RWMutex
)

// RegisterBackend registers the factory for a named storage backend.
// Backend packages call this from init(). This function is goroutine-safe.
func RegisterBackend(name string, factory VectorStoreFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = factory
}

// Backends lists registered backend names in sorted order.
func Backends() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// resolveBackend returns the effective backend name, defaulting to "sqlite".
func resolveBackend(cfg *StorageConfig) string {
	if cfg.Backend == "" {
		return "sqlite"
	}
	return cfg.Backend
}

// NewVectorStore opens the vector store selected by cfg.
func NewVectorStore(cfg *StorageConfig) (VectorStore, error) {
	backend := resolveBackend(cfg)

	factoriesMu.RLock()
	factory, ok := factories[backend]
	factoriesMu.RUnlock()
	if !ok {
		return nil, recerr.New(recerr.CodeIndexBackendUnsupported,
			"unsupported storage backend: "+backend, recerr.FieldBackend(backend))
	}

	resolved := *cfg
	resolved.Backend = backend
	if resolved.Dimensions <= 0 {
		resolved.Dimensions = DefaultDimensions
	}
	metric, err := ParseMetric(string(resolved.Metric))
	if err != nil {
		return nil, err
	}
	resolved.Metric = metric

	return factory(resolved)
}
