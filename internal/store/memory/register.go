// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Postrec Contributors

package memory

import "github.com/expertbridge/postrec/internal/store"

func init() {
	store.RegisterBackend("memory", func(cfg store.StorageConfig) (store.VectorStore, error) {
		return NewVectorStore(cfg.Path, cfg.Dimensions, cfg.Metric)
	})
}
