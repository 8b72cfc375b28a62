// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Postrec Contributors

package store

// StorageConfig controls which backend the store factory uses.
type StorageConfig struct {
	Backend    string // "sqlite" (default) or "memory".
	Path       string // Database or snapshot file; empty keeps a memory index ephemeral.
	Dimensions int    // Embedding dimensions; 0 uses the default (384).
	Metric     Metric // Distance metric; empty uses cosine.
}
