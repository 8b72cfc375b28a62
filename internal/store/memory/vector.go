// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Postrec Contributors

// Package memory provides an in-process vector store that ranks by exact
// linear scan and optionally snapshots itself to a JSON file.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"

	"github.com/expertbridge/postrec/internal/store"
	recerr "github.com/expertbridge/postrec/pkg/errors"
)

// Compile-time interface check.
var _ store.VectorStore = (*VectorStore)(nil)

type entry struct {
	ID        string         `json:"id"`
	Embedding []float32      `json:"embedding"`
	Metadata  map[string]any `json:"metadata"`
	Text      string         `json:"text"`
}

// VectorStore implements store.VectorStore in memory. Entries are kept in
// first-insertion order, which makes a stable sort by distance resolve ties
// the same way the sqlite backend does.
type VectorStore struct {
	mu         sync.RWMutex
	entries    []entry
	positions  map[string]int
	dimensions int
	metric     store.Metric
	path       string
}

// NewVectorStore creates an empty store. When path is non-empty, an existing
// snapshot there is loaded and every successful Upsert rewrites it.
func NewVectorStore(path string, dimensions int, metric store.Metric) (*VectorStore, error) {
	if dimensions <= 0 {
		return nil, recerr.Errorf(recerr.CodeIndexOpenInvalid, "dimensions must be positive, got %d", dimensions)
	}
	if metric == "" {
		metric = store.MetricCosine
	}

	v := &VectorStore{
		positions:  make(map[string]int),
		dimensions: dimensions,
		metric:     metric,
		path:       path,
	}
	if path != "" {
		if err := v.loadFromDisk(); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// Dimensions returns the fixed embedding length of the index.
func (v *VectorStore) Dimensions() int { return v.dimensions }

// Upsert inserts or replaces records. Every record is validated and copied
// before the lock is taken, so a failing batch changes nothing. A file-backed
// store writes its snapshot before the batch becomes visible.
func (v *VectorStore) Upsert(_ context.Context, records ...store.Record) error {
	if err := store.ValidateRecords(v.dimensions, records); err != nil {
		return err
	}

	prepared := make([]entry, 0, len(records))
	for _, r := range records {
		meta, err := cloneMetadata(r.Metadata)
		if err != nil {
			return recerr.Wrapf(err, recerr.CodeIndexUpsertInvalid, "copying metadata of %s", r.ID)
		}
		prepared = append(prepared, entry{
			ID:        r.ID,
			Embedding: append([]float32(nil), r.Embedding...),
			Metadata:  meta,
			Text:      r.Text,
		})
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	entries, positions := v.entries, v.positions
	if v.path != "" {
		entries, positions = slices.Clone(v.entries), maps.Clone(v.positions)
	}
	for _, e := range prepared {
		if pos, ok := positions[e.ID]; ok {
			entries[pos] = e
			continue
		}
		positions[e.ID] = len(entries)
		entries = append(entries, e)
	}

	if v.path != "" {
		if err := v.writeSnapshot(entries); err != nil {
			return err
		}
	}
	v.entries, v.positions = entries, positions
	return nil
}

// Search ranks the entries that match filters by ascending distance.
func (v *VectorStore) Search(_ context.Context, query []float32, k int, filters map[string]any) ([]store.VectorResult, error) {
	if err := store.ValidateQuery(v.dimensions, query, k); err != nil {
		return nil, err
	}
	f, err := store.ParseFilter(filters)
	if err != nil {
		return nil, err
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	results := make([]store.VectorResult, 0, min(k, len(v.entries)))
	if k == 0 {
		return results, nil
	}
	for _, e := range v.entries {
		if !f.Match(e.Metadata) {
			continue
		}
		results = append(results, store.VectorResult{
			ID:       e.ID,
			Distance: v.metric.Distance(query, e.Embedding),
			Metadata: e.Metadata,
			Text:     e.Text,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})

	if k < len(results) {
		results = results[:k]
	}

	// Hand out copies so callers cannot mutate stored metadata.
	for i := range results {
		meta, err := cloneMetadata(results[i].Metadata)
		if err != nil {
			return nil, recerr.Wrap(err, recerr.CodeIndexRecordCorrupt,
				fmt.Sprintf("copying metadata of %s", results[i].ID), recerr.FieldPostID(results[i].ID))
		}
		results[i].Metadata = meta
	}
	return results, nil
}

// Count returns the number of records in the index.
func (v *VectorStore) Count(_ context.Context) (int, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.entries), nil
}

// Close writes the snapshot when the store is file-backed.
func (v *VectorStore) Close() error {
	if v.path == "" {
		return nil
	}
	return v.Flush()
}

// cloneMetadata deep-copies metadata through JSON so stored values have the
// same shapes the sqlite backend returns.
func cloneMetadata(m map[string]any) (map[string]any, error) {
	out := map[string]any{}
	if len(m) == 0 {
		return out, nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
