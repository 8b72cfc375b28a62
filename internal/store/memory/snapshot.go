// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Postrec Contributors

package memory

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/expertbridge/postrec/internal/store"
	recerr "github.com/expertbridge/postrec/pkg/errors"
)

// snapshot is the persisted form of a memory store.
type snapshot struct {
	Dimensions int          `json:"dimensions"`
	Metric     store.Metric `json:"metric"`
	Entries    []entry      `json:"entries"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// loadFromDisk reads the snapshot file. A missing file leaves the store empty.
func (v *VectorStore) loadFromDisk() error {
	data, err := os.ReadFile(v.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return recerr.Wrapf(err, recerr.CodeIndexDatabaseFailure, "reading snapshot %s", v.path)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return recerr.Wrapf(err, recerr.CodeIndexRecordCorrupt, "decoding snapshot %s", v.path)
	}
	if snap.Dimensions != v.dimensions {
		return recerr.Errorf(recerr.CodeIndexOpenDimensionMismatch,
			"snapshot %s has %d dimensions, opened with %d", v.path, snap.Dimensions, v.dimensions)
	}
	if snap.Metric != v.metric {
		return recerr.Errorf(recerr.CodeIndexOpenInvalid,
			"snapshot %s uses metric %s, opened with %s", v.path, snap.Metric, v.metric)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.entries = v.entries[:0]
	v.positions = make(map[string]int, len(snap.Entries))
	for _, e := range snap.Entries {
		if len(e.Embedding) != v.dimensions {
			return recerr.Errorf(recerr.CodeIndexRecordCorrupt,
				"snapshot entry %s has %d dimensions", e.ID, len(e.Embedding))
		}
		if e.Metadata == nil {
			e.Metadata = map[string]any{}
		}
		if pos, ok := v.positions[e.ID]; ok {
			v.entries[pos] = e
			continue
		}
		v.positions[e.ID] = len(v.entries)
		v.entries = append(v.entries, e)
	}
	return nil
}

// Flush writes the current snapshot.
func (v *VectorStore) Flush() error {
	if v.path == "" {
		return recerr.New(recerr.CodeIndexOpenInvalid, "memory store has no snapshot path")
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.writeSnapshot(v.entries)
}

// writeSnapshot replaces the snapshot file atomically through a temp file and
// rename. The caller MUST hold v.mu.Lock so snapshots land in upsert order.
func (v *VectorStore) writeSnapshot(entries []entry) error {
	data, err := json.Marshal(snapshot{
		Dimensions: v.dimensions,
		Metric:     v.metric,
		Entries:    entries,
		UpdatedAt:  time.Now().UTC(),
	})
	if err != nil {
		return recerr.Wrapf(err, recerr.CodeIndexDatabaseFailure, "encoding snapshot")
	}

	dir := filepath.Dir(v.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return recerr.Wrapf(err, recerr.CodeIndexDatabaseFailure, "creating snapshot directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(v.path)+".*.tmp")
	if err != nil {
		return recerr.Wrapf(err, recerr.CodeIndexDatabaseFailure, "creating temp snapshot")
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return recerr.Wrapf(err, recerr.CodeIndexDatabaseFailure, "writing snapshot")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return recerr.Wrapf(err, recerr.CodeIndexDatabaseFailure, "syncing snapshot")
	}
	if err := tmp.Close(); err != nil {
		return recerr.Wrapf(err, recerr.CodeIndexDatabaseFailure, "closing snapshot")
	}
	if err := os.Rename(tmpName, v.path); err != nil {
		return recerr.Wrapf(err, recerr.CodeIndexDatabaseFailure, "replacing snapshot %s", v.path)
	}
	return nil
}
