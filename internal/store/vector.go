// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Postrec Contributors

package store

import (
	"context"
	"fmt"
	"math"
	"strings"

	recerr "github.com/expertbridge/postrec/pkg/errors"
)

// VectorStore is the persistent nearest-neighbor index of post records.
//
// Upsert inserts or replaces records by ID; a batch is applied atomically or
// not at all. Search restricts candidates with filters before ranking them by
// ascending distance, breaking exact ties by first-insertion order.
type VectorStore interface {
	Upsert(ctx context.Context, records ...Record) error
	Search(ctx context.Context, query []float32, k int, filters map[string]any) ([]VectorResult, error)
	Count(ctx context.Context) (int, error)
	Dimensions() int
	Close() error
}

// Record is one indexed entry. Embedding and Text always come from the same
// write and are never updated independently.
type Record struct {
	ID        string
	Embedding []float32
	Metadata  map[string]any
	Text      string
}

// VectorResult is a search hit. Distance is lower for closer matches.
type VectorResult struct {
	ID       string
	Distance float64
	Metadata map[string]any
	Text     string
}

// ValidateRecords checks a batch before any of it is written.
func ValidateRecords(dimensions int, records []Record) error {
	for _, r := range records {
		if strings.TrimSpace(r.ID) == "" {
			return recerr.New(recerr.CodeIndexUpsertInvalid, "record id is required")
		}
		if len(r.Embedding) != dimensions {
			return recerr.New(recerr.CodeIndexUpsertDimensionMismatch,
				fmt.Sprintf("record %s: embedding has %d dimensions, index expects %d", r.ID, len(r.Embedding), dimensions),
				recerr.FieldPostID(r.ID),
				recerr.Field("expected", dimensions),
				recerr.Field("actual", len(r.Embedding)),
			)
		}
		if i := nonFinite(r.Embedding); i >= 0 {
			return recerr.New(recerr.CodeIndexUpsertInvalid,
				fmt.Sprintf("record %s: embedding component %d is not finite", r.ID, i),
				recerr.FieldPostID(r.ID))
		}
	}
	return nil
}

// ValidateQuery checks the search arguments shared by every backend.
func ValidateQuery(dimensions int, query []float32, k int) error {
	if len(query) != dimensions {
		return recerr.New(recerr.CodeIndexSearchDimensionMismatch,
			fmt.Sprintf("query vector has %d dimensions, index expects %d", len(query), dimensions),
			recerr.Field("expected", dimensions),
			recerr.Field("actual", len(query)),
		)
	}
	if i := nonFinite(query); i >= 0 {
		return recerr.Errorf(recerr.CodeIndexSearchInvalid, "query vector component %d is not finite", i)
	}
	if k < 0 {
		return recerr.Errorf(recerr.CodeIndexSearchInvalid, "search limit must not be negative, got %d", k)
	}
	return nil
}

// nonFinite returns the index of the first NaN or infinite component, or -1.
func nonFinite(v []float32) int {
	for i, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return i
		}
	}
	return -1
}
