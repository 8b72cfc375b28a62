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

func TestParseFilter(t *testing.T) {
	tests := []struct {
		name    string
		filters map[string]any
		want    store.Filter
		wantErr bool
	}{
		{name: "nil matches all", filters: nil, want: store.Filter{}},
		{name: "empty matches all", filters: map[string]any{}, want: store.Filter{}},
		{name: "tags string slice", filters: store.TagsIn("go", "rust"), want: store.Filter{Tags: []string{"go", "rust"}}},
		{
			name:    "tags from decoded json",
			filters: map[string]any{"tags": map[string]any{"$in": []any{"go"}}},
			want:    store.Filter{Tags: []string{"go"}},
		},
		{
			name:    "language eq",
			filters: map[string]any{"language": map[string]any{"$eq": "English"}},
			want:    store.Filter{Languages: []string{"English"}},
		},
		{
			name: "tags and language",
			filters: map[string]any{
				"tags":     map[string]any{"$in": []string{"go"}},
				"language": map[string]any{"$in": []string{"English", "German"}},
			},
			want: store.Filter{Tags: []string{"go"}, Languages: []string{"English", "German"}},
		},
		{name: "unknown field", filters: map[string]any{"author": map[string]any{"$eq": "x"}}, wantErr: true},
		{name: "tags with eq", filters: map[string]any{"tags": map[string]any{"$eq": "go"}}, wantErr: true},
		{name: "unknown operator", filters: map[string]any{"tags": map[string]any{"$nin": []string{"go"}}}, wantErr: true},
		{name: "operand not an object", filters: map[string]any{"tags": []string{"go"}}, wantErr: true},
		{name: "two operators", filters: map[string]any{"language": map[string]any{"$eq": "a", "$in": []string{"b"}}}, wantErr: true},
		{name: "empty in", filters: store.TagsIn(), wantErr: true},
		{name: "non-string element", filters: map[string]any{"tags": map[string]any{"$in": []any{"go", 3}}}, wantErr: true},
		{name: "eq non-string", filters: map[string]any{"language": map[string]any{"$eq": 7}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.ParseFilter(tt.filters)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, recerr.IsInvalidFilter(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFilterMatch(t *testing.T) {
	meta := map[string]any{"tags": []any{"go", "databases"}, "language": "English"}

	assert.True(t, store.Filter{}.Match(meta))
	assert.True(t, store.Filter{}.Empty())
	assert.True(t, store.Filter{Tags: []string{"rust", "go"}}.Match(meta))
	assert.False(t, store.Filter{Tags: []string{"rust"}}.Match(meta))
	assert.True(t, store.Filter{Languages: []string{"English"}}.Match(meta))
	assert.False(t, store.Filter{Tags: []string{"go"}, Languages: []string{"German"}}.Match(meta))
	assert.False(t, store.Filter{Tags: []string{"go"}}.Match(map[string]any{}))
}

func TestMetadataTags(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, store.MetadataTags(map[string]any{"tags": []string{"a", "b"}}))
	assert.Equal(t, []string{"a"}, store.MetadataTags(map[string]any{"tags": []any{"a", 1}}))
	assert.Nil(t, store.MetadataTags(map[string]any{"tags": "a"}))
	assert.Nil(t, store.MetadataTags(nil))
}
