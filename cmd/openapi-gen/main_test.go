// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Postrec Contributors

package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSpec(t *testing.T) {
	spec, err := generateSpec()
	require.NoError(t, err)
	assert.Contains(t, string(spec), "openapi")
	assert.Contains(t, string(spec), "3.1")
	assert.Contains(t, string(spec), "/health")
	assert.Contains(t, string(spec), "/api/v1/posts")
	assert.Contains(t, string(spec), "/api/v1/posts/batch")
	assert.Contains(t, string(spec), "/api/v1/recommendations")
}

func TestGenerateSpec_ValidJSON(t *testing.T) {
	spec, err := generateSpec()
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(spec, &doc))
	assert.Contains(t, doc, "paths")
	assert.Contains(t, doc, "components")
}
