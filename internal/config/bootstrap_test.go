// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Postrec Contributors

package config_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expertbridge/postrec/internal/config"
)

func TestBootstrapConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "postrec.yaml")

	written, err := config.BootstrapConfig(path)
	require.NoError(t, err)
	assert.True(t, written)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# api_key: keyring://postrec/embedding_api_key")
	assert.Contains(t, string(data), "postrec secret set embedding_api_key")
	assert.NotContains(t, string(data), "{{")

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}

	plaintext, err := config.PlaintextAPIKey(path)
	require.NoError(t, err)
	assert.False(t, plaintext)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "hashing", cfg.Embedding.Provider)
}

func TestBootstrapConfig_KeepsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "postrec.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: /srv/postrec\n"), 0o600))

	written, err := config.BootstrapConfig(path)
	require.NoError(t, err)
	assert.False(t, written)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "data_dir: /srv/postrec\n", string(data))
}

func TestPlaintextAPIKey(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    bool
	}{
		{name: "literal key", content: "embedding:\n  api_key: sk-abc\n", want: true},
		{name: "keyring reference", content: "embedding:\n  api_key: keyring://postrec/embedding_api_key\n"},
		{name: "blank key", content: "embedding:\n  api_key: \"  \"\n"},
		{name: "no embedding section", content: "data_dir: ./data\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "postrec.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			got, err := config.PlaintextAPIKey(path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := config.PlaintextAPIKey(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
