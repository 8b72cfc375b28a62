// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Postrec Contributors

package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/expertbridge/postrec/internal/secrets"
)

// useMemorySecrets swaps the keyring for an in-memory store for one test.
func useMemorySecrets(t *testing.T) *secrets.MemoryStore {
	t.Helper()
	store := secrets.NewMemoryStore()
	prev := secretStoreFactory
	secretStoreFactory = func() secrets.Store { return store }
	t.Cleanup(func() { secretStoreFactory = prev })
	return store
}

// writeConfig writes a config using the hashing embedder and a memory index
// snapshotted inside a temp dir. extra is appended verbatim.
func writeConfig(t *testing.T, extra string) (cfgPath, dir string) {
	t.Helper()
	dir = t.TempDir()
	t.Setenv("HOME", dir)

	cfg := fmt.Sprintf(`data_dir: %[1]s
storage:
  backend: memory
  path: %[1]s/index.json
embedding:
  provider: hashing
  dimensions: 64
logging:
  level: error
%[2]s`, dir, extra)

	cfgPath = filepath.Join(dir, "postrec.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))
	return cfgPath, dir
}

// run executes the CLI with args and returns stdout.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}
