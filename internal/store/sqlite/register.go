// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Postrec Contributors

package sqlite

import (
	"os"
	"path/filepath"

	"github.com/expertbridge/postrec/internal/store"
	recerr "github.com/expertbridge/postrec/pkg/errors"
)

func init() {
	store.RegisterBackend("sqlite", newVectorStore)
}

func newVectorStore(cfg store.StorageConfig) (store.VectorStore, error) {
	if cfg.Path == "" {
		return nil, recerr.New(recerr.CodeIndexOpenInvalid, "sqlite backend requires a database path",
			recerr.FieldBackend("sqlite"))
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, recerr.Wrapf(err, recerr.CodeIndexDatabaseFailure, "creating directory for %s", cfg.Path)
	}

	vs, err := NewVectorStore(cfg.Path, cfg.Dimensions, cfg.Metric)
	if err != nil {
		return nil, recerr.With(err, recerr.FieldBackend("sqlite"))
	}
	return vs, nil
}
