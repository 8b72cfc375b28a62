// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Postrec Contributors

//go:build !windows

package config

import (
	"io/fs"
	"log/slog"
	"os"
)

// WarnInsecurePermissions warns when the config file at path holds a
// plaintext embedding.api_key and is readable by group or others. It never
// fails startup and reports whether a warning was logged.
func WarnInsecurePermissions(path string) bool {
	if path == "" {
		return false
	}

	info, err := os.Stat(path)
	if err != nil {
		slog.Debug("could not stat config file for permission check", "path", path, "error", err)
		return false
	}
	mode := info.Mode()
	if mode.Perm()&(fs.FileMode(0o040)|fs.FileMode(0o004)) == 0 {
		return false
	}

	plaintext, err := PlaintextAPIKey(path)
	if err != nil {
		slog.Debug("could not inspect config file for an api key", "path", path, "error", err)
		return false
	}
	if !plaintext {
		return false
	}

	slog.Warn("config file stores embedding.api_key in plain text and is readable by other users",
		"path", path,
		"mode", mode,
		"recommended", "0600",
		"alternative", APIKeyRef(),
	)
	return true
}
