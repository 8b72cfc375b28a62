// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Postrec Contributors

//go:build windows

package config

import "log/slog"

// WarnInsecurePermissions only notes a plaintext embedding.api_key on
// Windows, where access is governed by ACLs rather than mode bits.
func WarnInsecurePermissions(path string) bool {
	if path == "" {
		return false
	}
	if plaintext, err := PlaintextAPIKey(path); err == nil && plaintext {
		slog.Debug("config file stores embedding.api_key in plain text", "path", path, "alternative", APIKeyRef())
	}
	return false
}
