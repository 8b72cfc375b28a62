// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Postrec Contributors

package config

import (
	_ "embed"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/expertbridge/postrec/internal/secrets"
	recerr "github.com/expertbridge/postrec/pkg/errors"
)

// APIKeySecret is the keyring entry holding the embedding provider's key.
const APIKeySecret = "embedding_api_key"

//go:embed postrec.yaml.default
var defaultConfigTemplate string

// APIKeyRef is the keyring reference the default config points
// embedding.api_key at.
func APIKeyRef() string {
	return secrets.KeyringURI(secrets.DefaultService, APIKeySecret)
}

// DefaultConfigYAML returns the commented default config.
func DefaultConfigYAML() []byte {
	r := strings.NewReplacer(
		"{{api_key_secret}}", APIKeySecret,
		"{{api_key_ref}}", APIKeyRef(),
	)
	return []byte(r.Replace(defaultConfigTemplate))
}

// DefaultConfigPath returns ~/.config/postrec/postrec.yaml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", recerr.Wrapf(err, recerr.CodeConfigLoadReadFailure, "resolving home directory")
	}
	return filepath.Join(home, ".config", "postrec", "postrec.yaml"), nil
}

// BootstrapConfig writes the default config to path with mode 0600 unless a
// file already exists there. It reports whether a file was written.
func BootstrapConfig(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, recerr.Wrapf(err, recerr.CodeConfigLoadReadFailure, "checking %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return false, recerr.Wrapf(err, recerr.CodeConfigLoadReadFailure, "creating config directory")
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, fs.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, recerr.Wrapf(err, recerr.CodeConfigLoadReadFailure, "creating %s", path)
	}
	_, werr := f.Write(DefaultConfigYAML())
	if err := errors.Join(werr, f.Close()); err != nil {
		return false, recerr.Wrapf(err, recerr.CodeConfigLoadReadFailure, "writing %s", path)
	}
	return true, nil
}

// PlaintextAPIKey reports whether the config file at path sets
// embedding.api_key to a literal key instead of a keyring:// reference.
// Environment overrides are not consulted; only the file counts.
func PlaintextAPIKey(path string) (bool, error) {
	fv := viper.New()
	fv.SetConfigFile(path)
	if err := fv.ReadInConfig(); err != nil {
		return false, recerr.Wrapf(err, recerr.CodeConfigParseInvalidFormat, "reading %s", path)
	}
	key := strings.TrimSpace(fv.GetString("embedding.api_key"))
	return key != "" && !secrets.IsKeyringURI(key), nil
}
