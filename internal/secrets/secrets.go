// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Postrec Contributors

// Package secrets stores embedding API keys outside the config file and
// resolves keyring://service/key references found in configuration.
package secrets

// DefaultService is the keyring service used by the CLI.
const DefaultService = "postrec"

// Store provides secure secret storage operations.
type Store interface {
	// Set saves a secret value under the given service and key.
	Set(service, key, value string) error

	// Get fetches the secret value for the given service and key.
	// A missing key is reported with CodeSecretNotFound.
	Get(service, key string) (string, error)

	// Delete removes the secret for the given service and key.
	// A missing key is reported with CodeSecretNotFound.
	Delete(service, key string) error

	// List returns all key names stored under the given service.
	List(service string) ([]string, error)
}

func checkInput(op, service, key string) error {
	if service == "" {
		return errInvalid(op, "service")
	}
	if key == "" {
		return errInvalid(op, "key")
	}
	return nil
}
