// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Postrec Contributors

package secrets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	recerr "github.com/expertbridge/postrec/pkg/errors"
)

const keyringScheme = "keyring://"

// IsKeyringURI reports whether value uses the keyring:// URI scheme.
func IsKeyringURI(value string) bool {
	return strings.HasPrefix(value, keyringScheme)
}

// KeyringURI formats a reference to service/key.
func KeyringURI(service, key string) string {
	return keyringScheme + service + "/" + key
}

// ParseKeyringURI extracts service and key from a keyring://service/key URI.
func ParseKeyringURI(uri string) (service, key string, err error) {
	if !IsKeyringURI(uri) {
		return "", "", recerr.Errorf(recerr.CodeSecretInvalidInput, "not a keyring URI: %q", uri)
	}

	service, key, ok := strings.Cut(strings.TrimPrefix(uri, keyringScheme), "/")
	if !ok || service == "" || key == "" {
		return "", "", recerr.Errorf(recerr.CodeSecretInvalidInput,
			"invalid keyring URI %q: expected keyring://service/key", uri)
	}
	return service, key, nil
}

// Resolve returns the secret a keyring:// URI points at, or value unchanged
// when it is a plain string.
func Resolve(store Store, value string) (string, error) {
	if !IsKeyringURI(value) {
		return value, nil
	}

	service, key, err := ParseKeyringURI(value)
	if err != nil {
		return "", err
	}

	secret, err := store.Get(service, key)
	if err != nil {
		return "", recerr.Wrapf(err, recerr.CodeSecretResolveFailure, "resolving keyring URI %q", value)
	}
	return secret, nil
}

// ResolveViper replaces every keyring:// string in v with the referenced
// secret. It runs after the config is read and before it is decoded.
// All unresolvable keys are reported together.
func ResolveViper(v *viper.Viper, store Store) error {
	var errs []error
	for _, key := range v.AllKeys() {
		val, ok := v.Get(key).(string)
		if !ok || !IsKeyringURI(val) {
			continue
		}

		resolved, err := Resolve(store, val)
		if err != nil {
			errs = append(errs, fmt.Errorf("config key %s (%s): %w", key, val, err))
			continue
		}
		v.Set(key, resolved)
	}

	if len(errs) > 0 {
		return recerr.Wrapf(errors.Join(errs...), recerr.CodeSecretResolveFailure, "resolving config secrets")
	}
	return nil
}
