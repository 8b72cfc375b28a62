// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Postrec Contributors

package secrets

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/zalando/go-keyring"

	recerr "github.com/expertbridge/postrec/pkg/errors"
)

// keysIndexSuffix names the entry holding the JSON list of keys of a service,
// since go-keyring cannot enumerate entries.
const keysIndexSuffix = "::keys-index"

// KeyringStore implements Store using the OS keyring via zalando/go-keyring
// (Keychain on macOS, secret-service on Linux, Credential Manager on Windows).
type KeyringStore struct{}

var _ Store = (*KeyringStore)(nil)

// NewKeyringStore returns a KeyringStore.
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{}
}

func errInvalid(op, field string) error {
	return recerr.New(recerr.CodeSecretInvalidInput, fmt.Sprintf("secret %s: %s must not be empty", op, field))
}

func errNotFound(service, key string) error {
	return recerr.Errorf(recerr.CodeSecretNotFound, "secret %s/%s not found", service, key)
}

func (s *KeyringStore) Set(service, key, value string) error {
	if err := checkInput("set", service, key); err != nil {
		return err
	}

	if err := keyring.Set(service, key, value); err != nil {
		return recerr.Wrapf(err, recerr.CodeSecretStoreFailure, "storing secret %s/%s", service, key)
	}

	keys, err := s.loadIndex(service)
	if err != nil {
		return err
	}
	if slices.Contains(keys, key) {
		return nil
	}
	return s.saveIndex(service, append(keys, key))
}

func (s *KeyringStore) Get(service, key string) (string, error) {
	if err := checkInput("get", service, key); err != nil {
		return "", err
	}

	val, err := keyring.Get(service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", errNotFound(service, key)
	}
	if err != nil {
		return "", recerr.Wrapf(err, recerr.CodeSecretStoreFailure, "retrieving secret %s/%s", service, key)
	}
	return val, nil
}

func (s *KeyringStore) Delete(service, key string) error {
	if err := checkInput("delete", service, key); err != nil {
		return err
	}

	err := keyring.Delete(service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return errNotFound(service, key)
	}
	if err != nil {
		return recerr.Wrapf(err, recerr.CodeSecretDeleteFailure, "deleting secret %s/%s", service, key)
	}

	keys, err := s.loadIndex(service)
	if err != nil {
		return err
	}
	return s.saveIndex(service, slices.DeleteFunc(keys, func(k string) bool { return k == key }))
}

func (s *KeyringStore) List(service string) ([]string, error) {
	if service == "" {
		return nil, errInvalid("list", "service")
	}
	return s.loadIndex(service)
}

func (s *KeyringStore) loadIndex(service string) ([]string, error) {
	raw, err := keyring.Get(service, service+keysIndexSuffix)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, recerr.Wrapf(err, recerr.CodeSecretListFailure, "loading key index for service %s", service)
	}

	var keys []string
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		return nil, recerr.Wrapf(err, recerr.CodeSecretListFailure, "decoding key index for service %s", service)
	}
	return keys, nil
}

func (s *KeyringStore) saveIndex(service string, keys []string) error {
	indexKey := service + keysIndexSuffix

	if len(keys) == 0 {
		if err := keyring.Delete(service, indexKey); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			slog.Debug("failed to clean up empty key index", "service", service, "error", err)
		}
		return nil
	}

	data, err := json.Marshal(keys)
	if err != nil {
		return recerr.Wrapf(err, recerr.CodeSecretListFailure, "encoding key index for service %s", service)
	}
	if err := keyring.Set(service, indexKey, string(data)); err != nil {
		return recerr.Wrapf(err, recerr.CodeSecretListFailure, "saving key index for service %s", service)
	}
	return nil
}
