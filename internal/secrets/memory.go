// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Postrec Contributors

package secrets

import (
	"sort"
	"sync"
)

// MemoryStore is a process-local Store, used when no OS keyring is wanted.
type MemoryStore struct {
	mu      sync.RWMutex
	secrets map[string]map[string]string
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{secrets: map[string]map[string]string{}}
}

func (m *MemoryStore) Set(service, key, value string) error {
	if err := checkInput("set", service, key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.secrets[service] == nil {
		m.secrets[service] = map[string]string{}
	}
	m.secrets[service][key] = value
	return nil
}

func (m *MemoryStore) Get(service, key string) (string, error) {
	if err := checkInput("get", service, key); err != nil {
		return "", err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	val, ok := m.secrets[service][key]
	if !ok {
		return "", errNotFound(service, key)
	}
	return val, nil
}

func (m *MemoryStore) Delete(service, key string) error {
	if err := checkInput("delete", service, key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.secrets[service][key]; !ok {
		return errNotFound(service, key)
	}
	delete(m.secrets[service], key)
	return nil
}

func (m *MemoryStore) List(service string) ([]string, error) {
	if service == "" {
		return nil, errInvalid("list", "service")
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.secrets[service]))
	for k := range m.secrets[service] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
