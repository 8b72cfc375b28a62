// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Postrec Contributors

package secrets_test

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expertbridge/postrec/internal/secrets"
	recerr "github.com/expertbridge/postrec/pkg/errors"
)

func TestParseKeyringURI(t *testing.T) {
	tests := []struct {
		uri     string
		service string
		key     string
		wantErr bool
	}{
		{uri: "keyring://postrec/embedding_api_key", service: "postrec", key: "embedding_api_key"},
		{uri: "keyring://svc/nested/key", service: "svc", key: "nested/key"},
		{uri: "keyring://svc", wantErr: true},
		{uri: "keyring:///key", wantErr: true},
		{uri: "keyring://svc/", wantErr: true},
		{uri: "sk-plain", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			service, key, err := secrets.ParseKeyringURI(tt.uri)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, recerr.IsInvalidInput(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.service, service)
			assert.Equal(t, tt.key, key)
			assert.Equal(t, tt.uri, secrets.KeyringURI(service, key))
		})
	}
}

func TestResolve(t *testing.T) {
	s := secrets.NewMemoryStore()
	require.NoError(t, s.Set("postrec", "openai", "sk-oai"))

	val, err := secrets.Resolve(s, "keyring://postrec/openai")
	require.NoError(t, err)
	assert.Equal(t, "sk-oai", val)

	val, err = secrets.Resolve(s, "sk-inline")
	require.NoError(t, err)
	assert.Equal(t, "sk-inline", val)

	_, err = secrets.Resolve(s, "keyring://postrec/missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "keyring://postrec/missing")

	_, err = secrets.Resolve(s, "keyring://bad")
	require.Error(t, err)
}

func TestResolveViper(t *testing.T) {
	s := secrets.NewMemoryStore()
	require.NoError(t, s.Set("postrec", "embedding_api_key", "sk-secret"))

	v := viper.New()
	v.Set("embedding.api_key", "keyring://postrec/embedding_api_key")
	v.Set("server.listen", "127.0.0.1:7000")
	v.Set("recommend.default_limit", 50)

	require.NoError(t, secrets.ResolveViper(v, s))
	assert.Equal(t, "sk-secret", v.GetString("embedding.api_key"))
	assert.Equal(t, "127.0.0.1:7000", v.GetString("server.listen"))
	assert.Equal(t, 50, v.GetInt("recommend.default_limit"))
}

func TestResolveViper_MissingSecretReturnsError(t *testing.T) {
	v := viper.New()
	v.Set("embedding.api_key", "keyring://postrec/nonexistent-key")

	err := secrets.ResolveViper(v, secrets.NewMemoryStore())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding.api_key")
	assert.Contains(t, err.Error(), "keyring://postrec/nonexistent-key")
}
