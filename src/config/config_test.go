// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/H0llyW00dzZ/x509-cert-manager/src/config"
	"github.com/H0llyW00dzZ/x509-cert-manager/src/internal/x509/certio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv(config.EnvConfigFile, "")
	t.Setenv(config.EnvStore, "")
	t.Setenv(config.EnvOIDFile, "")
}

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultStorePath(), cfg.Store.Path)
	assert.Equal(t, int64(certio.DefaultReadLimit), cfg.IO.ReadLimit)
	assert.Equal(t, "PEM", cfg.Export.DefaultProvider)
	assert.Empty(t, cfg.X500.OIDFile)
}

func TestLoadFile(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		content  string
		store    string
		limit    int64
		oidFile  string
		provider string
	}{
		{
			name: "YAML",
			file: "certmgr.yaml",
			content: `store:
  path: /srv/store
io:
  readLimit: 4096
x500:
  oidFile: /etc/oids.properties
export:
  defaultProvider: PKCS12
`,
			store: "/srv/store", limit: 4096, oidFile: "/etc/oids.properties", provider: "PKCS12",
		},
		{
			name:    "YML uppercase extension",
			file:    "certmgr.YML",
			content: "store:\n  path: /srv/yml\n",
			store:   "/srv/yml", limit: certio.DefaultReadLimit, provider: "PEM",
		},
		{
			name:    "JSON",
			file:    "certmgr.json",
			content: `{"store":{"path":"/srv/json"},"io":{"readLimit":128},"export":{"defaultProvider":"JKS"}}`,
			store:   "/srv/json", limit: 128, provider: "JKS",
		},
		{
			name:    "invalid values reset to defaults",
			file:    "certmgr.json",
			content: `{"io":{"readLimit":-1},"export":{"defaultProvider":""}}`,
			store:   config.DefaultStorePath(), limit: certio.DefaultReadLimit, provider: "PEM",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			cfg, err := config.Load(writeConfig(t, tt.file, tt.content))
			require.NoError(t, err)
			assert.Equal(t, tt.store, cfg.Store.Path)
			assert.Equal(t, tt.limit, cfg.IO.ReadLimit)
			assert.Equal(t, tt.oidFile, cfg.X500.OIDFile)
			assert.Equal(t, tt.provider, cfg.Export.DefaultProvider)
		})
	}
}

func TestLoadEnvironment(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "env.yaml", "store:\n  path: /from/file\nx500:\n  oidFile: /file/oids\n")
	t.Setenv(config.EnvConfigFile, path)

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "/from/file", cfg.Store.Path)

	t.Setenv(config.EnvStore, "/from/env")
	t.Setenv(config.EnvOIDFile, "/env/oids")
	cfg, err = config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "/from/env", cfg.Store.Path)
	assert.Equal(t, "/env/oids", cfg.X500.OIDFile)
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "failed to read config file")

	_, err = config.Load(writeConfig(t, "bad.json", "{"))
	assert.ErrorContains(t, err, "failed to parse JSON config file")

	_, err = config.Load(writeConfig(t, "bad.yaml", "store: [unterminated"))
	assert.ErrorContains(t, err, "failed to parse YAML config file")
}
