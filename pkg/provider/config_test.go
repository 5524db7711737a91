// Copyright (c) 2025 Andrzej Kurek
//
// This file is part of pelion-crypto.
//
// pelion-crypto is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact the author for commercial licensing options.

package provider

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AndrzejKurek/pelion-crypto/pkg/keystore"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, keystore.DefaultMaxSlots, cfg.Provider.MaxSlots)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, StorageMemory, cfg.Storage.Backend)
	assert.Empty(t, cfg.Storage.Passphrase)
	assert.True(t, cfg.Metrics.Enabled)
	assert.False(t, cfg.AEAD.TrackNonces)

	require.NoError(t, cfg.Validate())
}

func TestLoadConfig(t *testing.T) {
	path := writeConfigFile(t, `
provider:
  max_slots: 32
logging:
  level: debug
storage:
  backend: file
  path: /var/lib/pelion/keys
  passphrase: hunter2
metrics:
  enabled: false
aead:
  track_nonces: true
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 32, cfg.Provider.MaxSlots)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, StorageFile, cfg.Storage.Backend)
	assert.Equal(t, "/var/lib/pelion/keys", cfg.Storage.Path)
	assert.Equal(t, "hunter2", cfg.Storage.Passphrase)
	assert.False(t, cfg.Metrics.Enabled)
	assert.True(t, cfg.AEAD.TrackNonces)
}

func TestLoadConfig_PartialFileKeepsDefaults(t *testing.T) {
	path := writeConfigFile(t, `
logging:
  level: warn
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, keystore.DefaultMaxSlots, cfg.Provider.MaxSlots)
	assert.Equal(t, StorageMemory, cfg.Storage.Backend)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	path := writeConfigFile(t, "provider: [not a mapping")
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := writeConfigFile(t, `
provider:
  max_slots: 32
`)

	t.Setenv("PELION_MAX_SLOTS", "64")
	t.Setenv("PELION_LOG_LEVEL", "error")
	t.Setenv("PELION_STORAGE_BACKEND", "file")
	t.Setenv("PELION_STORAGE_PATH", "/tmp/pelion-keys")
	t.Setenv("PELION_STORAGE_PASSPHRASE", "from-env")
	t.Setenv("PELION_METRICS_ENABLED", "false")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 64, cfg.Provider.MaxSlots)
	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, StorageFile, cfg.Storage.Backend)
	assert.Equal(t, "/tmp/pelion-keys", cfg.Storage.Path)
	assert.Equal(t, "from-env", cfg.Storage.Passphrase)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoadConfig_InvalidEnvValuesKeepFileSettings(t *testing.T) {
	path := writeConfigFile(t, `
provider:
  max_slots: 32
`)

	t.Setenv("PELION_MAX_SLOTS", "not-a-number")
	t.Setenv("PELION_METRICS_ENABLED", "sometimes")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 32, cfg.Provider.MaxSlots)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name: "file backend with path",
			mutate: func(c *Config) {
				c.Storage.Backend = StorageFile
				c.Storage.Path = "/tmp/keys"
			},
		},
		{
			name: "sealed file backend",
			mutate: func(c *Config) {
				c.Storage.Backend = StorageFile
				c.Storage.Path = "/tmp/keys"
				c.Storage.Passphrase = "secret"
			},
		},
		{
			name:    "negative max slots",
			mutate:  func(c *Config) { c.Provider.MaxSlots = -1 },
			wantErr: "invalid max_slots",
		},
		{
			name:    "max slots over the handle space",
			mutate:  func(c *Config) { c.Provider.MaxSlots = keystore.MaxSlotLimit + 1 },
			wantErr: "invalid max_slots",
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "invalid log level",
		},
		{
			name:    "passphrase without file backend",
			mutate:  func(c *Config) { c.Storage.Passphrase = "secret" },
			wantErr: "storage passphrase requires",
		},
		{
			name: "file backend without path",
			mutate: func(c *Config) {
				c.Storage.Backend = StorageFile
				c.Storage.Path = ""
			},
			wantErr: "storage path is required",
		},
		{
			name:    "unknown storage backend",
			mutate:  func(c *Config) { c.Storage.Backend = "etcd" },
			wantErr: "unknown storage backend",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
