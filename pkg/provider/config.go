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
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/AndrzejKurek/pelion-crypto/pkg/keystore"
)

// Config represents the complete provider configuration
type Config struct {
	Provider ProviderConfig `yaml:"provider"`
	Logging  LoggingConfig  `yaml:"logging"`
	Storage  StorageConfig  `yaml:"storage"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	AEAD     AEADConfig     `yaml:"aead"`
}

// ProviderConfig contains core provider settings
type ProviderConfig struct {
	MaxSlots int `yaml:"max_slots"`
}

// LoggingConfig controls logging behavior
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// StorageConfig controls where persistent keys live
type StorageConfig struct {
	Backend    string `yaml:"backend"` // memory, file
	Path       string `yaml:"path"`
	Passphrase string `yaml:"passphrase"` // enables at-rest sealing when set
}

// MetricsConfig controls Prometheus instrumentation
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// AEADConfig controls AEAD behavior knobs
type AEADConfig struct {
	TrackNonces bool `yaml:"track_nonces"`
}

// Storage backend names accepted by StorageConfig.Backend.
const (
	StorageMemory = "memory"
	StorageFile   = "file"
)

// DefaultConfig returns the zero-configuration profile: in-memory key
// storage, info-level logging, metrics on.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{MaxSlots: keystore.DefaultMaxSlots},
		Logging:  LoggingConfig{Level: "info"},
		Storage:  StorageConfig{Backend: StorageMemory},
		Metrics:  MetricsConfig{Enabled: true},
	}
}

// LoadConfig reads configuration from a YAML file and applies environment variable
// overrides. Settings absent from the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	// #nosec G304 - Config file path is provided by admin/user
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration
func applyEnvOverrides(cfg *Config) {
	if maxSlots := os.Getenv("PELION_MAX_SLOTS"); maxSlots != "" {
		n, err := strconv.Atoi(maxSlots)
		if err != nil {
			log.Printf("Warning: invalid PELION_MAX_SLOTS value %q, using default %d: %v",
				maxSlots, cfg.Provider.MaxSlots, err)
		} else {
			cfg.Provider.MaxSlots = n
		}
	}

	if level := os.Getenv("PELION_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}

	if backend := os.Getenv("PELION_STORAGE_BACKEND"); backend != "" {
		cfg.Storage.Backend = backend
	}
	if path := os.Getenv("PELION_STORAGE_PATH"); path != "" {
		cfg.Storage.Path = path
	}
	if passphrase := os.Getenv("PELION_STORAGE_PASSPHRASE"); passphrase != "" {
		cfg.Storage.Passphrase = passphrase
	}

	if enabled := os.Getenv("PELION_METRICS_ENABLED"); enabled != "" {
		v, err := strconv.ParseBool(enabled)
		if err != nil {
			log.Printf("Warning: invalid PELION_METRICS_ENABLED value %q, using default %t: %v",
				enabled, cfg.Metrics.Enabled, err)
		} else {
			cfg.Metrics.Enabled = v
		}
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Provider.MaxSlots < 0 || c.Provider.MaxSlots > keystore.MaxSlotLimit {
		return fmt.Errorf("invalid max_slots: %d (must be 0-%d, 0 selects the default)",
			c.Provider.MaxSlots, keystore.MaxSlotLimit)
	}

	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	switch c.Storage.Backend {
	case StorageMemory:
		if c.Storage.Passphrase != "" {
			return fmt.Errorf("storage passphrase requires the %s backend", StorageFile)
		}
	case StorageFile:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage path is required for the %s backend", StorageFile)
		}
	default:
		return fmt.Errorf("unknown storage backend: %s (must be %s or %s)",
			c.Storage.Backend, StorageMemory, StorageFile)
	}

	return nil
}
