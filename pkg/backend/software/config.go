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

package software

// Config contains configuration for the software backend.
type Config struct {
	// NonceTracking enables AEAD nonce-reuse detection for caller-supplied
	// nonces. Off by default: the tracker's memory grows with every seal,
	// so it suits test rigs and short-lived processes, not servers.
	NonceTracking bool
}

// DefaultConfig returns the default backend configuration.
func DefaultConfig() *Config {
	return &Config{
		NonceTracking: false,
	}
}

// Validate checks if the Config is valid.
func (c *Config) Validate() error {
	if c == nil {
		return errNilConfig
	}
	return nil
}
