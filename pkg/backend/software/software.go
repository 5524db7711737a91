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

// Package software implements the backend.Primitive SPI in pure software.
//
// Primitives come from the standard library (crypto/aes, crypto/cipher,
// crypto/hmac, crypto/rsa, crypto/ecdsa, crypto/ecdh, crypto/rand) and
// golang.org/x/crypto (sha3, chacha20, chacha20poly1305). The only modes
// composed here rather than imported are AES-CMAC (NIST SP 800-38B) and
// AES-CCM (NIST SP 800-38C), both built over crypto/aes.
//
// Key material encodings:
//   - symmetric keys (raw, derive, HMAC, AES, ChaCha20): raw bytes
//   - RSA and ECC private keys: PKCS#8 DER
//   - RSA and ECC public keys: PKIX (SubjectPublicKeyInfo) DER
package software

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/AndrzejKurek/pelion-crypto/pkg/backend"
	"github.com/AndrzejKurek/pelion-crypto/pkg/types"
	"golang.org/x/sys/cpu"
)

var errNilConfig = errors.New("software backend: config is nil")

// Backend is the software implementation of backend.Primitive.
// It is stateless apart from the optional nonce tracker and safe for
// concurrent use.
type Backend struct {
	tracker *backend.NonceTracker
}

var _ backend.Primitive = (*Backend)(nil)

// New creates a software backend with the given configuration.
// A nil config selects the defaults.
func New(config *Config) (*Backend, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	tracker, err := backend.NewNonceTracker(config.NonceTracking)
	if err != nil {
		return nil, err
	}
	return &Backend{tracker: tracker}, nil
}

// Capabilities reports hardware AES support and the AEAD algorithm that
// performs best on this host.
func (b *Backend) Capabilities() backend.Capabilities {
	hw := hasAESNI()
	preferred := types.AlgorithmChaCha20Poly1305
	if hw {
		preferred = types.AlgorithmAESGCM
	}
	return backend.Capabilities{
		HardwareAES:   hw,
		PreferredAEAD: preferred,
		NonceTracking: b.tracker.Enabled(),
	}
}

// hasAESNI returns true if the CPU has hardware AES support.
func hasAESNI() bool {
	switch runtime.GOARCH {
	case "amd64":
		return cpu.X86.HasAES
	case "arm64":
		return cpu.ARM64.HasAES
	default:
		return false
	}
}
