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

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"github.com/AndrzejKurek/pelion-crypto/pkg/types"
	"golang.org/x/crypto/chacha20poly1305"
)

// AEADSeal encrypts and authenticates plaintext, returning ciphertext with
// the tag appended. When nonce tracking is enabled, a reused (key, nonce)
// pair is rejected before any encryption happens.
func (b *Backend) AEADSeal(alg types.Algorithm, key, nonce, additionalData, plaintext []byte) ([]byte, error) {
	if err := b.tracker.CheckAndRecord(key, nonce); err != nil {
		return nil, err
	}

	if alg == types.AlgorithmAESCCM {
		return ccmSeal(key, nonce, additionalData, plaintext, types.AlgorithmAESCCM.TagSize())
	}

	aead, err := newAEAD(alg, key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != aead.NonceSize() {
		return nil, fmt.Errorf("%w: nonce length %d for %s", types.ErrInvalidArgument, len(nonce), alg)
	}
	return aead.Seal(nil, nonce, plaintext, additionalData), nil
}

// AEADOpen authenticates and decrypts ciphertext produced by AEADSeal.
func (b *Backend) AEADOpen(alg types.Algorithm, key, nonce, additionalData, ciphertext []byte) ([]byte, error) {
	if alg == types.AlgorithmAESCCM {
		return ccmOpen(key, nonce, additionalData, ciphertext, types.AlgorithmAESCCM.TagSize())
	}

	aead, err := newAEAD(alg, key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != aead.NonceSize() {
		return nil, fmt.Errorf("%w: nonce length %d for %s", types.ErrInvalidArgument, len(nonce), alg)
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, additionalData)
	if err != nil {
		return nil, types.ErrInvalidSignature
	}
	return plaintext, nil
}

// newAEAD constructs the cipher.AEAD for the non-CCM algorithms.
func newAEAD(alg types.Algorithm, key []byte) (cipher.AEAD, error) {
	switch alg {
	case types.AlgorithmAESGCM:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, fmt.Errorf("%w: AES key: %v", types.ErrInvalidArgument, err)
		}
		return cipher.NewGCM(block)
	case types.AlgorithmChaCha20Poly1305:
		aead, err := chacha20poly1305.New(key)
		if err != nil {
			return nil, fmt.Errorf("%w: ChaCha20-Poly1305 key: %v", types.ErrInvalidArgument, err)
		}
		return aead, nil
	default:
		return nil, fmt.Errorf("%w: AEAD algorithm %q", types.ErrNotSupported, alg)
	}
}
