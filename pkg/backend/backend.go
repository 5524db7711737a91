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

// Package backend defines the primitive cryptography SPI. A backend executes
// raw algorithm invocations on key material handed to it by the core; it
// performs no policy checks, no slot management, and no sequencing. The
// software implementation lives in the software subpackage; the interface
// leaves room for hardware-backed implementations.
package backend

import "github.com/AndrzejKurek/pelion-crypto/pkg/types"

// Primitive is the set of raw operations a backend must supply. Arguments
// arrive pre-validated: algorithms are recognized and concrete (never
// wildcards), key material matches the declared key type, and policy has
// already been enforced by the caller.
type Primitive interface {
	// HashInit starts a streaming hash computation.
	HashInit(alg types.Algorithm) (HashContext, error)

	// MACInit starts a streaming MAC computation bound to the key.
	MACInit(alg types.Algorithm, key []byte) (MACContext, error)

	// CipherInit starts a streaming symmetric cipher with the given IV.
	// Block modes expect block-aligned Update calls; stream modes accept
	// any length. Padding is the caller's concern.
	CipherInit(alg types.Algorithm, key, iv []byte, encrypt bool) (CipherContext, error)

	// AEADSeal encrypts and authenticates plaintext in one shot, returning
	// ciphertext with the tag appended.
	AEADSeal(alg types.Algorithm, key, nonce, additionalData, plaintext []byte) ([]byte, error)

	// AEADOpen authenticates and decrypts ciphertext produced by AEADSeal.
	// Returns types.ErrInvalidSignature when authentication fails; no
	// plaintext is ever released on failure.
	AEADOpen(alg types.Algorithm, key, nonce, additionalData, ciphertext []byte) ([]byte, error)

	// Sign produces a signature over a precomputed digest. ECDSA signatures
	// are raw r||s with both halves padded to the curve size; RSA signatures
	// are modulus-sized.
	Sign(alg types.Algorithm, keyType types.KeyType, key, digest []byte) ([]byte, error)

	// Verify checks a signature over a precomputed digest.
	// Returns types.ErrInvalidSignature on mismatch.
	Verify(alg types.Algorithm, keyType types.KeyType, key, digest, signature []byte) error

	// AsymmetricEncrypt encrypts a short message to a public key (RSA OAEP
	// or PKCS#1 v1.5). The label is OAEP-only and may be nil.
	AsymmetricEncrypt(alg types.Algorithm, keyType types.KeyType, key, plaintext, label []byte) ([]byte, error)

	// AsymmetricDecrypt reverses AsymmetricEncrypt with the private key.
	// Returns types.ErrInvalidPadding when the ciphertext does not decrypt.
	AsymmetricDecrypt(alg types.Algorithm, keyType types.KeyType, key, ciphertext, label []byte) ([]byte, error)

	// RawAgreement computes the raw ECDH shared secret between a private
	// key and a peer public key on the same curve.
	RawAgreement(alg types.Algorithm, keyType types.KeyType, key, peer []byte) ([]byte, error)

	// GenerateKeyPair creates a fresh asymmetric key pair and returns the
	// encoded private material (the public half is derivable from it).
	// The curve is consulted for ECC pairs only.
	GenerateKeyPair(keyType types.KeyType, bits int, curve types.EllipticCurve) ([]byte, error)

	// ExportPublic derives the encoded public half from key material.
	// Public-only material is returned as-is.
	ExportPublic(keyType types.KeyType, material []byte) ([]byte, error)

	// Random returns n cryptographically secure random bytes.
	// Entropy failures surface as types.ErrInsufficientEntropy.
	Random(n int) ([]byte, error)

	// Capabilities reports what this backend can do and prefers.
	Capabilities() Capabilities
}

// HashContext is a streaming hash computation in progress.
type HashContext interface {
	// Update absorbs more input.
	Update(data []byte) error

	// Finish returns the digest and ends the computation.
	Finish() ([]byte, error)

	// Clone returns an independent copy of the computation state.
	Clone() (HashContext, error)

	// Reset returns the context to its initial state.
	Reset()
}

// MACContext is a streaming MAC computation in progress.
type MACContext interface {
	// Update absorbs more input.
	Update(data []byte) error

	// Finish returns the full-length tag and ends the computation.
	Finish() ([]byte, error)
}

// CipherContext is a streaming symmetric cipher in progress.
type CipherContext interface {
	// Update transforms input and returns the output bytes. Block modes
	// require len(data) to be a multiple of the block size.
	Update(data []byte) ([]byte, error)
}

// Capabilities describes a backend's feature surface.
type Capabilities struct {
	// HardwareAES is true when the CPU provides AES acceleration.
	HardwareAES bool

	// PreferredAEAD is the AEAD algorithm this backend performs best with.
	PreferredAEAD types.Algorithm

	// NonceTracking is true when the backend rejects AEAD nonce reuse.
	NonceTracking bool
}
