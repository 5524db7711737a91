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

package file

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"runtime"

	"github.com/AndrzejKurek/pelion-crypto/pkg/storage"
	"github.com/AndrzejKurek/pelion-crypto/pkg/types"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/sys/cpu"
)

// Sealed record layout: [salt(32)][nonce(12)][ciphertext+tag].
// AES-256-GCM and ChaCha20-Poly1305 share nonce and tag sizes, so the
// layout is cipher-independent.
const (
	saltSize    = 32
	sealKeySize = 32
	sealNonce   = 12
	sealTag     = 16

	// argon2id parameters: 64 MiB, single pass, four lanes.
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

// sealer derives a fresh AEAD key from its passphrase for every record.
// Each record carries its own random salt, so equal plaintexts never
// produce related ciphertexts.
type sealer struct {
	passphrase []byte
}

func newSealer(passphrase []byte) *sealer {
	p := make([]byte, len(passphrase))
	copy(p, passphrase)
	return &sealer{passphrase: p}
}

// seal wraps plaintext in an authenticated envelope.
func (s *sealer) seal(plaintext []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("salt generation failed: %w", err)
	}

	key := argon2.IDKey(s.passphrase, salt, argonTime, argonMemory, argonThreads, sealKeySize)
	defer types.Zeroize(key)

	aead, err := preferredAEAD(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, sealNonce)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("nonce generation failed: %w", err)
	}

	out := make([]byte, 0, saltSize+sealNonce+len(plaintext)+sealTag)
	out = append(out, salt...)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plaintext, nil), nil
}

// open unwraps a sealed envelope. A record sealed on a host with different
// CPU capabilities opens too: both candidate ciphers are tried before the
// record is declared corrupted.
func (s *sealer) open(blob []byte) ([]byte, error) {
	if len(blob) < saltSize+sealNonce+sealTag {
		return nil, storage.ErrCorrupted
	}

	salt := blob[:saltSize]
	nonce := blob[saltSize : saltSize+sealNonce]
	ciphertext := blob[saltSize+sealNonce:]

	key := argon2.IDKey(s.passphrase, salt, argonTime, argonMemory, argonThreads, sealKeySize)
	defer types.Zeroize(key)

	for _, construct := range aeadCandidates() {
		aead, err := construct(key)
		if err != nil {
			continue
		}
		plain, err := aead.Open(nil, nonce, ciphertext, nil)
		if err == nil {
			return plain, nil
		}
	}
	return nil, storage.ErrCorrupted
}

// destroy wipes the passphrase copy.
func (s *sealer) destroy() {
	types.Zeroize(s.passphrase)
	s.passphrase = nil
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

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// preferredAEAD picks the sealing cipher for this host: AES-256-GCM with
// hardware AES, ChaCha20-Poly1305 otherwise.
func preferredAEAD(key []byte) (cipher.AEAD, error) {
	if hasAESNI() {
		return newGCM(key)
	}
	return chacha20poly1305.New(key)
}

// aeadCandidates returns the cipher constructors to try on open, the
// host-preferred one first.
func aeadCandidates() []func([]byte) (cipher.AEAD, error) {
	if hasAESNI() {
		return []func([]byte) (cipher.AEAD, error){newGCM, chacha20poly1305.New}
	}
	return []func([]byte) (cipher.AEAD, error){chacha20poly1305.New, newGCM}
}
