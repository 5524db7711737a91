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

package backend

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/AndrzejKurek/pelion-crypto/pkg/types"
)

// ErrNonceReuse is returned when a (key, nonce) pair is seen twice.
// Nonce reuse under the same AEAD key breaks authentication for GCM and
// leaks keystream for ChaCha20-Poly1305, so the tracker treats it as an
// invalid argument rather than a recoverable condition.
var ErrNonceReuse = fmt.Errorf("%w: AEAD nonce reuse detected", types.ErrInvalidArgument)

// NonceTracker records AEAD (key, nonce) pairs and rejects reuse.
// Entries are HMAC fingerprints under a per-tracker random secret, so the
// set never holds raw key material. Memory grows with each encryption;
// long-running systems should rotate keys rather than track unbounded.
//
// Thread-safe.
type NonceTracker struct {
	enabled bool
	secret  []byte
	seen    map[[sha256.Size]byte]struct{}
	mu      sync.Mutex
}

// NewNonceTracker creates a tracker. When enabled is false every check is
// a no-op.
func NewNonceTracker(enabled bool) (*NonceTracker, error) {
	t := &NonceTracker{enabled: enabled}
	if enabled {
		t.secret = make([]byte, 32)
		if _, err := rand.Read(t.secret); err != nil {
			return nil, fmt.Errorf("%w: tracker secret generation failed", types.ErrInsufficientEntropy)
		}
		t.seen = make(map[[sha256.Size]byte]struct{})
	}
	return t, nil
}

// CheckAndRecord verifies the (key, nonce) pair is fresh and records it.
// Returns ErrNonceReuse if the pair was seen before.
func (t *NonceTracker) CheckAndRecord(key, nonce []byte) error {
	if !t.enabled {
		return nil
	}

	fp := t.fingerprint(key, nonce)

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.seen[fp]; exists {
		return ErrNonceReuse
	}
	t.seen[fp] = struct{}{}
	return nil
}

// Count returns the number of pairs tracked.
func (t *NonceTracker) Count() int {
	if !t.enabled {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.seen)
}

// Clear forgets all tracked pairs. Only clear when rotating keys.
func (t *NonceTracker) Clear() {
	if !t.enabled {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seen = make(map[[sha256.Size]byte]struct{})
}

// Enabled reports whether tracking is active.
func (t *NonceTracker) Enabled() bool {
	return t.enabled
}

// fingerprint binds key and nonce unambiguously: the key is length-prefixed
// so (key, nonce) boundaries cannot be shifted.
func (t *NonceTracker) fingerprint(key, nonce []byte) [sha256.Size]byte {
	mac := hmac.New(sha256.New, t.secret)
	var keyLen [4]byte
	binary.BigEndian.PutUint32(keyLen[:], uint32(len(key)))
	mac.Write(keyLen[:])
	mac.Write(key)
	mac.Write(nonce)

	var fp [sha256.Size]byte
	copy(fp[:], mac.Sum(nil))
	return fp
}
