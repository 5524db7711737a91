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

package keystore

import (
	"fmt"
	"sync/atomic"

	"github.com/AndrzejKurek/pelion-crypto/pkg/types"
)

// KeyRef is a lease on a key slot's material, handed out by AcquireKey for
// the lifetime of one operation. It carries a private copy of the material,
// so the slot can be closed or destroyed without pulling the bytes out from
// under a running backend call; the lease merely observes the invalidation
// on its next use and fails.
//
// A KeyRef is owned by a single operation and is not safe for concurrent
// use, matching the single-owner rule for operations. Release is safe to
// call at any point and is idempotent.
type KeyRef struct {
	store  *Store
	handle types.Handle

	keyType types.KeyType
	bits    int
	alg     types.Algorithm
	usage   types.Usage

	material []byte

	invalid  atomic.Bool
	released atomic.Bool
}

// Material returns the leased key bytes. After the underlying slot has been
// closed or destroyed the lease is dead: the material is zeroized and
// ErrBadState is returned, which aborts the owning operation.
func (r *KeyRef) Material() ([]byte, error) {
	if r.released.Load() {
		return nil, fmt.Errorf("%w: key lease released", types.ErrBadState)
	}
	if r.invalid.Load() {
		types.Zeroize(r.material)
		return nil, fmt.Errorf("%w: key no longer available", types.ErrBadState)
	}
	return r.material, nil
}

// KeyType returns the leased key's type tag.
func (r *KeyRef) KeyType() types.KeyType {
	return r.keyType
}

// Bits returns the leased key's size in bits.
func (r *KeyRef) Bits() int {
	return r.bits
}

// Algorithm returns the algorithm the lease was acquired for.
func (r *KeyRef) Algorithm() types.Algorithm {
	return r.alg
}

// Handle returns the handle the lease was acquired from.
func (r *KeyRef) Handle() types.Handle {
	return r.handle
}

// Release zeroizes the leased material and unregisters the lease from its
// slot. Idempotent; safe after Close or Destroy of the slot.
func (r *KeyRef) Release() {
	if !r.released.CompareAndSwap(false, true) {
		return
	}
	types.Zeroize(r.material)
	r.material = nil
	if r.store != nil {
		r.store.unregisterLease(r)
	}
}

// invalidate marks the lease dead without touching its buffer; the owning
// operation may be inside a backend call on it right now.
func (r *KeyRef) invalidate() {
	r.invalid.Store(true)
}
