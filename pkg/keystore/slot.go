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

import "github.com/AndrzejKurek/pelion-crypto/pkg/types"

// slot is the in-memory state of one open key. All access is serialized by
// the store mutex; only lease invalidation flags are touched from outside it.
type slot struct {
	lifetime types.Lifetime
	id       types.KeyID

	keyType types.KeyType
	bits    int
	source  types.KeySource

	policy    types.Policy
	policySet bool

	// material is the slot-owned key bytes; nil until the slot is occupied.
	material []byte
	occupied bool

	// leases are the outstanding KeyRefs handed to operations. Close and
	// Destroy invalidate them before releasing the slot.
	leases map[*KeyRef]struct{}
}

func newSlot(lifetime types.Lifetime, id types.KeyID) *slot {
	return &slot{
		lifetime: lifetime,
		id:       id,
		leases:   make(map[*KeyRef]struct{}),
	}
}

// invalidateLeases marks every outstanding lease dead. The leases zeroize
// their own material copies when the owning operation next touches them or
// releases; nothing here blocks on the operations.
func (s *slot) invalidateLeases() {
	for ref := range s.leases {
		ref.invalidate()
	}
	s.leases = make(map[*KeyRef]struct{})
}

// wipe zeroizes and drops the slot's material and metadata.
func (s *slot) wipe() {
	types.Zeroize(s.material)
	s.material = nil
	s.occupied = false
	s.keyType = types.KeyTypeNone
	s.bits = 0
	s.source = ""
	s.policy = types.Policy{}
	s.policySet = false
}

// attributes returns a metadata snapshot.
func (s *slot) attributes() types.KeyAttributes {
	return types.KeyAttributes{
		Lifetime: s.lifetime,
		ID:       s.id,
		Type:     s.keyType,
		Bits:     s.bits,
		Policy:   s.policy,
	}
}
