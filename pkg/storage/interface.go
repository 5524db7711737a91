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

// Package storage persists serialized key records for the keystore. Records
// are opaque blobs keyed by (lifetime, key ID); the keystore owns the record
// format, storage only moves bytes. An in-memory backend lives here, a
// file-based one in the file subpackage.
package storage

import "github.com/AndrzejKurek/pelion-crypto/pkg/types"

// Backend defines the interface for record storage backends.
// All implementations must be thread-safe.
type Backend interface {
	// Save persists the record blob under (lifetime, id).
	// An existing record is overwritten; the keystore checks for
	// collisions before calling Save.
	Save(lifetime types.Lifetime, id types.KeyID, blob []byte) error

	// Load retrieves the record blob for (lifetime, id).
	// Returns ErrNotFound if no record exists.
	Load(lifetime types.Lifetime, id types.KeyID) ([]byte, error)

	// Erase removes the record for (lifetime, id).
	// Returns ErrNotFound if no record exists.
	Erase(lifetime types.Lifetime, id types.KeyID) error

	// Exists reports whether a record is present for (lifetime, id).
	Exists(lifetime types.Lifetime, id types.KeyID) (bool, error)

	// List returns the key IDs stored under the lifetime, in ascending order.
	List(lifetime types.Lifetime) ([]types.KeyID, error)

	// Close releases any resources held by the backend.
	Close() error
}

// ValidateKey rejects record coordinates no backend should accept.
// Backends call this before touching their underlying store.
func ValidateKey(lifetime types.Lifetime, id types.KeyID) error {
	if !lifetime.IsValid() {
		return ErrInvalidLifetime
	}
	if id == 0 {
		return ErrInvalidID
	}
	return nil
}
