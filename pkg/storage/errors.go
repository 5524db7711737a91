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

package storage

import "errors"

var (
	// ErrClosed is returned when attempting to use a closed backend.
	ErrClosed = errors.New("storage: closed")

	// ErrNotFound is returned when no record exists for the requested key ID.
	ErrNotFound = errors.New("storage: not found")

	// ErrInvalidID is returned when a key ID is zero or otherwise unusable.
	ErrInvalidID = errors.New("storage: invalid key ID")

	// ErrInvalidLifetime is returned for an unrecognized lifetime class.
	ErrInvalidLifetime = errors.New("storage: invalid lifetime")

	// ErrCorrupted is returned when a stored record fails to decode or
	// fails authenticated decryption.
	ErrCorrupted = errors.New("storage: corrupted record")
)
