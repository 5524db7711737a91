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

import "github.com/AndrzejKurek/pelion-crypto/pkg/types"

// Convenience re-exports so backend implementations can write
// backend.Algorithm instead of importing types separately. These are type
// aliases, not new types.
type (
	// Algorithm identifies a cryptographic algorithm.
	Algorithm = types.Algorithm

	// KeyType tags the kind of material a key holds.
	KeyType = types.KeyType

	// EllipticCurve identifies the curve of an ECC key.
	EllipticCurve = types.EllipticCurve
)
