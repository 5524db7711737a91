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

package types

// Zeroize overwrites the buffer with zeros. Key material and derivation
// scratch must pass through here before being released, so that secrets do
// not linger in reachable memory.
func Zeroize(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
