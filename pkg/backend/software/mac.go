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
	"crypto/hmac"
	"fmt"
	"hash"

	"github.com/AndrzejKurek/pelion-crypto/pkg/backend"
	"github.com/AndrzejKurek/pelion-crypto/pkg/types"
)

// MACInit starts a streaming MAC computation bound to the key.
func (b *Backend) MACInit(alg types.Algorithm, key []byte) (backend.MACContext, error) {
	switch {
	case alg == types.AlgorithmAESCMAC:
		return newCMAC(key)

	case alg.IsMAC() && !alg.IsWildcard():
		hashAlg := alg.HashComponent()
		if _, err := newDigest(hashAlg); err != nil {
			return nil, fmt.Errorf("%w: MAC algorithm %q", types.ErrNotSupported, alg)
		}
		m := hmac.New(func() hash.Hash {
			h, _ := newDigest(hashAlg)
			return h
		}, key)
		return &hmacContext{m: m}, nil

	default:
		return nil, fmt.Errorf("%w: MAC algorithm %q", types.ErrNotSupported, alg)
	}
}

// hmacContext implements backend.MACContext over crypto/hmac.
type hmacContext struct {
	m hash.Hash
}

func (c *hmacContext) Update(data []byte) error {
	_, _ = c.m.Write(data)
	return nil
}

func (c *hmacContext) Finish() ([]byte, error) {
	return c.m.Sum(nil), nil
}
