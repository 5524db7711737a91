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
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"github.com/AndrzejKurek/pelion-crypto/pkg/types"
)

// cmacContext computes AES-CMAC per NIST SP 800-38B / RFC 4493.
// The last block is held back in buf until Finish, because it is masked
// with a subkey rather than fed through the CBC chain.
type cmacContext struct {
	block  cipher.Block
	k1, k2 [aes.BlockSize]byte
	x      [aes.BlockSize]byte
	buf    []byte
}

func newCMAC(key []byte) (*cmacContext, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: CMAC key: %v", types.ErrInvalidArgument, err)
	}

	c := &cmacContext{block: block}

	// Subkey schedule: L = AES-K(0^128); K1 = dbl(L); K2 = dbl(K1).
	var l [aes.BlockSize]byte
	block.Encrypt(l[:], l[:])
	c.k1 = dbl(l)
	c.k2 = dbl(c.k1)
	return c, nil
}

func (c *cmacContext) Update(data []byte) error {
	c.buf = append(c.buf, data...)
	for len(c.buf) > aes.BlockSize {
		c.absorb(c.buf[:aes.BlockSize])
		c.buf = c.buf[aes.BlockSize:]
	}
	return nil
}

func (c *cmacContext) Finish() ([]byte, error) {
	var last [aes.BlockSize]byte
	if len(c.buf) == aes.BlockSize {
		for i := range last {
			last[i] = c.buf[i] ^ c.k1[i]
		}
	} else {
		// Incomplete final block: 10* padding, masked with K2.
		copy(last[:], c.buf)
		last[len(c.buf)] = 0x80
		for i := range last {
			last[i] ^= c.k2[i]
		}
	}

	for i := range last {
		last[i] ^= c.x[i]
	}
	tag := make([]byte, aes.BlockSize)
	c.block.Encrypt(tag, last[:])

	types.Zeroize(c.buf)
	c.buf = nil
	return tag, nil
}

func (c *cmacContext) absorb(block []byte) {
	for i := 0; i < aes.BlockSize; i++ {
		c.x[i] ^= block[i]
	}
	c.block.Encrypt(c.x[:], c.x[:])
}

// dbl multiplies a 128-bit block by x in GF(2^128) with the SP 800-38B
// reduction polynomial (Rb = 0x87).
func dbl(in [aes.BlockSize]byte) [aes.BlockSize]byte {
	var out [aes.BlockSize]byte
	overflow := in[0] >> 7
	for i := 0; i < aes.BlockSize-1; i++ {
		out[i] = in[i]<<1 | in[i+1]>>7
	}
	out[aes.BlockSize-1] = in[aes.BlockSize-1] << 1
	if overflow != 0 {
		out[aes.BlockSize-1] ^= 0x87
	}
	return out
}
