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
	"crypto/subtle"
	"fmt"

	"github.com/AndrzejKurek/pelion-crypto/pkg/types"
)

// AES-CCM per NIST SP 800-38C: CBC-MAC over a length-prefixed encoding of
// nonce, associated data and payload, combined with CTR mode encryption.
// The nonce length n (7..13) fixes the payload length field width
// q = 15 - n, which caps the payload at 2^(8q)-1 bytes.
const (
	ccmMinNonceLen = 7
	ccmMaxNonceLen = 13
)

func ccmValidate(nonce []byte, tagLen int, payloadLen int) (q int, err error) {
	if len(nonce) < ccmMinNonceLen || len(nonce) > ccmMaxNonceLen {
		return 0, fmt.Errorf("%w: CCM nonce length %d", types.ErrInvalidArgument, len(nonce))
	}
	if tagLen < 4 || tagLen > 16 || tagLen%2 != 0 {
		return 0, fmt.Errorf("%w: CCM tag length %d", types.ErrInvalidArgument, tagLen)
	}
	q = 15 - len(nonce)
	if q < 8 && uint64(payloadLen) >= uint64(1)<<(8*q) {
		return 0, fmt.Errorf("%w: CCM payload too long for %d-byte nonce", types.ErrInvalidArgument, len(nonce))
	}
	return q, nil
}

func ccmSeal(key, nonce, additionalData, plaintext []byte, tagLen int) ([]byte, error) {
	q, err := ccmValidate(nonce, tagLen, len(plaintext))
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: AES key: %v", types.ErrInvalidArgument, err)
	}

	tag := ccmAuth(block, nonce, additionalData, plaintext, tagLen, q)
	s0, a1 := ccmCounterBlocks(block, nonce, q)

	out := make([]byte, len(plaintext)+tagLen)
	cipher.NewCTR(block, a1).XORKeyStream(out[:len(plaintext)], plaintext)
	for i := 0; i < tagLen; i++ {
		out[len(plaintext)+i] = tag[i] ^ s0[i]
	}
	return out, nil
}

func ccmOpen(key, nonce, additionalData, ciphertext []byte, tagLen int) ([]byte, error) {
	if len(ciphertext) < tagLen {
		return nil, types.ErrInvalidSignature
	}
	q, err := ccmValidate(nonce, tagLen, len(ciphertext)-tagLen)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: AES key: %v", types.ErrInvalidArgument, err)
	}

	s0, a1 := ccmCounterBlocks(block, nonce, q)

	payload := ciphertext[:len(ciphertext)-tagLen]
	plaintext := make([]byte, len(payload))
	cipher.NewCTR(block, a1).XORKeyStream(plaintext, payload)

	expected := ccmAuth(block, nonce, additionalData, plaintext, tagLen, q)
	masked := make([]byte, tagLen)
	for i := 0; i < tagLen; i++ {
		masked[i] = expected[i] ^ s0[i]
	}

	if subtle.ConstantTimeCompare(masked, ciphertext[len(payload):]) != 1 {
		types.Zeroize(plaintext)
		return nil, types.ErrInvalidSignature
	}
	return plaintext, nil
}

// ccmAuth computes the raw CBC-MAC value T over B0 and the formatted
// associated data and payload.
func ccmAuth(block cipher.Block, nonce, additionalData, payload []byte, tagLen, q int) []byte {
	// B0: flags || nonce || payload length (q bytes, big-endian).
	var b0 [aes.BlockSize]byte
	b0[0] = byte(q - 1)
	b0[0] |= byte((tagLen - 2) / 2 << 3)
	if len(additionalData) > 0 {
		b0[0] |= 1 << 6
	}
	copy(b0[1:], nonce)
	plen := uint64(len(payload))
	for i := 0; i < q; i++ {
		b0[aes.BlockSize-1-i] = byte(plen >> (8 * i))
	}

	var x [aes.BlockSize]byte
	block.Encrypt(x[:], b0[:])

	if a := uint64(len(additionalData)); a > 0 {
		// Associated data length encoding per SP 800-38C A.2.2.
		var hdr []byte
		switch {
		case a < 1<<16-1<<8:
			hdr = []byte{byte(a >> 8), byte(a)}
		case a <= 0xFFFFFFFF:
			hdr = []byte{0xFF, 0xFE, byte(a >> 24), byte(a >> 16), byte(a >> 8), byte(a)}
		default:
			hdr = []byte{0xFF, 0xFF,
				byte(a >> 56), byte(a >> 48), byte(a >> 40), byte(a >> 32),
				byte(a >> 24), byte(a >> 16), byte(a >> 8), byte(a)}
		}
		ccmAbsorb(block, &x, hdr, additionalData)
	}
	ccmAbsorb(block, &x, payload)

	return x[:tagLen]
}

// ccmAbsorb feeds the concatenation of the segments through the CBC-MAC,
// zero-padding the final partial block.
func ccmAbsorb(block cipher.Block, x *[aes.BlockSize]byte, segments ...[]byte) {
	var pending [aes.BlockSize]byte
	n := 0
	flush := func() {
		for i := 0; i < aes.BlockSize; i++ {
			x[i] ^= pending[i]
		}
		block.Encrypt(x[:], x[:])
		pending = [aes.BlockSize]byte{}
		n = 0
	}
	for _, seg := range segments {
		for len(seg) > 0 {
			take := copy(pending[n:], seg)
			n += take
			seg = seg[take:]
			if n == aes.BlockSize {
				flush()
			}
		}
	}
	if n > 0 {
		flush()
	}
}

// ccmCounterBlocks returns S0 = AES-K(A0) for tag masking and A1, the
// initial counter block for payload encryption.
func ccmCounterBlocks(block cipher.Block, nonce []byte, q int) (s0 []byte, a1 []byte) {
	a0 := make([]byte, aes.BlockSize)
	a0[0] = byte(q - 1)
	copy(a0[1:], nonce)

	s0 = make([]byte, aes.BlockSize)
	block.Encrypt(s0, a0)

	a1 = make([]byte, aes.BlockSize)
	copy(a1, a0)
	a1[aes.BlockSize-1] = 1
	return s0, a1
}
