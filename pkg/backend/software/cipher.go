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

	"github.com/AndrzejKurek/pelion-crypto/pkg/backend"
	"github.com/AndrzejKurek/pelion-crypto/pkg/types"
	"golang.org/x/crypto/chacha20"
)

// CipherInit starts a streaming symmetric cipher. Both CBC variants map to
// the same raw block mode here; padding is applied by the caller before the
// final block reaches Update.
func (b *Backend) CipherInit(alg types.Algorithm, key, iv []byte, encrypt bool) (backend.CipherContext, error) {
	if !alg.IsCipher() {
		return nil, fmt.Errorf("%w: cipher algorithm %q", types.ErrNotSupported, alg)
	}
	if len(iv) != alg.IVSize() {
		return nil, fmt.Errorf("%w: IV length %d for %s", types.ErrInvalidArgument, len(iv), alg)
	}

	if alg == types.AlgorithmChaCha20 {
		s, err := chacha20.NewUnauthenticatedCipher(key, iv)
		if err != nil {
			return nil, fmt.Errorf("%w: ChaCha20: %v", types.ErrInvalidArgument, err)
		}
		return &streamContext{s: s}, nil
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: AES key: %v", types.ErrInvalidArgument, err)
	}

	switch alg {
	case types.AlgorithmAESCTR:
		return &streamContext{s: cipher.NewCTR(block, iv)}, nil
	case types.AlgorithmAESCFB:
		if encrypt {
			return &streamContext{s: cipher.NewCFBEncrypter(block, iv)}, nil
		}
		return &streamContext{s: cipher.NewCFBDecrypter(block, iv)}, nil
	case types.AlgorithmAESOFB:
		return &streamContext{s: cipher.NewOFB(block, iv)}, nil
	case types.AlgorithmAESCBCNoPadding, types.AlgorithmAESCBCPKCS7:
		if encrypt {
			return &blockContext{bm: cipher.NewCBCEncrypter(block, iv)}, nil
		}
		return &blockContext{bm: cipher.NewCBCDecrypter(block, iv)}, nil
	default:
		return nil, fmt.Errorf("%w: cipher algorithm %q", types.ErrNotSupported, alg)
	}
}

// streamContext implements backend.CipherContext over a cipher.Stream.
type streamContext struct {
	s cipher.Stream
}

func (c *streamContext) Update(data []byte) ([]byte, error) {
	out := make([]byte, len(data))
	c.s.XORKeyStream(out, data)
	return out, nil
}

// blockContext implements backend.CipherContext over a cipher.BlockMode.
type blockContext struct {
	bm cipher.BlockMode
}

func (c *blockContext) Update(data []byte) ([]byte, error) {
	if len(data)%c.bm.BlockSize() != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not block aligned", types.ErrInvalidArgument, len(data))
	}
	out := make([]byte, len(data))
	c.bm.CryptBlocks(out, data)
	return out, nil
}
