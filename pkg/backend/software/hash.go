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
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding"
	"fmt"
	"hash"

	"github.com/AndrzejKurek/pelion-crypto/pkg/backend"
	"github.com/AndrzejKurek/pelion-crypto/pkg/types"
	"golang.org/x/crypto/sha3"
)

// newDigest maps a hash algorithm to its hash.Hash constructor output.
func newDigest(alg types.Algorithm) (hash.Hash, error) {
	switch alg {
	case types.AlgorithmMD5:
		return md5.New(), nil
	case types.AlgorithmSHA1:
		return sha1.New(), nil
	case types.AlgorithmSHA224:
		return sha256.New224(), nil
	case types.AlgorithmSHA256:
		return sha256.New(), nil
	case types.AlgorithmSHA384:
		return sha512.New384(), nil
	case types.AlgorithmSHA512:
		return sha512.New(), nil
	case types.AlgorithmSHA512_224:
		return sha512.New512_224(), nil
	case types.AlgorithmSHA512_256:
		return sha512.New512_256(), nil
	case types.AlgorithmSHA3_224:
		return sha3.New224(), nil
	case types.AlgorithmSHA3_256:
		return sha3.New256(), nil
	case types.AlgorithmSHA3_384:
		return sha3.New384(), nil
	case types.AlgorithmSHA3_512:
		return sha3.New512(), nil
	default:
		return nil, fmt.Errorf("%w: hash algorithm %q", types.ErrNotSupported, alg)
	}
}

// hashContext implements backend.HashContext over a hash.Hash.
type hashContext struct {
	alg types.Algorithm
	h   hash.Hash
}

// HashInit starts a streaming hash computation.
func (b *Backend) HashInit(alg types.Algorithm) (backend.HashContext, error) {
	h, err := newDigest(alg)
	if err != nil {
		return nil, err
	}
	return &hashContext{alg: alg, h: h}, nil
}

func (c *hashContext) Update(data []byte) error {
	// hash.Hash.Write never returns an error.
	_, _ = c.h.Write(data)
	return nil
}

func (c *hashContext) Finish() ([]byte, error) {
	return c.h.Sum(nil), nil
}

// Clone duplicates the computation via the hash state's binary marshaling.
// All stdlib hashes and the x/crypto SHA-3 states implement
// encoding.BinaryMarshaler.
func (c *hashContext) Clone() (backend.HashContext, error) {
	marshaler, ok := c.h.(encoding.BinaryMarshaler)
	if !ok {
		return nil, fmt.Errorf("%w: hash %q state is not clonable", types.ErrNotSupported, c.alg)
	}
	state, err := marshaler.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("hash clone: %w", err)
	}

	fresh, err := newDigest(c.alg)
	if err != nil {
		return nil, err
	}
	unmarshaler, ok := fresh.(encoding.BinaryUnmarshaler)
	if !ok {
		return nil, fmt.Errorf("%w: hash %q state is not clonable", types.ErrNotSupported, c.alg)
	}
	if err := unmarshaler.UnmarshalBinary(state); err != nil {
		return nil, fmt.Errorf("hash clone: %w", err)
	}
	return &hashContext{alg: c.alg, h: fresh}, nil
}

func (c *hashContext) Reset() {
	c.h.Reset()
}
