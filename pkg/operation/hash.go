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

package operation

import (
	"crypto/subtle"
	"fmt"

	"github.com/AndrzejKurek/pelion-crypto/pkg/backend"
	"github.com/AndrzejKurek/pelion-crypto/pkg/types"
)

type hashState uint8

const (
	hashIdle hashState = iota
	hashActive
	hashDone
)

// Hash is a multi-part hash computation.
type Hash struct {
	guard   busyGuard
	backend backend.Primitive
	ctx     backend.HashContext
	alg     types.Algorithm
	state   hashState
}

// NewHash returns an idle hash operation bound to a backend.
func NewHash(p backend.Primitive) *Hash {
	return &Hash{backend: p}
}

// Setup starts the operation with the given hash algorithm.
func (o *Hash) Setup(alg types.Algorithm) error {
	if err := o.guard.enter(); err != nil {
		return err
	}
	defer o.guard.leave()

	if o.state != hashIdle {
		return errSequence("hash operation already set up")
	}
	if !alg.IsHash() {
		return fmt.Errorf("%w: %q is not a hash algorithm", types.ErrNotSupported, alg)
	}
	ctx, err := o.backend.HashInit(alg)
	if err != nil {
		return err
	}
	o.ctx = ctx
	o.alg = alg
	o.state = hashActive
	return nil
}

// Update absorbs more input.
func (o *Hash) Update(data []byte) error {
	if err := o.guard.enter(); err != nil {
		return err
	}
	defer o.guard.leave()

	if o.state != hashActive {
		return errSequence("hash operation is not active")
	}
	if err := o.ctx.Update(data); err != nil {
		o.terminate()
		return err
	}
	return nil
}

// Finish returns the digest and ends the operation.
func (o *Hash) Finish() ([]byte, error) {
	if err := o.guard.enter(); err != nil {
		return nil, err
	}
	defer o.guard.leave()
	return o.finishLocked()
}

// Verify ends the operation and compares the digest against an expected
// value in constant time. Returns ErrInvalidSignature on mismatch.
func (o *Hash) Verify(expected []byte) error {
	if err := o.guard.enter(); err != nil {
		return err
	}
	defer o.guard.leave()

	digest, err := o.finishLocked()
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare(digest, expected) != 1 {
		return fmt.Errorf("%w: hash mismatch", types.ErrInvalidSignature)
	}
	return nil
}

// Clone returns an independent copy of an active operation.
func (o *Hash) Clone() (*Hash, error) {
	if err := o.guard.enter(); err != nil {
		return nil, err
	}
	defer o.guard.leave()

	if o.state != hashActive {
		return nil, errSequence("only an active hash operation can be cloned")
	}
	ctx, err := o.ctx.Clone()
	if err != nil {
		o.terminate()
		return nil, err
	}
	return &Hash{
		backend: o.backend,
		ctx:     ctx,
		alg:     o.alg,
		state:   hashActive,
	}, nil
}

// Abort returns the operation to idle from any state.
func (o *Hash) Abort() error {
	if err := o.guard.enter(); err != nil {
		return err
	}
	defer o.guard.leave()

	o.ctx = nil
	o.alg = types.AlgorithmNone
	o.state = hashIdle
	return nil
}

// Algorithm returns the algorithm the operation was set up with.
func (o *Hash) Algorithm() types.Algorithm {
	return o.alg
}

func (o *Hash) finishLocked() ([]byte, error) {
	if o.state != hashActive {
		return nil, errSequence("hash operation is not active")
	}
	digest, err := o.ctx.Finish()
	if err != nil {
		o.terminate()
		return nil, err
	}
	o.ctx = nil
	o.state = hashDone
	return digest, nil
}

// terminate leaves the operation unusable until the next Abort.
func (o *Hash) terminate() {
	o.ctx = nil
	o.state = hashDone
}
