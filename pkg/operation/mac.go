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
	"github.com/AndrzejKurek/pelion-crypto/pkg/keystore"
	"github.com/AndrzejKurek/pelion-crypto/pkg/types"
)

type macState uint8

const (
	macIdle macState = iota
	macActive
	macDone
)

// MAC is a multi-part MAC computation or verification, key-bound at setup.
type MAC struct {
	guard   busyGuard
	store   *keystore.Store
	backend backend.Primitive
	ctx     backend.MACContext
	ref     *keystore.KeyRef
	alg     types.Algorithm
	verify  bool
	state   macState
}

// NewMAC returns an idle MAC operation bound to a store and backend.
func NewMAC(store *keystore.Store, p backend.Primitive) *MAC {
	return &MAC{store: store, backend: p}
}

// SetupSign starts a MAC computation with the key behind the handle.
// The key policy must permit SIGN with the algorithm.
func (o *MAC) SetupSign(h types.Handle, alg types.Algorithm) error {
	return o.setup(h, alg, false)
}

// SetupVerify starts a MAC verification with the key behind the handle.
// The key policy must permit VERIFY with the algorithm.
func (o *MAC) SetupVerify(h types.Handle, alg types.Algorithm) error {
	return o.setup(h, alg, true)
}

func (o *MAC) setup(h types.Handle, alg types.Algorithm, verify bool) error {
	if err := o.guard.enter(); err != nil {
		return err
	}
	defer o.guard.leave()

	if o.state != macIdle {
		return errSequence("mac operation already set up")
	}
	if !alg.IsMAC() {
		return fmt.Errorf("%w: %q is not a MAC algorithm", types.ErrNotSupported, alg)
	}
	if alg.IsWildcard() {
		return fmt.Errorf("%w: wildcard %q cannot set up an operation", types.ErrInvalidArgument, alg)
	}

	usage := types.UsageSign
	if verify {
		usage = types.UsageVerify
	}
	ref, err := o.store.AcquireKey(h, usage, alg)
	if err != nil {
		return err
	}
	material, err := ref.Material()
	if err != nil {
		ref.Release()
		return err
	}
	ctx, err := o.backend.MACInit(alg, material)
	if err != nil {
		ref.Release()
		return err
	}

	o.ctx = ctx
	o.ref = ref
	o.alg = alg
	o.verify = verify
	o.state = macActive
	return nil
}

// Update absorbs more input.
func (o *MAC) Update(data []byte) error {
	if err := o.guard.enter(); err != nil {
		return err
	}
	defer o.guard.leave()

	if o.state != macActive {
		return errSequence("mac operation is not active")
	}
	if err := o.checkLease(); err != nil {
		return err
	}
	if err := o.ctx.Update(data); err != nil {
		o.terminate()
		return err
	}
	return nil
}

// SignFinish returns the tag and ends a signing operation.
func (o *MAC) SignFinish() ([]byte, error) {
	if err := o.guard.enter(); err != nil {
		return nil, err
	}
	defer o.guard.leave()

	if o.verify {
		return nil, errSequence("mac operation was set up for verification")
	}
	return o.finishLocked()
}

// VerifyFinish ends a verification operation, comparing the tag in constant
// time. Returns ErrInvalidSignature on mismatch.
func (o *MAC) VerifyFinish(expected []byte) error {
	if err := o.guard.enter(); err != nil {
		return err
	}
	defer o.guard.leave()

	if !o.verify {
		return errSequence("mac operation was set up for signing")
	}
	tag, err := o.finishLocked()
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare(tag, expected) != 1 {
		return fmt.Errorf("%w: MAC mismatch", types.ErrInvalidSignature)
	}
	return nil
}

// Abort returns the operation to idle from any state, releasing the key.
func (o *MAC) Abort() error {
	if err := o.guard.enter(); err != nil {
		return err
	}
	defer o.guard.leave()

	o.releaseKey()
	o.ctx = nil
	o.alg = types.AlgorithmNone
	o.verify = false
	o.state = macIdle
	return nil
}

func (o *MAC) finishLocked() ([]byte, error) {
	if o.state != macActive {
		return nil, errSequence("mac operation is not active")
	}
	if err := o.checkLease(); err != nil {
		return nil, err
	}
	tag, err := o.ctx.Finish()
	if err != nil {
		o.terminate()
		return nil, err
	}
	o.releaseKey()
	o.ctx = nil
	o.state = macDone
	return tag, nil
}

// checkLease observes slot destruction: once the lease is invalidated the
// operation fails and terminates.
func (o *MAC) checkLease() error {
	if _, err := o.ref.Material(); err != nil {
		o.terminate()
		return err
	}
	return nil
}

func (o *MAC) terminate() {
	o.releaseKey()
	o.ctx = nil
	o.state = macDone
}

func (o *MAC) releaseKey() {
	if o.ref != nil {
		o.ref.Release()
		o.ref = nil
	}
}
