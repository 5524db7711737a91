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
	"fmt"

	"github.com/AndrzejKurek/pelion-crypto/pkg/backend"
	"github.com/AndrzejKurek/pelion-crypto/pkg/keystore"
	"github.com/AndrzejKurek/pelion-crypto/pkg/types"
)

type aeadState uint8

const (
	aeadIdle aeadState = iota

	// aeadArmed: key acquired, waiting for SetLengths/nonce.
	aeadArmed

	// aeadNonced: nonce fixed, consuming AD and payload.
	aeadNonced

	aeadDone
)

// AEAD is a multi-part authenticated encryption or decryption. The phase
// order is Setup, optional SetLengths (mandatory for algorithms with length
// pre-commitment), SetNonce or GenerateNonce, all associated data, all
// payload, then Finish or Verify.
//
// Associated data and payload are buffered and the authenticated
// computation runs once at finalization: Update returns no bytes, and on
// the decrypt path no plaintext exists before the tag has been checked.
type AEAD struct {
	guard   busyGuard
	store   *keystore.Store
	backend backend.Primitive
	ref     *keystore.KeyRef
	alg     types.Algorithm
	encrypt bool

	nonce          []byte
	ad             []byte
	payload        []byte
	payloadStarted bool

	lengthsSet bool
	adTotal    int
	ptTotal    int

	state aeadState
}

// NewAEAD returns an idle AEAD operation bound to a store and backend.
func NewAEAD(store *keystore.Store, p backend.Primitive) *AEAD {
	return &AEAD{store: store, backend: p}
}

// SetupEncrypt starts an authenticated encryption with the key behind the
// handle. The key policy must permit ENCRYPT with the algorithm.
func (o *AEAD) SetupEncrypt(h types.Handle, alg types.Algorithm) error {
	return o.setup(h, alg, true)
}

// SetupDecrypt starts an authenticated decryption with the key behind the
// handle. The key policy must permit DECRYPT with the algorithm.
func (o *AEAD) SetupDecrypt(h types.Handle, alg types.Algorithm) error {
	return o.setup(h, alg, false)
}

func (o *AEAD) setup(h types.Handle, alg types.Algorithm, encrypt bool) error {
	if err := o.guard.enter(); err != nil {
		return err
	}
	defer o.guard.leave()

	if o.state != aeadIdle {
		return errSequence("aead operation already set up")
	}
	if !alg.IsAEAD() {
		return fmt.Errorf("%w: %q is not an AEAD algorithm", types.ErrNotSupported, alg)
	}

	usage := types.UsageEncrypt
	if !encrypt {
		usage = types.UsageDecrypt
	}
	ref, err := o.store.AcquireKey(h, usage, alg)
	if err != nil {
		return err
	}

	o.ref = ref
	o.alg = alg
	o.encrypt = encrypt
	o.state = aeadArmed
	return nil
}

// SetLengths declares the total associated-data and payload lengths.
// Optional for most algorithms, mandatory before the nonce for algorithms
// with length pre-commitment (AES-CCM). Declared totals are enforced
// exactly.
func (o *AEAD) SetLengths(adLen, payloadLen int) error {
	if err := o.guard.enter(); err != nil {
		return err
	}
	defer o.guard.leave()

	if o.state != aeadArmed {
		return errSequence("lengths must be declared before the nonce")
	}
	if o.lengthsSet {
		return errSequence("lengths already declared")
	}
	if adLen < 0 || payloadLen < 0 {
		return fmt.Errorf("%w: negative length", types.ErrInvalidArgument)
	}
	o.lengthsSet = true
	o.adTotal = adLen
	o.ptTotal = payloadLen
	return nil
}

// SetNonce arms the operation with a caller-supplied nonce.
func (o *AEAD) SetNonce(nonce []byte) error {
	if err := o.guard.enter(); err != nil {
		return err
	}
	defer o.guard.leave()

	if err := o.checkNonceState(); err != nil {
		return err
	}
	if !validNonceLen(o.alg, len(nonce)) {
		return fmt.Errorf("%w: %d-byte nonce for %s", types.ErrInvalidArgument, len(nonce), o.alg)
	}
	o.nonce = append([]byte(nil), nonce...)
	o.state = aeadNonced
	return nil
}

// GenerateNonce draws a fresh random nonce, arms the operation with it, and
// returns it for transmission. Encryption only.
func (o *AEAD) GenerateNonce() ([]byte, error) {
	if err := o.guard.enter(); err != nil {
		return nil, err
	}
	defer o.guard.leave()

	if !o.encrypt {
		return nil, errSequence("nonce generation is for encryption operations")
	}
	if err := o.checkNonceState(); err != nil {
		return nil, err
	}
	nonce, err := o.backend.Random(o.alg.NonceSize())
	if err != nil {
		o.terminate()
		return nil, err
	}
	o.nonce = nonce
	o.state = aeadNonced
	return append([]byte(nil), nonce...), nil
}

func (o *AEAD) checkNonceState() error {
	if o.state != aeadArmed {
		return errSequence("aead operation is not awaiting a nonce")
	}
	if o.alg.RequiresLengthCommitment() && !o.lengthsSet {
		return errSequence("algorithm requires SetLengths before the nonce")
	}
	return nil
}

// UpdateAD absorbs associated data. All associated data must arrive before
// the first payload byte.
func (o *AEAD) UpdateAD(data []byte) error {
	if err := o.guard.enter(); err != nil {
		return err
	}
	defer o.guard.leave()

	if o.state != aeadNonced {
		return errSequence("aead operation is not accepting data")
	}
	if o.payloadStarted {
		return errSequence("associated data after payload")
	}
	if err := o.checkLease(); err != nil {
		return err
	}
	if o.lengthsSet && len(o.ad)+len(data) > o.adTotal {
		o.terminate()
		return fmt.Errorf("%w: associated data exceeds the declared %d bytes",
			types.ErrInvalidArgument, o.adTotal)
	}
	o.ad = append(o.ad, data...)
	return nil
}

// Update absorbs payload: plaintext when encrypting, ciphertext without
// the tag when decrypting. No output is produced until finalization.
func (o *AEAD) Update(data []byte) ([]byte, error) {
	if err := o.guard.enter(); err != nil {
		return nil, err
	}
	defer o.guard.leave()

	if o.state != aeadNonced {
		return nil, errSequence("aead operation is not accepting data")
	}
	if err := o.checkLease(); err != nil {
		return nil, err
	}
	if o.lengthsSet && len(o.ad) != o.adTotal {
		o.terminate()
		return nil, fmt.Errorf("%w: payload before all %d declared associated-data bytes",
			types.ErrInvalidArgument, o.adTotal)
	}
	if o.lengthsSet && len(o.payload)+len(data) > o.ptTotal {
		o.terminate()
		return nil, fmt.Errorf("%w: payload exceeds the declared %d bytes",
			types.ErrInvalidArgument, o.ptTotal)
	}
	o.payloadStarted = true
	o.payload = append(o.payload, data...)
	return nil, nil
}

// Finish completes an encryption and returns the ciphertext with the tag
// appended.
func (o *AEAD) Finish() ([]byte, error) {
	if err := o.guard.enter(); err != nil {
		return nil, err
	}
	defer o.guard.leave()

	if !o.encrypt {
		return nil, errSequence("aead operation was set up for decryption")
	}
	material, err := o.finalizeLocked()
	if err != nil {
		return nil, err
	}
	sealed, err := o.backend.AEADSeal(o.alg, material, o.nonce, o.ad, o.payload)
	o.conclude()
	if err != nil {
		return nil, err
	}
	return sealed, nil
}

// Verify completes a decryption: it checks the tag in constant time over
// the buffered ciphertext and returns the plaintext only on success.
// Returns ErrInvalidSignature on mismatch.
func (o *AEAD) Verify(tag []byte) ([]byte, error) {
	if err := o.guard.enter(); err != nil {
		return nil, err
	}
	defer o.guard.leave()

	if o.encrypt {
		return nil, errSequence("aead operation was set up for encryption")
	}
	material, err := o.finalizeLocked()
	if err != nil {
		return nil, err
	}
	sealed := make([]byte, 0, len(o.payload)+len(tag))
	sealed = append(sealed, o.payload...)
	sealed = append(sealed, tag...)
	plaintext, err := o.backend.AEADOpen(o.alg, material, o.nonce, o.ad, sealed)
	o.conclude()
	if err != nil {
		return nil, err
	}
	return plaintext, nil
}

// finalizeLocked validates totals and returns the key material for the
// one-shot authenticated computation.
func (o *AEAD) finalizeLocked() ([]byte, error) {
	if o.state != aeadNonced {
		return nil, errSequence("aead operation is not ready to finalize")
	}
	if o.lengthsSet && (len(o.ad) != o.adTotal || len(o.payload) != o.ptTotal) {
		o.terminate()
		return nil, fmt.Errorf("%w: supplied %d+%d bytes, declared %d+%d",
			types.ErrInvalidArgument, len(o.ad), len(o.payload), o.adTotal, o.ptTotal)
	}
	material, err := o.ref.Material()
	if err != nil {
		o.terminate()
		return nil, err
	}
	return material, nil
}

// conclude releases the key and wipes buffers after the final computation.
func (o *AEAD) conclude() {
	o.releaseKey()
	o.wipe()
	o.state = aeadDone
}

// Abort returns the operation to idle from any state, releasing the key
// and wiping buffered data.
func (o *AEAD) Abort() error {
	if err := o.guard.enter(); err != nil {
		return err
	}
	defer o.guard.leave()

	o.releaseKey()
	o.wipe()
	o.alg = types.AlgorithmNone
	o.payloadStarted = false
	o.lengthsSet = false
	o.adTotal = 0
	o.ptTotal = 0
	o.state = aeadIdle
	return nil
}

func (o *AEAD) checkLease() error {
	if _, err := o.ref.Material(); err != nil {
		o.terminate()
		return err
	}
	return nil
}

func (o *AEAD) terminate() {
	o.releaseKey()
	o.wipe()
	o.state = aeadDone
}

func (o *AEAD) wipe() {
	types.Zeroize(o.payload)
	types.Zeroize(o.ad)
	o.payload = nil
	o.ad = nil
	o.nonce = nil
}

func (o *AEAD) releaseKey() {
	if o.ref != nil {
		o.ref.Release()
		o.ref = nil
	}
}

// validNonceLen accepts the algorithm's fixed nonce size, or the 7..13
// range for CCM.
func validNonceLen(alg types.Algorithm, n int) bool {
	if alg == types.AlgorithmAESCCM {
		return n >= 7 && n <= 13
	}
	return n == alg.NonceSize()
}
