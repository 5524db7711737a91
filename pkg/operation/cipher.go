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

type cipherState uint8

const (
	cipherIdle cipherState = iota
	cipherIVPending
	cipherActive
	cipherDone
)

// Cipher is a multi-part unauthenticated encryption or decryption. After
// setup, exactly one of GenerateIV or SetIV must run before the first
// Update. Block modes buffer partial blocks across updates and flush them
// at Finish; stream modes emit output as input arrives.
type Cipher struct {
	guard   busyGuard
	store   *keystore.Store
	backend backend.Primitive
	ctx     backend.CipherContext
	ref     *keystore.KeyRef
	alg     types.Algorithm
	encrypt bool
	buf     []byte
	state   cipherState
}

// NewCipher returns an idle cipher operation bound to a store and backend.
func NewCipher(store *keystore.Store, p backend.Primitive) *Cipher {
	return &Cipher{store: store, backend: p}
}

// SetupEncrypt starts an encryption with the key behind the handle.
// The key policy must permit ENCRYPT with the algorithm.
func (o *Cipher) SetupEncrypt(h types.Handle, alg types.Algorithm) error {
	return o.setup(h, alg, true)
}

// SetupDecrypt starts a decryption with the key behind the handle.
// The key policy must permit DECRYPT with the algorithm.
func (o *Cipher) SetupDecrypt(h types.Handle, alg types.Algorithm) error {
	return o.setup(h, alg, false)
}

func (o *Cipher) setup(h types.Handle, alg types.Algorithm, encrypt bool) error {
	if err := o.guard.enter(); err != nil {
		return err
	}
	defer o.guard.leave()

	if o.state != cipherIdle {
		return errSequence("cipher operation already set up")
	}
	if !alg.IsCipher() {
		return fmt.Errorf("%w: %q is not a cipher algorithm", types.ErrNotSupported, alg)
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
	o.state = cipherIVPending
	return nil
}

// GenerateIV draws a fresh random IV, arms the operation with it, and
// returns it for transmission. Encryption only; decryption receives its IV.
func (o *Cipher) GenerateIV() ([]byte, error) {
	if err := o.guard.enter(); err != nil {
		return nil, err
	}
	defer o.guard.leave()

	if o.state != cipherIVPending {
		return nil, errSequence("cipher operation is not awaiting an IV")
	}
	if !o.encrypt {
		return nil, errSequence("IV generation is for encryption operations")
	}
	iv, err := o.backend.Random(o.alg.IVSize())
	if err != nil {
		o.terminate()
		return nil, err
	}
	if err := o.armLocked(iv); err != nil {
		return nil, err
	}
	return iv, nil
}

// SetIV arms the operation with a caller-supplied IV.
func (o *Cipher) SetIV(iv []byte) error {
	if err := o.guard.enter(); err != nil {
		return err
	}
	defer o.guard.leave()

	if o.state != cipherIVPending {
		return errSequence("cipher operation is not awaiting an IV")
	}
	if len(iv) != o.alg.IVSize() {
		return fmt.Errorf("%w: %s takes a %d-byte IV, got %d bytes",
			types.ErrInvalidArgument, o.alg, o.alg.IVSize(), len(iv))
	}
	return o.armLocked(iv)
}

// armLocked initializes the backend context once the IV is known.
func (o *Cipher) armLocked(iv []byte) error {
	material, err := o.ref.Material()
	if err != nil {
		o.terminate()
		return err
	}
	ctx, err := o.backend.CipherInit(o.alg, material, iv, o.encrypt)
	if err != nil {
		o.terminate()
		return err
	}
	o.ctx = ctx
	o.state = cipherActive
	return nil
}

// Update transforms more input and returns whatever output is ready. Block
// modes hold back partial blocks (and, when stripping padding, the final
// block) until more input or Finish arrives.
func (o *Cipher) Update(data []byte) ([]byte, error) {
	if err := o.guard.enter(); err != nil {
		return nil, err
	}
	defer o.guard.leave()

	if o.state != cipherActive {
		return nil, errSequence("cipher operation has no IV yet")
	}
	if err := o.checkLease(); err != nil {
		return nil, err
	}

	if o.alg.BlockSize() <= 1 {
		out, err := o.ctx.Update(data)
		if err != nil {
			o.terminate()
			return nil, err
		}
		return out, nil
	}

	o.buf = append(o.buf, data...)
	ready := len(o.buf) - len(o.buf)%o.alg.BlockSize()
	if o.alg == types.AlgorithmAESCBCPKCS7 && !o.encrypt && ready == len(o.buf) && ready > 0 {
		// Hold the final block back; it may carry the padding.
		ready -= o.alg.BlockSize()
	}
	if ready == 0 {
		return nil, nil
	}

	out, err := o.ctx.Update(o.buf[:ready])
	if err != nil {
		o.terminate()
		return nil, err
	}
	rest := copy(o.buf, o.buf[ready:])
	o.buf = o.buf[:rest]
	return out, nil
}

// Finish flushes buffered input and ends the operation. Stream modes return
// no bytes. CBC without padding requires the total input to be
// block-aligned; CBC with PKCS#7 appends padding on encryption and strips
// and checks it on decryption.
func (o *Cipher) Finish() ([]byte, error) {
	if err := o.guard.enter(); err != nil {
		return nil, err
	}
	defer o.guard.leave()

	if o.state != cipherActive {
		return nil, errSequence("cipher operation is not active")
	}
	if err := o.checkLease(); err != nil {
		return nil, err
	}

	out, err := o.finishLocked()
	if err != nil {
		o.terminate()
		return nil, err
	}
	o.releaseKey()
	o.ctx = nil
	types.Zeroize(o.buf)
	o.buf = nil
	o.state = cipherDone
	return out, nil
}

func (o *Cipher) finishLocked() ([]byte, error) {
	blockSize := o.alg.BlockSize()
	if blockSize <= 1 {
		return nil, nil
	}

	switch {
	case o.alg == types.AlgorithmAESCBCNoPadding:
		if len(o.buf) != 0 {
			return nil, fmt.Errorf("%w: input length is not a multiple of the block size",
				types.ErrInvalidArgument)
		}
		return nil, nil

	case o.encrypt:
		// PKCS#7: always pad, a full extra block when already aligned.
		padded := pkcs7Pad(o.buf, blockSize)
		return o.ctx.Update(padded)

	default:
		// PKCS#7 strip: the held-back block must be exactly one block of
		// aligned ciphertext.
		if len(o.buf) != blockSize {
			return nil, fmt.Errorf("%w: ciphertext length is not a multiple of the block size",
				types.ErrInvalidArgument)
		}
		block, err := o.ctx.Update(o.buf)
		if err != nil {
			return nil, err
		}
		return pkcs7Unpad(block, blockSize)
	}
}

// Abort returns the operation to idle from any state, releasing the key
// and wiping buffered data.
func (o *Cipher) Abort() error {
	if err := o.guard.enter(); err != nil {
		return err
	}
	defer o.guard.leave()

	o.terminate()
	o.alg = types.AlgorithmNone
	o.state = cipherIdle
	return nil
}

func (o *Cipher) checkLease() error {
	if _, err := o.ref.Material(); err != nil {
		o.terminate()
		return err
	}
	return nil
}

func (o *Cipher) terminate() {
	o.releaseKey()
	o.ctx = nil
	types.Zeroize(o.buf)
	o.buf = nil
	if o.state != cipherIdle {
		o.state = cipherDone
	}
}

func (o *Cipher) releaseKey() {
	if o.ref != nil {
		o.ref.Release()
		o.ref = nil
	}
}

// pkcs7Pad appends PKCS#7 padding, always at least one byte.
func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

// pkcs7Unpad strips PKCS#7 padding. The check runs in constant time over
// the final block so the error reveals nothing about where padding broke.
func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	n := len(data)
	if n == 0 || n%blockSize != 0 {
		return nil, fmt.Errorf("%w: malformed padding", types.ErrInvalidPadding)
	}
	padLen := int(data[n-1])
	good := subtle.ConstantTimeLessOrEq(1, padLen)
	good &= subtle.ConstantTimeLessOrEq(padLen, blockSize)
	for i := 0; i < blockSize; i++ {
		inPad := subtle.ConstantTimeLessOrEq(i+1, padLen)
		match := subtle.ConstantTimeByteEq(data[n-1-i], byte(padLen))
		good &= match | (1 - inPad)
	}
	if good != 1 {
		return nil, fmt.Errorf("%w: malformed padding", types.ErrInvalidPadding)
	}
	return data[:n-padLen], nil
}
