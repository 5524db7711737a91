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
	"bytes"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/AndrzejKurek/pelion-crypto/pkg/backend"
	"github.com/AndrzejKurek/pelion-crypto/pkg/keystore"
	"github.com/AndrzejKurek/pelion-crypto/pkg/types"
)

// DerivationStep names an input slot of a derivation algorithm.
type DerivationStep string

// Derivation input steps. HKDF consumes salt, secret, and info; label and
// seed are defined for interface completeness (the TLS-style KDFs that
// consume them are not provided).
const (
	StepSalt   DerivationStep = "salt"
	StepSecret DerivationStep = "secret"
	StepInfo   DerivationStep = "info"
	StepLabel  DerivationStep = "label"
	StepSeed   DerivationStep = "seed"
)

// maxAgreementSecret is the largest raw shared secret any supported curve
// produces (P-521).
const maxAgreementSecret = 66

type genState uint8

const (
	genIdle genState = iota

	// genInput: accepting inputs, nothing read yet.
	genInput

	// genReading: output has been drawn, inputs are frozen.
	genReading

	genDone
)

// Generator is a key-derivation operation: HKDF over an input secret, or a
// raw key agreement streamed out directly. Inputs are accepted until the
// first read; capacity meters how much output remains and can never be
// raised. A read past the remaining capacity fails hard: nothing is
// written and the capacity drops to zero for good.
type Generator struct {
	guard   busyGuard
	store   *keystore.Store
	backend backend.Primitive

	alg       types.Algorithm
	agreement bool
	newHash   func() hash.Hash

	salt, secret, info          []byte
	saltSet, secretSet, infoSet bool

	capacity int
	stream   io.Reader
	state    genState
}

// NewGenerator returns an idle generator bound to a store and backend.
func NewGenerator(store *keystore.Store, p backend.Primitive) *Generator {
	return &Generator{store: store, backend: p}
}

// Setup selects the derivation algorithm. HKDF initializes capacity to
// 255 hash lengths; raw agreement to the largest supported shared secret,
// narrowed once the agreement runs.
func (g *Generator) Setup(alg types.Algorithm) error {
	if err := g.guard.enter(); err != nil {
		return err
	}
	defer g.guard.leave()

	if g.state != genIdle {
		return errSequence("generator already set up")
	}

	switch {
	case alg.IsKeyAgreement():
		g.agreement = true
		g.capacity = maxAgreementSecret
	case alg.IsKeyDerivation():
		if alg.IsWildcard() {
			return fmt.Errorf("%w: wildcard %q cannot set up an operation", types.ErrInvalidArgument, alg)
		}
		newHash, err := hkdfHash(alg)
		if err != nil {
			return err
		}
		g.newHash = newHash
		g.capacity = 255 * alg.HashSize()
	default:
		return fmt.Errorf("%w: %q is not a derivation algorithm", types.ErrNotSupported, alg)
	}

	g.alg = alg
	g.state = genInput
	return nil
}

// InputBytes feeds raw bytes into a derivation step.
func (g *Generator) InputBytes(step DerivationStep, data []byte) error {
	if err := g.guard.enter(); err != nil {
		return err
	}
	defer g.guard.leave()

	if g.state != genInput {
		return errSequence("generator is not accepting inputs")
	}
	return g.feedLocked(step, data)
}

// InputKey feeds a stored key into a derivation step. The key policy must
// permit DERIVE with the generator's algorithm.
func (g *Generator) InputKey(step DerivationStep, h types.Handle) error {
	if err := g.guard.enter(); err != nil {
		return err
	}
	defer g.guard.leave()

	if g.state != genInput {
		return errSequence("generator is not accepting inputs")
	}
	ref, err := g.store.AcquireKey(h, types.UsageDerive, g.alg)
	if err != nil {
		return err
	}
	defer ref.Release()
	material, err := ref.Material()
	if err != nil {
		return err
	}
	return g.feedLocked(step, material)
}

// KeyAgreement runs a raw ECDH agreement between a stored private key and
// a peer public key, feeding the shared secret into the secret step. The
// private key's policy must permit DERIVE with ECDH.
func (g *Generator) KeyAgreement(step DerivationStep, priv types.Handle, peerPublic []byte) error {
	if err := g.guard.enter(); err != nil {
		return err
	}
	defer g.guard.leave()

	if g.state != genInput {
		return errSequence("generator is not accepting inputs")
	}
	if step != StepSecret {
		return fmt.Errorf("%w: key agreement feeds the secret step, not %q", types.ErrInvalidArgument, step)
	}
	if g.secretSet {
		return errSequence("secret already input")
	}

	ref, err := g.store.AcquireKey(priv, types.UsageDerive, types.AlgorithmECDH)
	if err != nil {
		return err
	}
	defer ref.Release()
	material, err := ref.Material()
	if err != nil {
		return err
	}
	secret, err := g.backend.RawAgreement(types.AlgorithmECDH, ref.KeyType(), material, peerPublic)
	if err != nil {
		return err
	}

	g.secret = secret
	g.secretSet = true
	if g.agreement && len(secret) < g.capacity {
		g.capacity = len(secret)
	}
	return nil
}

// SetCapacity lowers the remaining output capacity. Raising it is not
// possible.
func (g *Generator) SetCapacity(n int) error {
	if err := g.guard.enter(); err != nil {
		return err
	}
	defer g.guard.leave()

	if g.state != genInput && g.state != genReading {
		return errSequence("generator is not set up")
	}
	if n < 0 || n > g.capacity {
		return fmt.Errorf("%w: capacity can only be lowered (%d remaining)", types.ErrInvalidArgument, g.capacity)
	}
	g.capacity = n
	return nil
}

// Capacity returns the number of output bytes still available.
func (g *Generator) Capacity() int {
	return g.capacity
}

// Read draws n bytes of derived output and freezes further inputs.
// Requesting more than the remaining capacity writes nothing and
// permanently zeroes the capacity.
func (g *Generator) Read(n int) ([]byte, error) {
	if err := g.guard.enter(); err != nil {
		return nil, err
	}
	defer g.guard.leave()

	return g.readLocked(n)
}

// ImportKey draws bits/8 bytes of derived output directly into an empty
// key slot without exposing them. The drawn bytes are consumed even when
// the slot write fails.
func (g *Generator) ImportKey(h types.Handle, keyType types.KeyType, bits int) error {
	if err := g.guard.enter(); err != nil {
		return err
	}
	defer g.guard.leave()

	if !keyType.IsValid() {
		return fmt.Errorf("%w: key type %q", types.ErrNotSupported, keyType)
	}
	if !keyType.IsSymmetric() {
		return fmt.Errorf("%w: derivation produces symmetric keys only", types.ErrNotSupported)
	}
	if err := types.ValidateKeySize(keyType, bits); err != nil {
		return err
	}

	material, err := g.readLocked(bits / 8)
	if err != nil {
		return err
	}
	err = g.store.WriteMaterial(h, keyType, bits, material, types.SourceDerive)
	types.Zeroize(material)
	return err
}

// Abort zeroizes all input scratch and returns the generator to idle.
func (g *Generator) Abort() error {
	if err := g.guard.enter(); err != nil {
		return err
	}
	defer g.guard.leave()

	g.wipe()
	g.alg = types.AlgorithmNone
	g.agreement = false
	g.newHash = nil
	g.capacity = 0
	g.state = genIdle
	return nil
}

func (g *Generator) readLocked(n int) ([]byte, error) {
	if g.state != genInput && g.state != genReading {
		return nil, errSequence("generator is not set up")
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: negative read", types.ErrInvalidArgument)
	}
	if !g.secretSet {
		return nil, errSequence("no secret has been input")
	}
	if n > g.capacity {
		g.capacity = 0
		g.state = genReading
		return nil, fmt.Errorf("%w: %d bytes requested", types.ErrInsufficientCapacity, n)
	}

	if g.stream == nil {
		if g.agreement {
			g.stream = bytes.NewReader(g.secret)
		} else {
			g.stream = hkdf.New(g.newHash, g.secret, g.salt, g.info)
		}
	}
	g.state = genReading

	out := make([]byte, n)
	if _, err := io.ReadFull(g.stream, out); err != nil {
		g.wipe()
		g.state = genDone
		return nil, fmt.Errorf("derivation stream: %w", err)
	}
	g.capacity -= n
	return out, nil
}

func (g *Generator) feedLocked(step DerivationStep, data []byte) error {
	if g.agreement {
		return fmt.Errorf("%w: raw key agreement takes no byte inputs", types.ErrInvalidArgument)
	}

	switch step {
	case StepSalt:
		if g.secretSet {
			return errSequence("salt after secret")
		}
		if g.saltSet {
			return errSequence("salt already input")
		}
		g.salt = append([]byte(nil), data...)
		g.saltSet = true
	case StepSecret:
		if g.secretSet {
			return errSequence("secret already input")
		}
		g.secret = append([]byte(nil), data...)
		g.secretSet = true
	case StepInfo:
		if g.infoSet {
			return errSequence("info already input")
		}
		g.info = append([]byte(nil), data...)
		g.infoSet = true
	case StepLabel, StepSeed:
		return fmt.Errorf("%w: step %q is not used by %s", types.ErrInvalidArgument, step, g.alg)
	default:
		return fmt.Errorf("%w: unknown derivation step %q", types.ErrInvalidArgument, step)
	}
	return nil
}

func (g *Generator) wipe() {
	types.Zeroize(g.salt)
	types.Zeroize(g.secret)
	types.Zeroize(g.info)
	g.salt, g.secret, g.info = nil, nil, nil
	g.saltSet, g.secretSet, g.infoSet = false, false, false
	g.stream = nil
}

// hkdfHash maps an HKDF algorithm to its hash constructor.
func hkdfHash(alg types.Algorithm) (func() hash.Hash, error) {
	switch alg.HashComponent() {
	case types.AlgorithmSHA256:
		return sha256.New, nil
	case types.AlgorithmSHA384:
		return sha512.New384, nil
	case types.AlgorithmSHA512:
		return sha512.New, nil
	}
	return nil, fmt.Errorf("%w: %q", types.ErrNotSupported, alg)
}
