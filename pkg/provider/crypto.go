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

package provider

import (
	"fmt"

	"github.com/AndrzejKurek/pelion-crypto/pkg/backend"
	"github.com/AndrzejKurek/pelion-crypto/pkg/keystore"
	"github.com/AndrzejKurek/pelion-crypto/pkg/metrics"
	"github.com/AndrzejKurek/pelion-crypto/pkg/operation"
	"github.com/AndrzejKurek/pelion-crypto/pkg/types"
)

// The single-shot entry points below are conveniences over the multi-part
// operations: each one drives a fresh operation through its full setup/
// update/finish sequence, so single-shot and multi-part use of the same
// algorithm produce identical results and identical errors.

// HashCompute hashes a complete message in one call.
func (p *Provider) HashCompute(alg types.Algorithm, message []byte) ([]byte, error) {
	_, b, err := p.session()
	if err != nil {
		return nil, err
	}
	var out []byte
	err = metrics.Observe(metrics.OpHash, func() error {
		var hashErr error
		out, hashErr = hashCompute(b, alg, message)
		return hashErr
	})
	return out, err
}

// HashCompare hashes a complete message and compares the result against an
// expected digest in constant time. Returns ErrInvalidSignature on mismatch.
func (p *Provider) HashCompare(alg types.Algorithm, message, expected []byte) error {
	_, b, err := p.session()
	if err != nil {
		return err
	}
	return metrics.Observe(metrics.OpHash, func() error {
		return hashCompare(b, alg, message, expected)
	})
}

// MACCompute authenticates a complete message in one call.
func (p *Provider) MACCompute(handle types.Handle, alg types.Algorithm, message []byte) ([]byte, error) {
	s, b, err := p.session()
	if err != nil {
		return nil, err
	}
	var out []byte
	err = metrics.Observe(metrics.OpMAC, func() error {
		var macErr error
		out, macErr = macCompute(s, b, handle, alg, message)
		return macErr
	})
	return out, err
}

// MACVerify authenticates a complete message and compares the result
// against an expected MAC in constant time.
func (p *Provider) MACVerify(handle types.Handle, alg types.Algorithm, message, mac []byte) error {
	s, b, err := p.session()
	if err != nil {
		return err
	}
	return metrics.Observe(metrics.OpMAC, func() error {
		return macVerify(s, b, handle, alg, message, mac)
	})
}

// CipherEncrypt encrypts a complete message with a freshly generated IV and
// returns the IV prepended to the ciphertext.
func (p *Provider) CipherEncrypt(handle types.Handle, alg types.Algorithm, plaintext []byte) ([]byte, error) {
	s, b, err := p.session()
	if err != nil {
		return nil, err
	}
	var out []byte
	err = metrics.Observe(metrics.OpCipherEncrypt, func() error {
		var encErr error
		out, encErr = cipherEncrypt(s, b, handle, alg, plaintext)
		return encErr
	})
	return out, err
}

// CipherDecrypt decrypts a message produced by CipherEncrypt: the IV is
// taken from the front of the input.
func (p *Provider) CipherDecrypt(handle types.Handle, alg types.Algorithm, input []byte) ([]byte, error) {
	s, b, err := p.session()
	if err != nil {
		return nil, err
	}
	var out []byte
	err = metrics.Observe(metrics.OpCipherDecrypt, func() error {
		var decErr error
		out, decErr = cipherDecrypt(s, b, handle, alg, input)
		return decErr
	})
	return out, err
}

// AEADEncrypt seals a complete message under a caller-chosen nonce and
// returns the ciphertext with the tag appended.
func (p *Provider) AEADEncrypt(handle types.Handle, alg types.Algorithm, nonce, additionalData, plaintext []byte) ([]byte, error) {
	s, b, err := p.session()
	if err != nil {
		return nil, err
	}
	var out []byte
	err = metrics.Observe(metrics.OpAEADEncrypt, func() error {
		var sealErr error
		out, sealErr = aeadEncrypt(s, b, handle, alg, nonce, additionalData, plaintext)
		return sealErr
	})
	return out, err
}

// AEADDecrypt opens a message produced by AEADEncrypt: the tag is taken
// from the end of the ciphertext. No plaintext is released on
// authentication failure.
func (p *Provider) AEADDecrypt(handle types.Handle, alg types.Algorithm, nonce, additionalData, ciphertext []byte) ([]byte, error) {
	s, b, err := p.session()
	if err != nil {
		return nil, err
	}
	var out []byte
	err = metrics.Observe(metrics.OpAEADDecrypt, func() error {
		var openErr error
		out, openErr = aeadDecrypt(s, b, handle, alg, nonce, additionalData, ciphertext)
		return openErr
	})
	return out, err
}

// Sign produces a signature over a precomputed digest with the key in the
// slot. The digest length must match the hash the algorithm names.
func (p *Provider) Sign(handle types.Handle, alg types.Algorithm, digest []byte) ([]byte, error) {
	s, b, err := p.session()
	if err != nil {
		return nil, err
	}
	var sig []byte
	err = metrics.Observe(metrics.OpSign, func() error {
		var signErr error
		sig, signErr = signDigest(s, b, handle, alg, digest)
		return signErr
	})
	return sig, err
}

// Verify checks a signature over a precomputed digest. Returns
// ErrInvalidSignature on mismatch.
func (p *Provider) Verify(handle types.Handle, alg types.Algorithm, digest, signature []byte) error {
	s, b, err := p.session()
	if err != nil {
		return err
	}
	return metrics.Observe(metrics.OpVerify, func() error {
		return verifyDigest(s, b, handle, alg, digest, signature)
	})
}

// AsymmetricEncrypt encrypts a short message to the public key in the
// slot. The label is OAEP-only and may be nil.
func (p *Provider) AsymmetricEncrypt(handle types.Handle, alg types.Algorithm, plaintext, label []byte) ([]byte, error) {
	s, b, err := p.session()
	if err != nil {
		return nil, err
	}
	var out []byte
	err = metrics.Observe(metrics.OpAsymEncrypt, func() error {
		var encErr error
		out, encErr = asymmetricEncrypt(s, b, handle, alg, plaintext, label)
		return encErr
	})
	return out, err
}

// AsymmetricDecrypt reverses AsymmetricEncrypt with the private key in the
// slot. Returns ErrInvalidPadding when the ciphertext does not decrypt.
func (p *Provider) AsymmetricDecrypt(handle types.Handle, alg types.Algorithm, ciphertext, label []byte) ([]byte, error) {
	s, b, err := p.session()
	if err != nil {
		return nil, err
	}
	var out []byte
	err = metrics.Observe(metrics.OpAsymDecrypt, func() error {
		var decErr error
		out, decErr = asymmetricDecrypt(s, b, handle, alg, ciphertext, label)
		return decErr
	})
	return out, err
}

// RawKeyAgreement computes the raw shared secret between the private key
// in the slot and a peer public key, without feeding it through a
// derivation. Most callers want Generator.KeyAgreement instead.
func (p *Provider) RawKeyAgreement(alg types.Algorithm, handle types.Handle, peerPublic []byte) ([]byte, error) {
	s, b, err := p.session()
	if err != nil {
		return nil, err
	}
	var out []byte
	err = metrics.Observe(metrics.OpKeyAgreement, func() error {
		var agreeErr error
		out, agreeErr = rawKeyAgreement(s, b, alg, handle, peerPublic)
		return agreeErr
	})
	return out, err
}

// GenerateRandom returns n cryptographically secure random bytes.
func (p *Provider) GenerateRandom(n int) ([]byte, error) {
	_, b, err := p.session()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: negative length %d", types.ErrInvalidArgument, n)
	}
	var out []byte
	err = metrics.Observe(metrics.OpRandom, func() error {
		var randErr error
		out, randErr = b.Random(n)
		return randErr
	})
	if err != nil {
		return nil, err
	}
	metrics.AddRandomBytes(n)
	return out, nil
}

func hashCompute(b backend.Primitive, alg types.Algorithm, message []byte) ([]byte, error) {
	op := operation.NewHash(b)
	defer op.Abort()
	if err := op.Setup(alg); err != nil {
		return nil, err
	}
	if err := op.Update(message); err != nil {
		return nil, err
	}
	return op.Finish()
}

func hashCompare(b backend.Primitive, alg types.Algorithm, message, expected []byte) error {
	op := operation.NewHash(b)
	defer op.Abort()
	if err := op.Setup(alg); err != nil {
		return err
	}
	if err := op.Update(message); err != nil {
		return err
	}
	return op.Verify(expected)
}

func macCompute(s *keystore.Store, b backend.Primitive, handle types.Handle, alg types.Algorithm, message []byte) ([]byte, error) {
	op := operation.NewMAC(s, b)
	defer op.Abort()
	if err := op.SetupSign(handle, alg); err != nil {
		return nil, err
	}
	if err := op.Update(message); err != nil {
		return nil, err
	}
	return op.SignFinish()
}

func macVerify(s *keystore.Store, b backend.Primitive, handle types.Handle, alg types.Algorithm, message, mac []byte) error {
	op := operation.NewMAC(s, b)
	defer op.Abort()
	if err := op.SetupVerify(handle, alg); err != nil {
		return err
	}
	if err := op.Update(message); err != nil {
		return err
	}
	return op.VerifyFinish(mac)
}

func cipherEncrypt(s *keystore.Store, b backend.Primitive, handle types.Handle, alg types.Algorithm, plaintext []byte) ([]byte, error) {
	op := operation.NewCipher(s, b)
	defer op.Abort()
	if err := op.SetupEncrypt(handle, alg); err != nil {
		return nil, err
	}
	iv, err := op.GenerateIV()
	if err != nil {
		return nil, err
	}
	out := append([]byte(nil), iv...)
	chunk, err := op.Update(plaintext)
	if err != nil {
		return nil, err
	}
	out = append(out, chunk...)
	final, err := op.Finish()
	if err != nil {
		return nil, err
	}
	return append(out, final...), nil
}

func cipherDecrypt(s *keystore.Store, b backend.Primitive, handle types.Handle, alg types.Algorithm, input []byte) ([]byte, error) {
	op := operation.NewCipher(s, b)
	defer op.Abort()
	if err := op.SetupDecrypt(handle, alg); err != nil {
		return nil, err
	}
	ivLen := alg.IVSize()
	if len(input) < ivLen {
		return nil, fmt.Errorf("%w: input shorter than the %d-byte IV", types.ErrInvalidArgument, ivLen)
	}
	if err := op.SetIV(input[:ivLen]); err != nil {
		return nil, err
	}
	chunk, err := op.Update(input[ivLen:])
	if err != nil {
		return nil, err
	}
	final, err := op.Finish()
	if err != nil {
		return nil, err
	}
	return append(chunk, final...), nil
}

func aeadEncrypt(s *keystore.Store, b backend.Primitive, handle types.Handle, alg types.Algorithm, nonce, additionalData, plaintext []byte) ([]byte, error) {
	op := operation.NewAEAD(s, b)
	defer op.Abort()
	if err := op.SetupEncrypt(handle, alg); err != nil {
		return nil, err
	}
	if err := op.SetLengths(len(additionalData), len(plaintext)); err != nil {
		return nil, err
	}
	if err := op.SetNonce(nonce); err != nil {
		return nil, err
	}
	if len(additionalData) > 0 {
		if err := op.UpdateAD(additionalData); err != nil {
			return nil, err
		}
	}
	if len(plaintext) > 0 {
		if _, err := op.Update(plaintext); err != nil {
			return nil, err
		}
	}
	return op.Finish()
}

func aeadDecrypt(s *keystore.Store, b backend.Primitive, handle types.Handle, alg types.Algorithm, nonce, additionalData, ciphertext []byte) ([]byte, error) {
	op := operation.NewAEAD(s, b)
	defer op.Abort()
	if err := op.SetupDecrypt(handle, alg); err != nil {
		return nil, err
	}
	tagLen := alg.TagSize()
	if len(ciphertext) < tagLen {
		return nil, fmt.Errorf("%w: input shorter than the %d-byte tag", types.ErrInvalidArgument, tagLen)
	}
	body := ciphertext[:len(ciphertext)-tagLen]
	tag := ciphertext[len(ciphertext)-tagLen:]
	if err := op.SetLengths(len(additionalData), len(body)); err != nil {
		return nil, err
	}
	if err := op.SetNonce(nonce); err != nil {
		return nil, err
	}
	if len(additionalData) > 0 {
		if err := op.UpdateAD(additionalData); err != nil {
			return nil, err
		}
	}
	if len(body) > 0 {
		if _, err := op.Update(body); err != nil {
			return nil, err
		}
	}
	return op.Verify(tag)
}

func signDigest(s *keystore.Store, b backend.Primitive, handle types.Handle, alg types.Algorithm, digest []byte) ([]byte, error) {
	if !alg.IsSignature() {
		return nil, fmt.Errorf("%w: %s is not a signature algorithm", types.ErrNotSupported, alg)
	}
	if alg.IsWildcard() {
		return nil, fmt.Errorf("%w: wildcard algorithm %s", types.ErrInvalidArgument, alg)
	}
	if n := alg.HashComponent().HashSize(); n > 0 && len(digest) != n {
		return nil, fmt.Errorf("%w: digest length %d does not match %s", types.ErrInvalidArgument, len(digest), alg.HashComponent())
	}
	ref, err := s.AcquireKey(handle, types.UsageSign, alg)
	if err != nil {
		return nil, err
	}
	defer ref.Release()
	material, err := ref.Material()
	if err != nil {
		return nil, err
	}
	return b.Sign(alg, ref.KeyType(), material, digest)
}

func verifyDigest(s *keystore.Store, b backend.Primitive, handle types.Handle, alg types.Algorithm, digest, signature []byte) error {
	if !alg.IsSignature() {
		return fmt.Errorf("%w: %s is not a signature algorithm", types.ErrNotSupported, alg)
	}
	if alg.IsWildcard() {
		return fmt.Errorf("%w: wildcard algorithm %s", types.ErrInvalidArgument, alg)
	}
	if n := alg.HashComponent().HashSize(); n > 0 && len(digest) != n {
		return fmt.Errorf("%w: digest length %d does not match %s", types.ErrInvalidArgument, len(digest), alg.HashComponent())
	}
	ref, err := s.AcquireKey(handle, types.UsageVerify, alg)
	if err != nil {
		return err
	}
	defer ref.Release()
	material, err := ref.Material()
	if err != nil {
		return err
	}
	return b.Verify(alg, ref.KeyType(), material, digest, signature)
}

func asymmetricEncrypt(s *keystore.Store, b backend.Primitive, handle types.Handle, alg types.Algorithm, plaintext, label []byte) ([]byte, error) {
	if !alg.IsAsymmetricEncryption() {
		return nil, fmt.Errorf("%w: %s is not an asymmetric encryption algorithm", types.ErrNotSupported, alg)
	}
	ref, err := s.AcquireKey(handle, types.UsageEncrypt, alg)
	if err != nil {
		return nil, err
	}
	defer ref.Release()
	material, err := ref.Material()
	if err != nil {
		return nil, err
	}
	return b.AsymmetricEncrypt(alg, ref.KeyType(), material, plaintext, label)
}

func asymmetricDecrypt(s *keystore.Store, b backend.Primitive, handle types.Handle, alg types.Algorithm, ciphertext, label []byte) ([]byte, error) {
	if !alg.IsAsymmetricEncryption() {
		return nil, fmt.Errorf("%w: %s is not an asymmetric encryption algorithm", types.ErrNotSupported, alg)
	}
	ref, err := s.AcquireKey(handle, types.UsageDecrypt, alg)
	if err != nil {
		return nil, err
	}
	defer ref.Release()
	material, err := ref.Material()
	if err != nil {
		return nil, err
	}
	return b.AsymmetricDecrypt(alg, ref.KeyType(), material, ciphertext, label)
}

func rawKeyAgreement(s *keystore.Store, b backend.Primitive, alg types.Algorithm, handle types.Handle, peerPublic []byte) ([]byte, error) {
	if !alg.IsKeyAgreement() {
		return nil, fmt.Errorf("%w: %s is not a key agreement algorithm", types.ErrNotSupported, alg)
	}
	ref, err := s.AcquireKey(handle, types.UsageDerive, alg)
	if err != nil {
		return nil, err
	}
	defer ref.Release()
	material, err := ref.Material()
	if err != nil {
		return nil, err
	}
	return b.RawAgreement(alg, ref.KeyType(), material, peerPublic)
}
