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
	"crypto"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"fmt"
	"math/big"

	"github.com/AndrzejKurek/pelion-crypto/pkg/types"
)

// Sign produces a signature over a precomputed digest.
func (b *Backend) Sign(alg types.Algorithm, keyType types.KeyType, key, digest []byte) ([]byte, error) {
	if err := checkDigestLength(alg, digest); err != nil {
		return nil, err
	}

	switch {
	case alg.IsECDSA():
		priv, err := parseECDSAPrivate(keyType, key)
		if err != nil {
			return nil, err
		}
		r, s, err := ecdsa.Sign(rand.Reader, priv, digest)
		if err != nil {
			return nil, fmt.Errorf("ECDSA sign: %w", err)
		}
		return encodeRawSignature(priv.Curve.Params().BitSize, r, s), nil

	case alg.IsRSAPSS():
		priv, err := parseRSAPrivate(keyType, key)
		if err != nil {
			return nil, err
		}
		sig, err := rsa.SignPSS(rand.Reader, priv, alg.CryptoHash(), digest, &rsa.PSSOptions{
			SaltLength: rsa.PSSSaltLengthEqualsHash,
		})
		if err != nil {
			return nil, fmt.Errorf("RSA-PSS sign: %w", err)
		}
		return sig, nil

	case alg.IsRSAPKCS1v15Signature():
		if err := checkPKCS1v15Hash(alg); err != nil {
			return nil, err
		}
		priv, err := parseRSAPrivate(keyType, key)
		if err != nil {
			return nil, err
		}
		sig, err := rsa.SignPKCS1v15(rand.Reader, priv, alg.CryptoHash(), digest)
		if err != nil {
			return nil, fmt.Errorf("RSA PKCS#1 v1.5 sign: %w", err)
		}
		return sig, nil

	default:
		return nil, fmt.Errorf("%w: signature algorithm %q", types.ErrNotSupported, alg)
	}
}

// Verify checks a signature over a precomputed digest.
func (b *Backend) Verify(alg types.Algorithm, keyType types.KeyType, key, digest, signature []byte) error {
	if err := checkDigestLength(alg, digest); err != nil {
		return err
	}

	switch {
	case alg.IsECDSA():
		pub, err := parseECDSAPublic(keyType, key)
		if err != nil {
			return err
		}
		size := (pub.Curve.Params().BitSize + 7) / 8
		if len(signature) != 2*size {
			return types.ErrInvalidSignature
		}
		r := new(big.Int).SetBytes(signature[:size])
		s := new(big.Int).SetBytes(signature[size:])
		if !ecdsa.Verify(pub, digest, r, s) {
			return types.ErrInvalidSignature
		}
		return nil

	case alg.IsRSAPSS():
		pub, err := parseRSAPublic(keyType, key)
		if err != nil {
			return err
		}
		if err := rsa.VerifyPSS(pub, alg.CryptoHash(), digest, signature, &rsa.PSSOptions{
			SaltLength: rsa.PSSSaltLengthEqualsHash,
		}); err != nil {
			return types.ErrInvalidSignature
		}
		return nil

	case alg.IsRSAPKCS1v15Signature():
		if err := checkPKCS1v15Hash(alg); err != nil {
			return err
		}
		pub, err := parseRSAPublic(keyType, key)
		if err != nil {
			return err
		}
		if err := rsa.VerifyPKCS1v15(pub, alg.CryptoHash(), digest, signature); err != nil {
			return types.ErrInvalidSignature
		}
		return nil

	default:
		return fmt.Errorf("%w: signature algorithm %q", types.ErrNotSupported, alg)
	}
}

// AsymmetricEncrypt encrypts a short message to the key's public half.
func (b *Backend) AsymmetricEncrypt(alg types.Algorithm, keyType types.KeyType, key, plaintext, label []byte) ([]byte, error) {
	pub, err := parseRSAPublic(keyType, key)
	if err != nil {
		return nil, err
	}

	switch {
	case alg.IsRSAOAEP():
		h, err := newDigest(alg.HashComponent())
		if err != nil {
			return nil, err
		}
		ct, err := rsa.EncryptOAEP(h, rand.Reader, pub, plaintext, label)
		if err != nil {
			return nil, fmt.Errorf("%w: OAEP encrypt: %v", types.ErrInvalidArgument, err)
		}
		return ct, nil

	case alg == types.AlgorithmRSAPKCS1v15Crypt:
		if len(label) > 0 {
			return nil, fmt.Errorf("%w: PKCS#1 v1.5 encryption takes no label", types.ErrInvalidArgument)
		}
		ct, err := rsa.EncryptPKCS1v15(rand.Reader, pub, plaintext)
		if err != nil {
			return nil, fmt.Errorf("%w: PKCS#1 v1.5 encrypt: %v", types.ErrInvalidArgument, err)
		}
		return ct, nil

	default:
		return nil, fmt.Errorf("%w: asymmetric encryption algorithm %q", types.ErrNotSupported, alg)
	}
}

// AsymmetricDecrypt reverses AsymmetricEncrypt with the private key.
func (b *Backend) AsymmetricDecrypt(alg types.Algorithm, keyType types.KeyType, key, ciphertext, label []byte) ([]byte, error) {
	priv, err := parseRSAPrivate(keyType, key)
	if err != nil {
		return nil, err
	}

	switch {
	case alg.IsRSAOAEP():
		h, err := newDigest(alg.HashComponent())
		if err != nil {
			return nil, err
		}
		pt, err := rsa.DecryptOAEP(h, rand.Reader, priv, ciphertext, label)
		if err != nil {
			return nil, types.ErrInvalidPadding
		}
		return pt, nil

	case alg == types.AlgorithmRSAPKCS1v15Crypt:
		if len(label) > 0 {
			return nil, fmt.Errorf("%w: PKCS#1 v1.5 encryption takes no label", types.ErrInvalidArgument)
		}
		pt, err := rsa.DecryptPKCS1v15(rand.Reader, priv, ciphertext)
		if err != nil {
			return nil, types.ErrInvalidPadding
		}
		return pt, nil

	default:
		return nil, fmt.Errorf("%w: asymmetric encryption algorithm %q", types.ErrNotSupported, alg)
	}
}

// ExportPublic derives the PKIX-encoded public half from key material.
func (b *Backend) ExportPublic(keyType types.KeyType, material []byte) ([]byte, error) {
	switch keyType {
	case types.KeyTypeRSAPublicKey, types.KeyTypeECCPublicKey:
		out := make([]byte, len(material))
		copy(out, material)
		return out, nil

	case types.KeyTypeRSAKeyPair, types.KeyTypeECCKeyPair:
		priv, err := x509.ParsePKCS8PrivateKey(material)
		if err != nil {
			return nil, fmt.Errorf("%w: key material does not decode: %v", types.ErrInvalidArgument, err)
		}
		signer, ok := priv.(interface{ Public() crypto.PublicKey })
		if !ok {
			return nil, fmt.Errorf("%w: key material has no public half", types.ErrInvalidArgument)
		}
		der, err := x509.MarshalPKIXPublicKey(signer.Public())
		if err != nil {
			return nil, fmt.Errorf("public key encode: %w", err)
		}
		return der, nil

	default:
		return nil, fmt.Errorf("%w: key type %q has no public half", types.ErrInvalidArgument, keyType)
	}
}

// checkDigestLength rejects digests that do not match the algorithm's hash.
func checkDigestLength(alg types.Algorithm, digest []byte) error {
	size := alg.HashSize()
	if size == 0 {
		return fmt.Errorf("%w: algorithm %q has no hash component", types.ErrInvalidArgument, alg)
	}
	if len(digest) != size {
		return fmt.Errorf("%w: digest length %d for %s", types.ErrInvalidArgument, len(digest), alg)
	}
	return nil
}

// checkPKCS1v15Hash rejects hashes the PKCS#1 v1.5 DigestInfo encoding has
// no prefix for in crypto/rsa.
func checkPKCS1v15Hash(alg types.Algorithm) error {
	switch alg.CryptoHash() {
	case crypto.MD5, crypto.SHA1, crypto.SHA224, crypto.SHA256, crypto.SHA384, crypto.SHA512:
		return nil
	}
	return fmt.Errorf("%w: PKCS#1 v1.5 signing with %s", types.ErrNotSupported, alg.HashComponent())
}

// encodeRawSignature encodes an ECDSA signature as r||s with both halves
// padded to the curve size.
func encodeRawSignature(bits int, r, s *big.Int) []byte {
	size := (bits + 7) / 8
	sig := make([]byte, 2*size)
	r.FillBytes(sig[:size])
	s.FillBytes(sig[size:])
	return sig
}

// parseRSAPrivate decodes PKCS#8 RSA private key material.
func parseRSAPrivate(keyType types.KeyType, material []byte) (*rsa.PrivateKey, error) {
	if keyType != types.KeyTypeRSAKeyPair {
		return nil, fmt.Errorf("%w: key type %q is not an RSA key pair", types.ErrInvalidArgument, keyType)
	}
	priv, err := x509.ParsePKCS8PrivateKey(material)
	if err != nil {
		return nil, fmt.Errorf("%w: key material does not decode: %v", types.ErrInvalidArgument, err)
	}
	rsaPriv, ok := priv.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: key material is not RSA", types.ErrInvalidArgument)
	}
	return rsaPriv, nil
}

// parseRSAPublic accepts either an RSA key pair (using its public half) or
// PKIX public key material.
func parseRSAPublic(keyType types.KeyType, material []byte) (*rsa.PublicKey, error) {
	switch keyType {
	case types.KeyTypeRSAKeyPair:
		priv, err := parseRSAPrivate(keyType, material)
		if err != nil {
			return nil, err
		}
		return &priv.PublicKey, nil
	case types.KeyTypeRSAPublicKey:
		pub, err := x509.ParsePKIXPublicKey(material)
		if err != nil {
			return nil, fmt.Errorf("%w: key material does not decode: %v", types.ErrInvalidArgument, err)
		}
		rsaPub, ok := pub.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("%w: key material is not RSA", types.ErrInvalidArgument)
		}
		return rsaPub, nil
	default:
		return nil, fmt.Errorf("%w: key type %q is not RSA", types.ErrInvalidArgument, keyType)
	}
}

// parseECDSAPrivate decodes PKCS#8 ECDSA private key material. X25519 keys
// decode but cannot sign.
func parseECDSAPrivate(keyType types.KeyType, material []byte) (*ecdsa.PrivateKey, error) {
	if keyType != types.KeyTypeECCKeyPair {
		return nil, fmt.Errorf("%w: key type %q is not an ECC key pair", types.ErrInvalidArgument, keyType)
	}
	priv, err := x509.ParsePKCS8PrivateKey(material)
	if err != nil {
		return nil, fmt.Errorf("%w: key material does not decode: %v", types.ErrInvalidArgument, err)
	}
	ecPriv, ok := priv.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: key material cannot sign", types.ErrInvalidArgument)
	}
	return ecPriv, nil
}

// parseECDSAPublic accepts either an ECC key pair (using its public half)
// or PKIX public key material.
func parseECDSAPublic(keyType types.KeyType, material []byte) (*ecdsa.PublicKey, error) {
	switch keyType {
	case types.KeyTypeECCKeyPair:
		priv, err := parseECDSAPrivate(keyType, material)
		if err != nil {
			return nil, err
		}
		return &priv.PublicKey, nil
	case types.KeyTypeECCPublicKey:
		pub, err := x509.ParsePKIXPublicKey(material)
		if err != nil {
			return nil, fmt.Errorf("%w: key material does not decode: %v", types.ErrInvalidArgument, err)
		}
		ecPub, ok := pub.(*ecdsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("%w: key material cannot verify signatures", types.ErrInvalidArgument)
		}
		return ecPub, nil
	default:
		return nil, fmt.Errorf("%w: key type %q is not ECC", types.ErrInvalidArgument, keyType)
	}
}

// ecdhPrivate decodes PKCS#8 material into a crypto/ecdh private key,
// converting NIST ECDSA keys as needed.
func ecdhPrivate(material []byte) (*ecdh.PrivateKey, error) {
	priv, err := x509.ParsePKCS8PrivateKey(material)
	if err != nil {
		return nil, fmt.Errorf("%w: key material does not decode: %v", types.ErrInvalidArgument, err)
	}
	switch k := priv.(type) {
	case *ecdh.PrivateKey:
		return k, nil
	case *ecdsa.PrivateKey:
		ek, err := k.ECDH()
		if err != nil {
			return nil, fmt.Errorf("%w: key cannot do ECDH: %v", types.ErrInvalidArgument, err)
		}
		return ek, nil
	default:
		return nil, fmt.Errorf("%w: key material cannot do ECDH", types.ErrInvalidArgument)
	}
}

// ecdhPublic decodes PKIX material into a crypto/ecdh public key.
func ecdhPublic(material []byte) (*ecdh.PublicKey, error) {
	pub, err := x509.ParsePKIXPublicKey(material)
	if err != nil {
		return nil, fmt.Errorf("%w: peer key does not decode: %v", types.ErrInvalidArgument, err)
	}
	switch k := pub.(type) {
	case *ecdh.PublicKey:
		return k, nil
	case *ecdsa.PublicKey:
		ek, err := k.ECDH()
		if err != nil {
			return nil, fmt.Errorf("%w: peer key cannot do ECDH: %v", types.ErrInvalidArgument, err)
		}
		return ek, nil
	default:
		return nil, fmt.Errorf("%w: peer key cannot do ECDH", types.ErrInvalidArgument)
	}
}
