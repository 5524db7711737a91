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

package types

import "fmt"

// Standard RSA key sizes accepted for generation.
const (
	// RSAKeySize2048 is 2048-bit RSA (minimum recommended).
	RSAKeySize2048 = 2048

	// RSAKeySize3072 is 3072-bit RSA.
	RSAKeySize3072 = 3072

	// RSAKeySize4096 is 4096-bit RSA.
	RSAKeySize4096 = 4096
)

// Standard AES key sizes in bits.
const (
	// AESKeySize128 is 128-bit AES.
	AESKeySize128 = 128

	// AESKeySize192 is 192-bit AES.
	AESKeySize192 = 192

	// AESKeySize256 is 256-bit AES (recommended).
	AESKeySize256 = 256
)

// maxRawKeyBits bounds unstructured key material.
const maxRawKeyBits = 65528

// ValidateKeySize checks that bits is a legal size for the key type.
func ValidateKeySize(t KeyType, bits int) error {
	switch t {
	case KeyTypeRawData, KeyTypeDerive:
		if bits <= 0 || bits%8 != 0 || bits > maxRawKeyBits {
			return fmt.Errorf("%w: %s key size %d bits", ErrInvalidArgument, t, bits)
		}
	case KeyTypeHMAC:
		if bits < 8 || bits%8 != 0 || bits > 8192 {
			return fmt.Errorf("%w: HMAC key size %d bits", ErrInvalidArgument, bits)
		}
	case KeyTypeAES:
		if bits != AESKeySize128 && bits != AESKeySize192 && bits != AESKeySize256 {
			return fmt.Errorf("%w: AES key size %d bits", ErrInvalidArgument, bits)
		}
	case KeyTypeChaCha20:
		if bits != 256 {
			return fmt.Errorf("%w: ChaCha20 key size %d bits", ErrInvalidArgument, bits)
		}
	case KeyTypeRSAKeyPair, KeyTypeRSAPublicKey:
		if bits < 1024 || bits > 8192 {
			return fmt.Errorf("%w: RSA key size %d bits", ErrInvalidArgument, bits)
		}
	case KeyTypeECCKeyPair, KeyTypeECCPublicKey:
		if CurveFromBits(bits) == CurveNone {
			return fmt.Errorf("%w: no supported curve for %d-bit ECC key", ErrNotSupported, bits)
		}
	default:
		return fmt.Errorf("%w: key type %q", ErrNotSupported, t)
	}
	return nil
}

// KeyTypeSupportsAlgorithm reports whether a key of type t can legally be
// exercised with algorithm a. This is a shape check, not a policy check:
// it pairs algorithm families with the key material they operate on.
func KeyTypeSupportsAlgorithm(t KeyType, a Algorithm) bool {
	switch {
	case a.IsHash():
		// Hashes are keyless.
		return false
	case a == AlgorithmAESCMAC:
		return t == KeyTypeAES
	case a.IsMAC():
		return t == KeyTypeHMAC
	case a == AlgorithmChaCha20:
		return t == KeyTypeChaCha20
	case a.IsCipher():
		return t == KeyTypeAES
	case a == AlgorithmChaCha20Poly1305:
		return t == KeyTypeChaCha20
	case a.IsAEAD():
		return t == KeyTypeAES
	case a.IsSignature():
		if a.IsECDSA() {
			return t == KeyTypeECCKeyPair || t == KeyTypeECCPublicKey
		}
		return t == KeyTypeRSAKeyPair || t == KeyTypeRSAPublicKey
	case a.IsAsymmetricEncryption():
		return t == KeyTypeRSAKeyPair || t == KeyTypeRSAPublicKey
	case a.IsKeyDerivation():
		return t == KeyTypeDerive
	case a.IsKeyAgreement():
		return t == KeyTypeECCKeyPair
	}
	return false
}

// SignatureSize returns the signature length in bytes produced by a key of
// the given type and size: raw r‖s for ECDSA (two curve-size halves), the
// modulus length for RSA. Returns 0 for non-signing types.
func SignatureSize(t KeyType, bits int) int {
	switch t {
	case KeyTypeECCKeyPair, KeyTypeECCPublicKey:
		return 2 * ((bits + 7) / 8)
	case KeyTypeRSAKeyPair, KeyTypeRSAPublicKey:
		return (bits + 7) / 8
	}
	return 0
}

// SharedSecretSize returns the raw ECDH shared secret length in bytes for
// a curve.
func SharedSecretSize(c EllipticCurve) int {
	switch c {
	case CurveP256:
		return 32
	case CurveP384:
		return 48
	case CurveP521:
		return 66
	case CurveX25519:
		return 32
	}
	return 0
}
