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

// Package types defines the shared vocabulary of the provider: handles,
// lifetimes, key types, algorithms, usage flags, policies, and the error
// taxonomy. It has no dependencies on other provider packages so that every
// layer (storage, backend, keystore, operations, facade) can speak the same
// types without import cycles.
package types

import "strings"

// =============================================================================
// Handles
// =============================================================================

// Handle is an opaque reference to an open key slot. Zero is never a valid
// handle. A handle stays unique for as long as its slot is open; after
// Close or Destroy the value is permanently stale and rejected with
// ErrInvalidHandle. Slot indices are recycled under fresh generation tags,
// so a stale handle keeps failing even when its slot is reused. The
// generation counter is 16 bits wide; a slot recycled 65535 times could in
// principle re-issue an old value.
type Handle uint32

// NilHandle is the reserved "no handle" value.
const NilHandle Handle = 0

// IsNil reports whether the handle is the reserved zero value.
func (h Handle) IsNil() bool {
	return h == NilHandle
}

// =============================================================================
// Lifetimes
// =============================================================================

// Lifetime classifies where a key lives: volatile keys exist only in memory
// and vanish on Close; persistent keys are durably saved via the storage
// collaborator under a caller-chosen identifier.
type Lifetime string

const (
	// LifetimeVolatile is an in-memory key destroyed when its slot closes.
	LifetimeVolatile Lifetime = "volatile"

	// LifetimePersistent is a key durably saved under a KeyID.
	LifetimePersistent Lifetime = "persistent"
)

// String returns the string representation.
func (l Lifetime) String() string {
	return string(l)
}

// IsValid returns true for a recognized lifetime.
func (l Lifetime) IsValid() bool {
	return l == LifetimeVolatile || l == LifetimePersistent
}

// KeyID identifies a persistent key within its lifetime. Zero is reserved
// and never valid for callers.
type KeyID uint32

// =============================================================================
// Key Types
// =============================================================================

// KeyType tags the kind of material a slot holds.
type KeyType string

const (
	// KeyTypeNone is the zero value of KeyType.
	KeyTypeNone KeyType = ""

	// KeyTypeRawData is unstructured secret bytes (not usable as a cipher key).
	KeyTypeRawData KeyType = "RAW"

	// KeyTypeDerive is secret input material for key derivation.
	KeyTypeDerive KeyType = "DERIVE"

	// KeyTypeHMAC is an HMAC secret key.
	KeyTypeHMAC KeyType = "HMAC"

	// KeyTypeAES is an AES key (128, 192, or 256 bits).
	KeyTypeAES KeyType = "AES"

	// KeyTypeChaCha20 is a ChaCha20 key (256 bits).
	KeyTypeChaCha20 KeyType = "ChaCha20"

	// KeyTypeRSAKeyPair is an RSA private key with its public half.
	KeyTypeRSAKeyPair KeyType = "RSA-KEYPAIR"

	// KeyTypeRSAPublicKey is an RSA public key only.
	KeyTypeRSAPublicKey KeyType = "RSA-PUBLIC"

	// KeyTypeECCKeyPair is an elliptic-curve private key with its public half.
	// The curve is implied by the bit size, see CurveFromBits.
	KeyTypeECCKeyPair KeyType = "ECC-KEYPAIR"

	// KeyTypeECCPublicKey is an elliptic-curve public key only.
	KeyTypeECCPublicKey KeyType = "ECC-PUBLIC"
)

// String returns the string representation.
func (t KeyType) String() string {
	return string(t)
}

// IsValid returns true for a recognized key type.
func (t KeyType) IsValid() bool {
	switch t {
	case KeyTypeRawData, KeyTypeDerive, KeyTypeHMAC, KeyTypeAES, KeyTypeChaCha20,
		KeyTypeRSAKeyPair, KeyTypeRSAPublicKey, KeyTypeECCKeyPair, KeyTypeECCPublicKey:
		return true
	}
	return false
}

// IsSymmetric returns true for unstructured or symmetric-cipher key types.
func (t KeyType) IsSymmetric() bool {
	switch t {
	case KeyTypeRawData, KeyTypeDerive, KeyTypeHMAC, KeyTypeAES, KeyTypeChaCha20:
		return true
	}
	return false
}

// IsAsymmetric returns true for public-key material of either half.
func (t KeyType) IsAsymmetric() bool {
	return t.IsKeyPair() || t.IsPublic()
}

// IsKeyPair returns true when the type carries a private key.
func (t KeyType) IsKeyPair() bool {
	return t == KeyTypeRSAKeyPair || t == KeyTypeECCKeyPair
}

// IsPublic returns true for public-only key types.
func (t KeyType) IsPublic() bool {
	return t == KeyTypeRSAPublicKey || t == KeyTypeECCPublicKey
}

// PublicVariant maps a key pair type to its public-only counterpart.
// Public types map to themselves; everything else maps to KeyTypeNone.
func (t KeyType) PublicVariant() KeyType {
	switch t {
	case KeyTypeRSAKeyPair, KeyTypeRSAPublicKey:
		return KeyTypeRSAPublicKey
	case KeyTypeECCKeyPair, KeyTypeECCPublicKey:
		return KeyTypeECCPublicKey
	}
	return KeyTypeNone
}

// ParseKeyType converts a string to a KeyType.
func ParseKeyType(s string) KeyType {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "_", "-")
	switch s {
	case "RAW", "RAW-DATA":
		return KeyTypeRawData
	case "DERIVE":
		return KeyTypeDerive
	case "HMAC":
		return KeyTypeHMAC
	case "AES":
		return KeyTypeAES
	case "CHACHA20":
		return KeyTypeChaCha20
	case "RSA-KEYPAIR":
		return KeyTypeRSAKeyPair
	case "RSA-PUBLIC":
		return KeyTypeRSAPublicKey
	case "ECC-KEYPAIR", "EC-KEYPAIR":
		return KeyTypeECCKeyPair
	case "ECC-PUBLIC", "EC-PUBLIC":
		return KeyTypeECCPublicKey
	default:
		return KeyTypeNone
	}
}

// =============================================================================
// Elliptic Curves
// =============================================================================

// EllipticCurve identifies the curve of an ECC key. Curve names follow
// NIST conventions (P-256, P-384, P-521) plus X25519 for Curve25519.
type EllipticCurve string

const (
	// CurveNone is the zero value of EllipticCurve.
	CurveNone EllipticCurve = ""

	// CurveP256 is NIST P-256 (secp256r1).
	CurveP256 EllipticCurve = "P-256"

	// CurveP384 is NIST P-384 (secp384r1).
	CurveP384 EllipticCurve = "P-384"

	// CurveP521 is NIST P-521 (secp521r1).
	CurveP521 EllipticCurve = "P-521"

	// CurveX25519 is Curve25519 for key agreement.
	CurveX25519 EllipticCurve = "X25519"
)

// String returns the string representation.
func (c EllipticCurve) String() string {
	return string(c)
}

// IsValid returns true for a recognized curve.
func (c EllipticCurve) IsValid() bool {
	switch c {
	case CurveP256, CurveP384, CurveP521, CurveX25519:
		return true
	}
	return false
}

// Bits returns the curve's nominal key size in bits.
func (c EllipticCurve) Bits() int {
	switch c {
	case CurveP256:
		return 256
	case CurveP384:
		return 384
	case CurveP521:
		return 521
	case CurveX25519:
		return 255
	}
	return 0
}

// CurveFromBits maps an ECC key bit size back to its curve.
// Returns CurveNone for sizes that do not name a supported curve.
func CurveFromBits(bits int) EllipticCurve {
	switch bits {
	case 256:
		return CurveP256
	case 384:
		return CurveP384
	case 521:
		return CurveP521
	case 255:
		return CurveX25519
	}
	return CurveNone
}

// =============================================================================
// Usage Flags
// =============================================================================

// Usage is the bitmask of operations a key policy permits.
type Usage uint32

const (
	// UsageExport permits reading the key material out of the provider.
	UsageExport Usage = 1 << 0

	// UsageCopy permits duplicating the key into another slot.
	UsageCopy Usage = 1 << 1

	// UsageEncrypt permits encryption (cipher, AEAD, asymmetric).
	UsageEncrypt Usage = 1 << 2

	// UsageDecrypt permits decryption (cipher, AEAD, asymmetric).
	UsageDecrypt Usage = 1 << 3

	// UsageSign permits signing and MAC computation.
	UsageSign Usage = 1 << 4

	// UsageVerify permits signature and MAC verification.
	UsageVerify Usage = 1 << 5

	// UsageDerive permits use as key-derivation or key-agreement input.
	UsageDerive Usage = 1 << 6
)

// usageAll is the set of all defined usage bits.
const usageAll = UsageExport | UsageCopy | UsageEncrypt | UsageDecrypt |
	UsageSign | UsageVerify | UsageDerive

// Has reports whether every bit of u2 is present in u.
func (u Usage) Has(u2 Usage) bool {
	return u&u2 == u2
}

// IsValid returns true when no undefined bits are set.
func (u Usage) IsValid() bool {
	return u&^usageAll == 0
}

// String returns a pipe-separated list of the set flags.
func (u Usage) String() string {
	if u == 0 {
		return "none"
	}
	names := make([]string, 0, 7)
	for _, f := range []struct {
		bit  Usage
		name string
	}{
		{UsageExport, "export"},
		{UsageCopy, "copy"},
		{UsageEncrypt, "encrypt"},
		{UsageDecrypt, "decrypt"},
		{UsageSign, "sign"},
		{UsageVerify, "verify"},
		{UsageDerive, "derive"},
	} {
		if u.Has(f.bit) {
			names = append(names, f.name)
		}
	}
	if u&^usageAll != 0 {
		names = append(names, "unknown")
	}
	return strings.Join(names, "|")
}

// =============================================================================
// Key Sources
// =============================================================================

// KeySource records how material entered a slot.
type KeySource string

const (
	// SourceImport is caller-supplied material.
	SourceImport KeySource = "import"

	// SourceGenerate is backend-generated material.
	SourceGenerate KeySource = "generate"

	// SourceCopy is material duplicated from another slot.
	SourceCopy KeySource = "copy"

	// SourceDerive is material produced by a derivation generator.
	SourceDerive KeySource = "derive"
)

// String returns the string representation.
func (s KeySource) String() string {
	return string(s)
}

// IsValid returns true for a recognized source.
func (s KeySource) IsValid() bool {
	switch s {
	case SourceImport, SourceGenerate, SourceCopy, SourceDerive:
		return true
	}
	return false
}

// =============================================================================
// Key Attributes
// =============================================================================

// KeyAttributes is the metadata snapshot of an open key slot.
type KeyAttributes struct {
	// Lifetime is volatile or persistent.
	Lifetime Lifetime

	// ID is the persistent identifier; zero for volatile keys.
	ID KeyID

	// Type is the key type tag; KeyTypeNone while the slot is empty.
	Type KeyType

	// Bits is the key size in bits; zero while the slot is empty.
	Bits int

	// Policy is the slot's usage policy; zero value until set.
	Policy Policy
}

// Curve returns the elliptic curve implied by the attributes, or CurveNone
// for non-ECC keys.
func (a KeyAttributes) Curve() EllipticCurve {
	if a.Type != KeyTypeECCKeyPair && a.Type != KeyTypeECCPublicKey {
		return CurveNone
	}
	return CurveFromBits(a.Bits)
}
