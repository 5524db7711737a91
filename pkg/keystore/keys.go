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

package keystore

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"fmt"

	"github.com/AndrzejKurek/pelion-crypto/pkg/types"
)

// Interchange encodings, chosen to round-trip through ImportKey/ExportKey:
//
//	symmetric, raw, derive   raw bytes
//	RSA private              PKCS#8 DER
//	RSA public               PKIX DER
//	ECC private (NIST)       PKCS#8 DER
//	ECC private (X25519)     raw 32-byte scalar, PKCS#8 also accepted
//	ECC public (NIST)        uncompressed point 0x04||X||Y
//	ECC public (X25519)      raw 32 bytes
//
// Internally every asymmetric key is normalized to PKCS#8/PKIX DER, the
// encodings the primitive backend consumes.

// ImportKey writes caller-supplied material into an empty slot. The bit
// size is inferred from the material itself.
func (s *Store) ImportKey(h types.Handle, keyType types.KeyType, data []byte) error {
	material, bits, err := normalizeImport(keyType, data)
	if err != nil {
		return err
	}
	err = s.WriteMaterial(h, keyType, bits, material, types.SourceImport)
	types.Zeroize(material)
	return err
}

// ExportKey returns the key in its interchange encoding. The slot policy
// must carry the EXPORT usage. For most types the stored form already is
// the interchange form; X25519 private keys and ECC public keys are
// unwrapped from their DER normalization.
func (s *Store) ExportKey(h types.Handle) ([]byte, error) {
	keyType, _, material, err := s.ReadMaterial(h)
	if err != nil {
		return nil, err
	}
	switch keyType {
	case types.KeyTypeECCKeyPair:
		priv, perr := parsePKCS8(material)
		if perr != nil {
			types.Zeroize(material)
			return nil, perr
		}
		if x, ok := priv.(*ecdh.PrivateKey); ok {
			types.Zeroize(material)
			return x.Bytes(), nil
		}
		return material, nil
	case types.KeyTypeECCPublicKey:
		out, perr := pkixToPoint(material)
		types.Zeroize(material)
		return out, perr
	default:
		return material, nil
	}
}

// ExportPublicKey returns the public half of an asymmetric key in its
// interchange encoding. Never policy-gated: public halves are not secret.
func (s *Store) ExportPublicKey(h types.Handle) ([]byte, error) {
	s.mu.Lock()
	sl, err := s.slotFor(h)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if !sl.occupied {
		s.mu.Unlock()
		return nil, types.ErrEmptySlot
	}
	keyType := sl.keyType
	material := make([]byte, len(sl.material))
	copy(material, sl.material)
	s.mu.Unlock()

	if !keyType.IsAsymmetric() {
		types.Zeroize(material)
		return nil, fmt.Errorf("%w: %s key has no public half", types.ErrInvalidArgument, keyType)
	}
	der, err := s.backend.ExportPublic(keyType, material)
	types.Zeroize(material)
	if err != nil {
		return nil, err
	}
	if keyType == types.KeyTypeECCKeyPair || keyType == types.KeyTypeECCPublicKey {
		return pkixToPoint(der)
	}
	return der, nil
}

// GenerateKey fills an empty slot with backend-generated material.
func (s *Store) GenerateKey(h types.Handle, keyType types.KeyType, bits int) error {
	if err := types.ValidateKeySize(keyType, bits); err != nil {
		return err
	}
	if keyType.IsPublic() {
		return fmt.Errorf("%w: cannot generate a public-only key", types.ErrInvalidArgument)
	}

	// Cheap handle/occupancy check before paying for generation; the write
	// below re-checks under the same rules.
	s.mu.Lock()
	sl, err := s.slotFor(h)
	if err == nil && sl.occupied {
		err = fmt.Errorf("%w: slot already holds a %s key", types.ErrOccupiedSlot, sl.keyType)
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}

	var material []byte
	if keyType.IsSymmetric() {
		material, err = s.backend.Random(bits / 8)
	} else {
		material, err = s.backend.GenerateKeyPair(keyType, bits, types.CurveFromBits(bits))
	}
	if err != nil {
		return err
	}

	err = s.WriteMaterial(h, keyType, bits, material, types.SourceGenerate)
	types.Zeroize(material)
	return err
}

// CopyKey duplicates the source key into the target slot. The source policy
// must permit COPY; the target must be empty with its policy already set.
// The target's effective policy becomes the intersection of source policy,
// target policy, and the optional constraint.
func (s *Store) CopyKey(src, dst types.Handle, constraint *types.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	srcSlot, err := s.slotFor(src)
	if err != nil {
		return err
	}
	dstSlot, err := s.slotFor(dst)
	if err != nil {
		return err
	}
	if !srcSlot.occupied {
		return types.ErrEmptySlot
	}
	if dstSlot.occupied {
		return fmt.Errorf("%w: copy target", types.ErrOccupiedSlot)
	}
	if !srcSlot.policy.Usage.Has(types.UsageCopy) {
		return fmt.Errorf("%w: copy", types.ErrNotPermitted)
	}
	if !dstSlot.policySet {
		return fmt.Errorf("%w: copy target has no policy", types.ErrInvalidArgument)
	}

	effective, err := srcSlot.policy.Intersect(dstSlot.policy)
	if err != nil {
		return err
	}
	if constraint != nil {
		effective, err = effective.Intersect(*constraint)
		if err != nil {
			return err
		}
	}

	material := make([]byte, len(srcSlot.material))
	copy(material, srcSlot.material)

	if dstSlot.lifetime == types.LifetimePersistent {
		blob := encodeRecord(keyRecord{
			keyType:  srcSlot.keyType,
			source:   types.SourceCopy,
			bits:     srcSlot.bits,
			policy:   effective,
			material: material,
		})
		saveErr := s.storage.Save(dstSlot.lifetime, dstSlot.id, blob)
		types.Zeroize(blob)
		if saveErr != nil {
			types.Zeroize(material)
			return fmt.Errorf("%w: %v", types.ErrStorageFailure, saveErr)
		}
	}

	dstSlot.keyType = srcSlot.keyType
	dstSlot.bits = srcSlot.bits
	dstSlot.source = types.SourceCopy
	dstSlot.policy = effective
	dstSlot.material = material
	dstSlot.occupied = true
	return nil
}

// KeyInfo returns the type and size of the key in the slot.
func (s *Store) KeyInfo(h types.Handle) (types.KeyType, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, err := s.slotFor(h)
	if err != nil {
		return types.KeyTypeNone, 0, err
	}
	if !sl.occupied {
		return types.KeyTypeNone, 0, types.ErrEmptySlot
	}
	return sl.keyType, sl.bits, nil
}

// KeyLifetime returns the slot's lifetime class. Valid on empty slots.
func (s *Store) KeyLifetime(h types.Handle) (types.Lifetime, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, err := s.slotFor(h)
	if err != nil {
		return "", err
	}
	return sl.lifetime, nil
}

// KeyPolicy returns the slot's policy; the zero policy if none was set.
func (s *Store) KeyPolicy(h types.Handle) (types.Policy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, err := s.slotFor(h)
	if err != nil {
		return types.Policy{}, err
	}
	return sl.policy, nil
}

// =============================================================================
// Interchange encoding helpers
// =============================================================================

func normalizeImport(keyType types.KeyType, data []byte) ([]byte, int, error) {
	if len(data) == 0 {
		return nil, 0, fmt.Errorf("%w: empty key material", types.ErrInvalidArgument)
	}

	switch keyType {
	case types.KeyTypeRawData, types.KeyTypeDerive, types.KeyTypeHMAC,
		types.KeyTypeAES, types.KeyTypeChaCha20:
		out := make([]byte, len(data))
		copy(out, data)
		return out, len(data) * 8, nil

	case types.KeyTypeRSAKeyPair:
		priv, err := parsePKCS8(data)
		if err != nil {
			return nil, 0, err
		}
		rsaPriv, ok := priv.(*rsa.PrivateKey)
		if !ok {
			return nil, 0, fmt.Errorf("%w: material is not an RSA private key", types.ErrInvalidArgument)
		}
		out := make([]byte, len(data))
		copy(out, data)
		return out, rsaPriv.N.BitLen(), nil

	case types.KeyTypeRSAPublicKey:
		pub, err := x509.ParsePKIXPublicKey(data)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: material does not decode: %v", types.ErrInvalidArgument, err)
		}
		rsaPub, ok := pub.(*rsa.PublicKey)
		if !ok {
			return nil, 0, fmt.Errorf("%w: material is not an RSA public key", types.ErrInvalidArgument)
		}
		out := make([]byte, len(data))
		copy(out, data)
		return out, rsaPub.N.BitLen(), nil

	case types.KeyTypeECCKeyPair:
		return normalizeECCPrivate(data)

	case types.KeyTypeECCPublicKey:
		return normalizeECCPublic(data)

	default:
		return nil, 0, fmt.Errorf("%w: key type %q", types.ErrNotSupported, keyType)
	}
}

func normalizeECCPrivate(data []byte) ([]byte, int, error) {
	if priv, err := parsePKCS8(data); err == nil {
		switch k := priv.(type) {
		case *ecdsa.PrivateKey:
			out := make([]byte, len(data))
			copy(out, data)
			return out, k.Curve.Params().BitSize, nil
		case *ecdh.PrivateKey:
			if k.Curve() != ecdh.X25519() {
				return nil, 0, fmt.Errorf("%w: unexpected ECDH curve in key material", types.ErrInvalidArgument)
			}
			out := make([]byte, len(data))
			copy(out, data)
			return out, 255, nil
		default:
			return nil, 0, fmt.Errorf("%w: material is not an ECC private key", types.ErrNotSupported)
		}
	}

	// Raw 32 bytes are an X25519 scalar.
	if len(data) == 32 {
		priv, err := ecdh.X25519().NewPrivateKey(data)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: X25519 scalar: %v", types.ErrInvalidArgument, err)
		}
		der, err := x509.MarshalPKCS8PrivateKey(priv)
		if err != nil {
			return nil, 0, fmt.Errorf("key encode: %w", err)
		}
		return der, 255, nil
	}
	return nil, 0, fmt.Errorf("%w: ECC private key material does not decode", types.ErrInvalidArgument)
}

func normalizeECCPublic(data []byte) ([]byte, int, error) {
	var (
		pub  *ecdh.PublicKey
		bits int
		err  error
	)
	switch len(data) {
	case 32:
		pub, err = ecdh.X25519().NewPublicKey(data)
		bits = 255
	case 65:
		pub, err = ecdh.P256().NewPublicKey(data)
		bits = 256
	case 97:
		pub, err = ecdh.P384().NewPublicKey(data)
		bits = 384
	case 133:
		pub, err = ecdh.P521().NewPublicKey(data)
		bits = 521
	default:
		// Also accept the normalized PKIX form.
		parsed, perr := x509.ParsePKIXPublicKey(data)
		if perr != nil {
			return nil, 0, fmt.Errorf("%w: ECC public key material does not decode", types.ErrInvalidArgument)
		}
		switch k := parsed.(type) {
		case *ecdsa.PublicKey:
			out := make([]byte, len(data))
			copy(out, data)
			return out, k.Curve.Params().BitSize, nil
		case *ecdh.PublicKey:
			out := make([]byte, len(data))
			copy(out, data)
			return out, curveBits(k.Curve()), nil
		default:
			return nil, 0, fmt.Errorf("%w: material is not an ECC public key", types.ErrInvalidArgument)
		}
	}
	if err != nil {
		return nil, 0, fmt.Errorf("%w: ECC public point: %v", types.ErrInvalidArgument, err)
	}

	der, merr := x509.MarshalPKIXPublicKey(pub)
	if merr != nil {
		return nil, 0, fmt.Errorf("public key encode: %w", merr)
	}
	return der, bits, nil
}

// pkixToPoint converts PKIX ECC public key DER to the interchange point
// form: uncompressed 0x04||X||Y for NIST curves, raw 32 bytes for X25519.
func pkixToPoint(der []byte) ([]byte, error) {
	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: public key does not decode: %v", types.ErrInvalidArgument, err)
	}
	switch k := pub.(type) {
	case *ecdsa.PublicKey:
		ek, err := k.ECDH()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrInvalidArgument, err)
		}
		return ek.Bytes(), nil
	case *ecdh.PublicKey:
		return k.Bytes(), nil
	default:
		return nil, fmt.Errorf("%w: not an ECC public key", types.ErrInvalidArgument)
	}
}

func parsePKCS8(data []byte) (any, error) {
	priv, err := x509.ParsePKCS8PrivateKey(data)
	if err != nil {
		return nil, fmt.Errorf("%w: material does not decode: %v", types.ErrInvalidArgument, err)
	}
	return priv, nil
}

func curveBits(c ecdh.Curve) int {
	switch c {
	case ecdh.P256():
		return 256
	case ecdh.P384():
		return 384
	case ecdh.P521():
		return 521
	default:
		return 255
	}
}
