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
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"fmt"
	"io"

	"github.com/AndrzejKurek/pelion-crypto/pkg/types"
)

// GenerateKeyPair produces fresh private key material in the backend's
// storage encoding (PKCS#8 DER).
func (b *Backend) GenerateKeyPair(keyType types.KeyType, bits int, curve types.EllipticCurve) ([]byte, error) {
	switch keyType {
	case types.KeyTypeRSAKeyPair:
		priv, err := rsa.GenerateKey(rand.Reader, bits)
		if err != nil {
			return nil, fmt.Errorf("RSA key generation: %w", err)
		}
		return x509.MarshalPKCS8PrivateKey(priv)

	case types.KeyTypeECCKeyPair:
		if curve == types.CurveX25519 {
			priv, err := ecdh.X25519().GenerateKey(rand.Reader)
			if err != nil {
				return nil, fmt.Errorf("X25519 key generation: %w", err)
			}
			return x509.MarshalPKCS8PrivateKey(priv)
		}
		ec, err := nistCurve(curve)
		if err != nil {
			return nil, err
		}
		priv, err := ecdsa.GenerateKey(ec, rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("ECDSA key generation: %w", err)
		}
		return x509.MarshalPKCS8PrivateKey(priv)

	default:
		return nil, fmt.Errorf("%w: key type %q is not an asymmetric pair", types.ErrInvalidArgument, keyType)
	}
}

// Random returns n cryptographically secure random bytes.
func (b *Backend) Random(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative random length", types.ErrInvalidArgument)
	}
	out := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, out); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInsufficientEntropy, err)
	}
	return out, nil
}

func nistCurve(curve types.EllipticCurve) (elliptic.Curve, error) {
	switch curve {
	case types.CurveP256:
		return elliptic.P256(), nil
	case types.CurveP384:
		return elliptic.P384(), nil
	case types.CurveP521:
		return elliptic.P521(), nil
	default:
		return nil, fmt.Errorf("%w: curve %q", types.ErrNotSupported, curve)
	}
}
