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
	"fmt"

	"github.com/AndrzejKurek/pelion-crypto/pkg/types"
)

// RawAgreement computes the shared secret between a private key and a peer
// public key. The secret is the raw X coordinate (NIST curves) or the raw
// X25519 output, never post-processed here.
func (b *Backend) RawAgreement(alg types.Algorithm, keyType types.KeyType, key, peer []byte) ([]byte, error) {
	if alg != types.AlgorithmECDH {
		return nil, fmt.Errorf("%w: key agreement algorithm %q", types.ErrNotSupported, alg)
	}
	if keyType != types.KeyTypeECCKeyPair {
		return nil, fmt.Errorf("%w: key type %q cannot do key agreement", types.ErrInvalidArgument, keyType)
	}

	priv, err := ecdhPrivate(key)
	if err != nil {
		return nil, err
	}
	pub, err := ecdhPublic(peer)
	if err != nil {
		return nil, err
	}
	if priv.Curve() != pub.Curve() {
		return nil, fmt.Errorf("%w: peer key curve does not match", types.ErrInvalidArgument)
	}

	secret, err := priv.ECDH(pub)
	if err != nil {
		return nil, fmt.Errorf("%w: key agreement: %v", types.ErrInvalidArgument, err)
	}
	return secret, nil
}
