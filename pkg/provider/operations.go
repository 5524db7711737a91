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
	"github.com/AndrzejKurek/pelion-crypto/pkg/operation"
)

// HashOperation returns a fresh multi-part hash operation.
func (p *Provider) HashOperation() (*operation.Hash, error) {
	_, b, err := p.session()
	if err != nil {
		return nil, err
	}
	return operation.NewHash(b), nil
}

// MACOperation returns a fresh multi-part MAC operation.
func (p *Provider) MACOperation() (*operation.MAC, error) {
	s, b, err := p.session()
	if err != nil {
		return nil, err
	}
	return operation.NewMAC(s, b), nil
}

// CipherOperation returns a fresh multi-part cipher operation.
func (p *Provider) CipherOperation() (*operation.Cipher, error) {
	s, b, err := p.session()
	if err != nil {
		return nil, err
	}
	return operation.NewCipher(s, b), nil
}

// AEADOperation returns a fresh multi-part AEAD operation.
func (p *Provider) AEADOperation() (*operation.AEAD, error) {
	s, b, err := p.session()
	if err != nil {
		return nil, err
	}
	return operation.NewAEAD(s, b), nil
}

// Generator returns a fresh key derivation generator.
func (p *Provider) Generator() (*operation.Generator, error) {
	s, b, err := p.session()
	if err != nil {
		return nil, err
	}
	return operation.NewGenerator(s, b), nil
}
