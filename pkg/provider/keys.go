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
	"errors"

	"github.com/AndrzejKurek/pelion-crypto/pkg/metrics"
	"github.com/AndrzejKurek/pelion-crypto/pkg/types"
)

// recordStorage feeds persistence failures into the storage error counter.
func recordStorage(err error) {
	if err != nil && errors.Is(err, types.ErrStorageFailure) {
		metrics.RecordStorageError()
	}
}

// AllocateKey reserves a free volatile slot and returns its handle.
func (p *Provider) AllocateKey() (types.Handle, error) {
	s, _, err := p.session()
	if err != nil {
		return 0, err
	}
	handle, err := s.Allocate()
	if err != nil {
		return 0, err
	}
	metrics.SetOccupiedSlots(s.OpenSlots())
	return handle, nil
}

// CreateKey reserves a slot bound to a new persistent key identity.
func (p *Provider) CreateKey(lifetime types.Lifetime, id types.KeyID) (types.Handle, error) {
	s, _, err := p.session()
	if err != nil {
		return 0, err
	}
	handle, err := s.Create(lifetime, id)
	recordStorage(err)
	if err != nil {
		return 0, err
	}
	metrics.SetOccupiedSlots(s.OpenSlots())
	return handle, nil
}

// OpenKey loads a previously created persistent key into a fresh slot.
func (p *Provider) OpenKey(lifetime types.Lifetime, id types.KeyID) (types.Handle, error) {
	s, _, err := p.session()
	if err != nil {
		return 0, err
	}
	handle, err := s.Open(lifetime, id)
	recordStorage(err)
	if err != nil {
		return 0, err
	}
	metrics.SetOccupiedSlots(s.OpenSlots())
	return handle, nil
}

// CloseKey releases the slot without touching persistent material.
func (p *Provider) CloseKey(handle types.Handle) error {
	s, _, err := p.session()
	if err != nil {
		return err
	}
	if err := s.CloseKey(handle); err != nil {
		return err
	}
	metrics.SetOccupiedSlots(s.OpenSlots())
	return nil
}

// DestroyKey wipes the key material and, for persistent keys, removes the
// stored record.
func (p *Provider) DestroyKey(handle types.Handle) error {
	s, _, err := p.session()
	if err != nil {
		return err
	}
	err = metrics.Observe(metrics.OpDestroyKey, func() error {
		destroyErr := s.DestroyKey(handle)
		recordStorage(destroyErr)
		return destroyErr
	})
	if err != nil {
		return err
	}
	metrics.SetOccupiedSlots(s.OpenSlots())
	return nil
}

// SetKeyPolicy attaches a usage policy to an empty slot.
func (p *Provider) SetKeyPolicy(handle types.Handle, policy types.Policy) error {
	s, _, err := p.session()
	if err != nil {
		return err
	}
	return s.SetPolicy(handle, policy)
}

// ImportKey fills the slot with caller-supplied key material.
func (p *Provider) ImportKey(handle types.Handle, keyType types.KeyType, data []byte) error {
	s, _, err := p.session()
	if err != nil {
		return err
	}
	return metrics.Observe(metrics.OpImportKey, func() error {
		importErr := s.ImportKey(handle, keyType, data)
		recordStorage(importErr)
		return importErr
	})
}

// ExportKey returns the raw key material, subject to the export policy.
func (p *Provider) ExportKey(handle types.Handle) ([]byte, error) {
	s, _, err := p.session()
	if err != nil {
		return nil, err
	}
	var out []byte
	err = metrics.Observe(metrics.OpExportKey, func() error {
		var exportErr error
		out, exportErr = s.ExportKey(handle)
		return exportErr
	})
	return out, err
}

// ExportPublicKey returns the public half of an asymmetric key. Unlike
// ExportKey it does not require the export usage flag.
func (p *Provider) ExportPublicKey(handle types.Handle) ([]byte, error) {
	s, _, err := p.session()
	if err != nil {
		return nil, err
	}
	var out []byte
	err = metrics.Observe(metrics.OpExportKey, func() error {
		var exportErr error
		out, exportErr = s.ExportPublicKey(handle)
		return exportErr
	})
	return out, err
}

// GenerateKey fills the slot with freshly generated key material.
func (p *Provider) GenerateKey(handle types.Handle, keyType types.KeyType, bits int) error {
	s, _, err := p.session()
	if err != nil {
		return err
	}
	return metrics.Observe(metrics.OpGenerateKey, func() error {
		genErr := s.GenerateKey(handle, keyType, bits)
		recordStorage(genErr)
		return genErr
	})
}

// CopyKey duplicates key material from one slot into another, intersecting
// the source policy with the optional constraint.
func (p *Provider) CopyKey(source, target types.Handle, constraint *types.Policy) error {
	s, _, err := p.session()
	if err != nil {
		return err
	}
	return metrics.Observe(metrics.OpCopyKey, func() error {
		copyErr := s.CopyKey(source, target, constraint)
		recordStorage(copyErr)
		return copyErr
	})
}

// KeyInfo reports the type and size of the key in the slot.
func (p *Provider) KeyInfo(handle types.Handle) (types.KeyType, int, error) {
	s, _, err := p.session()
	if err != nil {
		return "", 0, err
	}
	return s.KeyInfo(handle)
}

// KeyPolicy returns the policy attached to the slot.
func (p *Provider) KeyPolicy(handle types.Handle) (types.Policy, error) {
	s, _, err := p.session()
	if err != nil {
		return types.Policy{}, err
	}
	return s.KeyPolicy(handle)
}

// KeyLifetime returns the lifetime the slot was opened with.
func (p *Provider) KeyLifetime(handle types.Handle) (types.Lifetime, error) {
	s, _, err := p.session()
	if err != nil {
		return "", err
	}
	return s.KeyLifetime(handle)
}
