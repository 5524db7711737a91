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

package storage

import (
	"sort"
	"sync"

	"github.com/AndrzejKurek/pelion-crypto/pkg/types"
)

// recordKey addresses one record within a memory backend.
type recordKey struct {
	lifetime types.Lifetime
	id       types.KeyID
}

// MemoryBackend provides an in-memory storage implementation.
// This is useful for testing and for providers configured without durable
// storage. Records are zeroized on erase and on close.
// Thread-safe using a read-write mutex.
type MemoryBackend struct {
	data   map[recordKey][]byte
	mu     sync.RWMutex
	closed bool
}

// NewMemory creates a new in-memory storage backend.
func NewMemory() *MemoryBackend {
	return &MemoryBackend{
		data: make(map[recordKey][]byte),
	}
}

var _ Backend = (*MemoryBackend)(nil)

// Save stores a copy of the record blob under (lifetime, id).
func (m *MemoryBackend) Save(lifetime types.Lifetime, id types.KeyID, blob []byte) error {
	if err := ValidateKey(lifetime, id); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	// Store a copy so later caller mutations cannot reach the record.
	data := make([]byte, len(blob))
	copy(data, blob)
	m.data[recordKey{lifetime, id}] = data
	return nil
}

// Load retrieves a copy of the record blob for (lifetime, id).
func (m *MemoryBackend) Load(lifetime types.Lifetime, id types.KeyID) ([]byte, error) {
	if err := ValidateKey(lifetime, id); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}

	blob, exists := m.data[recordKey{lifetime, id}]
	if !exists {
		return nil, ErrNotFound
	}

	result := make([]byte, len(blob))
	copy(result, blob)
	return result, nil
}

// Erase removes and zeroizes the record for (lifetime, id).
func (m *MemoryBackend) Erase(lifetime types.Lifetime, id types.KeyID) error {
	if err := ValidateKey(lifetime, id); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	k := recordKey{lifetime, id}
	blob, exists := m.data[k]
	if !exists {
		return ErrNotFound
	}

	types.Zeroize(blob)
	delete(m.data, k)
	return nil
}

// Exists reports whether a record is present for (lifetime, id).
func (m *MemoryBackend) Exists(lifetime types.Lifetime, id types.KeyID) (bool, error) {
	if err := ValidateKey(lifetime, id); err != nil {
		return false, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return false, ErrClosed
	}

	_, exists := m.data[recordKey{lifetime, id}]
	return exists, nil
}

// List returns the key IDs stored under the lifetime, in ascending order.
func (m *MemoryBackend) List(lifetime types.Lifetime) ([]types.KeyID, error) {
	if !lifetime.IsValid() {
		return nil, ErrInvalidLifetime
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}

	ids := make([]types.KeyID, 0)
	for k := range m.data {
		if k.lifetime == lifetime {
			ids = append(ids, k.id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Close zeroizes all records and releases the backend.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}

	for _, blob := range m.data {
		types.Zeroize(blob)
	}
	m.closed = true
	m.data = nil
	return nil
}
