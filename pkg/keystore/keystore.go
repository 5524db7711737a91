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

// Package keystore manages the arena of key slots behind opaque handles.
//
// A slot walks through a strict lifecycle: allocated (or created/opened for
// persistent keys), policy set at most once, material written at most once,
// then closed or destroyed. Handles are generation-tagged arena indices, so
// a handle kept past Close or Destroy is rejected even after the slot index
// has been recycled.
//
// Cryptographic callers never touch slot material directly; they acquire a
// KeyRef lease through the policy gate in AcquireKey. Close and Destroy
// invalidate outstanding leases without blocking on the operations that
// hold them.
package keystore

import (
	"errors"
	"fmt"
	"sync"

	"github.com/AndrzejKurek/pelion-crypto/pkg/backend"
	"github.com/AndrzejKurek/pelion-crypto/pkg/logging"
	"github.com/AndrzejKurek/pelion-crypto/pkg/storage"
	"github.com/AndrzejKurek/pelion-crypto/pkg/types"
)

// Configuration errors
var (
	// ErrStorageRequired indicates a Config without a storage backend.
	ErrStorageRequired = errors.New("keystore: storage backend is required")

	// ErrBackendRequired indicates a Config without a primitive backend.
	ErrBackendRequired = errors.New("keystore: primitive backend is required")

	// ErrTooManySlots indicates MaxSlots beyond what handles can address.
	ErrTooManySlots = errors.New("keystore: max slots exceeds the handle index range")
)

const (
	// DefaultMaxSlots is the arena size used when Config.MaxSlots is zero.
	DefaultMaxSlots = 128

	// MaxSlotLimit is the largest arena the 16-bit handle index can address;
	// index zero is reserved so handles are never zero.
	MaxSlotLimit = 0xFFFF
)

// Config provides configuration for creating a new Store.
type Config struct {
	// MaxSlots caps the number of simultaneously open slots.
	// Zero selects DefaultMaxSlots.
	MaxSlots int

	// Storage persists and loads key records for persistent lifetimes.
	// Required.
	Storage storage.Backend

	// Backend supplies key generation randomness and public-key derivation.
	// Required.
	Backend backend.Primitive

	// Logger receives slot lifecycle events. Nil selects the default logger.
	Logger *logging.Logger
}

// Validate checks if the Config is valid.
func (c *Config) Validate() error {
	if c.Storage == nil {
		return ErrStorageRequired
	}
	if c.Backend == nil {
		return ErrBackendRequired
	}
	if c.MaxSlots < 0 || c.MaxSlots > MaxSlotLimit {
		return ErrTooManySlots
	}
	return nil
}

// Store is the slot arena. All methods are safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	entries []slotEntry
	storage storage.Backend
	backend backend.Primitive
	log     *logging.Logger
	closed  bool
}

// slotEntry pairs an arena position with its generation counter. The
// counter survives slot release, which is what invalidates stale handles.
type slotEntry struct {
	gen  uint16
	slot *slot
}

// New creates a Store with the provided configuration.
func New(config *Config) (*Store, error) {
	if config == nil {
		return nil, ErrStorageRequired
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	maxSlots := config.MaxSlots
	if maxSlots == 0 {
		maxSlots = DefaultMaxSlots
	}
	log := config.Logger
	if log == nil {
		log = logging.DefaultLogger()
	}

	entries := make([]slotEntry, maxSlots)
	for i := range entries {
		entries[i].gen = 1
	}
	return &Store{
		entries: entries,
		storage: config.Storage,
		backend: config.Backend,
		log:     log.With("component", "keystore"),
	}, nil
}

// Close invalidates every open slot, zeroizes in-memory material, and shuts
// the store down. Persistent records remain in storage.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	for i := range s.entries {
		if sl := s.entries[i].slot; sl != nil {
			sl.invalidateLeases()
			sl.wipe()
			s.releaseEntry(i)
		}
	}
	s.closed = true
	return nil
}

// OpenSlots returns the number of currently open slots.
func (s *Store) OpenSlots() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for i := range s.entries {
		if s.entries[i].slot != nil {
			n++
		}
	}
	return n
}

// Allocate claims a slot for a volatile key and returns its handle.
func (s *Store) Allocate() (types.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return types.NilHandle, errStoreClosed()
	}
	return s.allocateLocked(types.LifetimeVolatile, 0)
}

// Create claims a slot for a new persistent key. The identifier must be
// unused: an existing stored record, or another open slot claiming the same
// identifier, fails with ErrAlreadyExists.
func (s *Store) Create(lifetime types.Lifetime, id types.KeyID) (types.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return types.NilHandle, errStoreClosed()
	}
	if err := checkPersistentRef(lifetime, id); err != nil {
		return types.NilHandle, err
	}
	for i := range s.entries {
		if sl := s.entries[i].slot; sl != nil && sl.lifetime == lifetime && sl.id == id {
			return types.NilHandle, fmt.Errorf("%w: key %d is open in another slot", types.ErrAlreadyExists, id)
		}
	}
	exists, err := s.storage.Exists(lifetime, id)
	if err != nil {
		return types.NilHandle, fmt.Errorf("%w: %v", types.ErrStorageFailure, err)
	}
	if exists {
		return types.NilHandle, fmt.Errorf("%w: persistent key %d", types.ErrAlreadyExists, id)
	}

	h, err := s.allocateLocked(lifetime, id)
	if err != nil {
		return types.NilHandle, err
	}
	s.log.Debug("created persistent slot", "id", id)
	return h, nil
}

// Open loads an existing persistent key into a fresh slot. The same key may
// be opened more than once; each open slot holds its own copy.
func (s *Store) Open(lifetime types.Lifetime, id types.KeyID) (types.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return types.NilHandle, errStoreClosed()
	}
	if err := checkPersistentRef(lifetime, id); err != nil {
		return types.NilHandle, err
	}

	blob, err := s.storage.Load(lifetime, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return types.NilHandle, fmt.Errorf("%w: persistent key %d", types.ErrNotFound, id)
		}
		return types.NilHandle, fmt.Errorf("%w: %v", types.ErrStorageFailure, err)
	}
	record, err := decodeRecord(blob)
	types.Zeroize(blob)
	if err != nil {
		return types.NilHandle, err
	}

	h, err := s.allocateLocked(lifetime, id)
	if err != nil {
		types.Zeroize(record.material)
		return types.NilHandle, err
	}
	sl := s.mustSlot(h)
	sl.keyType = record.keyType
	sl.bits = record.bits
	sl.source = record.source
	sl.policy = record.policy
	sl.policySet = true
	sl.material = record.material
	sl.occupied = true
	s.log.Debug("opened persistent slot", "id", id, "type", record.keyType)
	return h, nil
}

// SetPolicy sets the slot's usage policy. Legal exactly once, and only
// before material is written.
func (s *Store) SetPolicy(h types.Handle, policy types.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, err := s.slotFor(h)
	if err != nil {
		return err
	}
	if sl.occupied {
		return fmt.Errorf("%w: policy cannot change after material is written", types.ErrOccupiedSlot)
	}
	if sl.policySet {
		return fmt.Errorf("%w: slot policy", types.ErrAlreadyExists)
	}
	if err := policy.Validate(); err != nil {
		return err
	}
	sl.policy = policy
	sl.policySet = true
	return nil
}

// WriteMaterial fills an empty slot with key material. For persistent slots
// the record is durably saved before WriteMaterial returns; a storage
// failure leaves the slot empty.
func (s *Store) WriteMaterial(h types.Handle, keyType types.KeyType, bits int, data []byte, source types.KeySource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, err := s.slotFor(h)
	if err != nil {
		return err
	}
	if sl.occupied {
		return fmt.Errorf("%w: slot already holds a %s key", types.ErrOccupiedSlot, sl.keyType)
	}
	if !source.IsValid() {
		return fmt.Errorf("%w: key source %q", types.ErrInvalidArgument, source)
	}
	if len(data) == 0 {
		return fmt.Errorf("%w: empty key material", types.ErrInvalidArgument)
	}
	if err := types.ValidateKeySize(keyType, bits); err != nil {
		return err
	}
	if keyType.IsSymmetric() && len(data)*8 != bits {
		return fmt.Errorf("%w: %d bytes of material for a %d-bit key", types.ErrInvalidArgument, len(data), bits)
	}

	material := make([]byte, len(data))
	copy(material, data)

	if sl.lifetime == types.LifetimePersistent {
		blob := encodeRecord(keyRecord{
			keyType:  keyType,
			source:   source,
			bits:     bits,
			policy:   sl.policy,
			material: material,
		})
		err := s.storage.Save(sl.lifetime, sl.id, blob)
		types.Zeroize(blob)
		if err != nil {
			types.Zeroize(material)
			return fmt.Errorf("%w: %v", types.ErrStorageFailure, err)
		}
	}

	sl.keyType = keyType
	sl.bits = bits
	sl.source = source
	sl.material = material
	sl.occupied = true
	return nil
}

// ReadMaterial returns a copy of the slot's material in its stored
// encoding. This is the export-class read: the slot policy must carry
// the EXPORT usage.
func (s *Store) ReadMaterial(h types.Handle) (types.KeyType, int, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, err := s.slotFor(h)
	if err != nil {
		return types.KeyTypeNone, 0, nil, err
	}
	if !sl.occupied {
		return types.KeyTypeNone, 0, nil, types.ErrEmptySlot
	}
	if !sl.policy.Usage.Has(types.UsageExport) {
		return types.KeyTypeNone, 0, nil, fmt.Errorf("%w: export", types.ErrNotPermitted)
	}
	out := make([]byte, len(sl.material))
	copy(out, sl.material)
	return sl.keyType, sl.bits, out, nil
}

// CloseKey releases the slot behind the handle. Outstanding leases are
// invalidated, in-memory material is zeroized, and the handle becomes
// permanently stale. For persistent keys the stored record is untouched
// and can be opened again.
func (s *Store) CloseKey(h types.Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, sl, err := s.entryFor(h)
	if err != nil {
		return err
	}
	sl.invalidateLeases()
	sl.wipe()
	s.releaseEntry(idx)
	return nil
}

// DestroyKey irreversibly destroys the key: leases are invalidated,
// in-memory material is zeroized, and for persistent keys the stored
// record is erased. Memory is cleaned even when storage erasure fails;
// the failure is still reported.
func (s *Store) DestroyKey(h types.Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, sl, err := s.entryFor(h)
	if err != nil {
		return err
	}

	var storageErr error
	if sl.lifetime == types.LifetimePersistent {
		if err := s.storage.Erase(sl.lifetime, sl.id); err != nil && !errors.Is(err, storage.ErrNotFound) {
			storageErr = fmt.Errorf("%w: %v", types.ErrStorageFailure, err)
		}
	}

	sl.invalidateLeases()
	sl.wipe()
	s.releaseEntry(idx)
	if storageErr != nil {
		s.log.Error(storageErr)
		return storageErr
	}
	return nil
}

// AcquireKey is the policy gate for cryptographic use of a key. The
// requested usage must be permitted and the algorithm must match the policy
// exactly or through a family wildcard; the key type must be able to serve
// the algorithm. The returned lease stays valid until released or until the
// slot is closed or destroyed.
func (s *Store) AcquireKey(h types.Handle, usage types.Usage, alg types.Algorithm) (*KeyRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, err := s.slotFor(h)
	if err != nil {
		return nil, err
	}
	if !sl.occupied {
		return nil, types.ErrEmptySlot
	}
	if !sl.policy.Permits(usage, alg) {
		return nil, fmt.Errorf("%w: %s with %s", types.ErrNotPermitted, usage, alg)
	}
	if alg != types.AlgorithmNone && !types.KeyTypeSupportsAlgorithm(sl.keyType, alg) {
		return nil, fmt.Errorf("%w: %s key cannot serve %s", types.ErrInvalidArgument, sl.keyType, alg)
	}

	material := make([]byte, len(sl.material))
	copy(material, sl.material)
	ref := &KeyRef{
		store:    s,
		handle:   h,
		keyType:  sl.keyType,
		bits:     sl.bits,
		alg:      alg,
		usage:    usage,
		material: material,
	}
	sl.leases[ref] = struct{}{}
	return ref, nil
}

// Attributes returns the metadata snapshot for the slot. Valid on empty
// slots; Type is KeyTypeNone until material is written.
func (s *Store) Attributes(h types.Handle) (types.KeyAttributes, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, err := s.slotFor(h)
	if err != nil {
		return types.KeyAttributes{}, err
	}
	return sl.attributes(), nil
}

// =============================================================================
// Internal helpers (store mutex held)
// =============================================================================

func (s *Store) allocateLocked(lifetime types.Lifetime, id types.KeyID) (types.Handle, error) {
	for i := range s.entries {
		if s.entries[i].slot == nil {
			s.entries[i].slot = newSlot(lifetime, id)
			return encodeHandle(i, s.entries[i].gen), nil
		}
	}
	return types.NilHandle, fmt.Errorf("%w: all %d key slots are open", types.ErrInsufficientMemory, len(s.entries))
}

// releaseEntry frees an arena position and advances its generation so the
// old handle goes stale.
func (s *Store) releaseEntry(idx int) {
	s.entries[idx].slot = nil
	s.entries[idx].gen++
	if s.entries[idx].gen == 0 {
		s.entries[idx].gen = 1
	}
}

func (s *Store) slotFor(h types.Handle) (*slot, error) {
	_, sl, err := s.entryFor(h)
	return sl, err
}

func (s *Store) entryFor(h types.Handle) (int, *slot, error) {
	if s.closed {
		return 0, nil, errStoreClosed()
	}
	idx, gen := decodeHandle(h)
	if idx < 0 || idx >= len(s.entries) {
		return 0, nil, types.ErrInvalidHandle
	}
	e := &s.entries[idx]
	if e.slot == nil || e.gen != gen {
		return 0, nil, types.ErrInvalidHandle
	}
	return idx, e.slot, nil
}

// mustSlot resolves a handle the caller just allocated under the same lock.
func (s *Store) mustSlot(h types.Handle) *slot {
	idx, _ := decodeHandle(h)
	return s.entries[idx].slot
}

func (s *Store) unregisterLease(ref *KeyRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	idx, gen := decodeHandle(ref.handle)
	if idx < 0 || idx >= len(s.entries) {
		return
	}
	e := &s.entries[idx]
	if e.slot != nil && e.gen == gen {
		delete(e.slot.leases, ref)
	}
}

func encodeHandle(idx int, gen uint16) types.Handle {
	return types.Handle(uint32(gen)<<16 | uint32(idx+1))
}

func decodeHandle(h types.Handle) (idx int, gen uint16) {
	return int(h&0xFFFF) - 1, uint16(h >> 16)
}

func checkPersistentRef(lifetime types.Lifetime, id types.KeyID) error {
	if lifetime != types.LifetimePersistent {
		return fmt.Errorf("%w: lifetime %q is not persistent", types.ErrInvalidArgument, lifetime)
	}
	if id == 0 {
		return fmt.Errorf("%w: key id zero is reserved", types.ErrInvalidArgument)
	}
	return nil
}

func errStoreClosed() error {
	return fmt.Errorf("%w: keystore closed", types.ErrBadState)
}
