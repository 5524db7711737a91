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

// Package file provides a file-based implementation of the storage.Backend
// interface. Each record is one file under <root>/<lifetime>/<id>.key,
// written atomically via a temp file and rename. Records can optionally be
// sealed at rest with a passphrase-derived AEAD envelope.
package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/AndrzejKurek/pelion-crypto/pkg/storage"
	"github.com/AndrzejKurek/pelion-crypto/pkg/types"
	"github.com/google/uuid"
)

const (
	// Directory permissions (owner rwx only).
	dirPerms = 0700

	// Record file permissions (owner rw only).
	filePerms = 0600

	// recordExt is the extension of record files; anything else under the
	// root (temp files included) is ignored by List.
	recordExt = ".key"
)

// Storage is a file-based implementation of storage.Backend.
// It stores one record per file and is thread-safe.
type Storage struct {
	mu      sync.RWMutex
	rootDir string
	sealer  *sealer
	closed  bool
}

var _ storage.Backend = (*Storage)(nil)

// New creates a file storage rooted at rootDir, storing records as plaintext.
// The root directory is created with 0700 permissions if it doesn't exist.
func New(rootDir string) (*Storage, error) {
	return newStorage(rootDir, nil)
}

// NewSealed creates a file storage rooted at rootDir that seals every record
// with an AEAD envelope keyed from the passphrase. The passphrase is copied;
// the caller's slice may be discarded after the call returns.
func NewSealed(rootDir string, passphrase []byte) (*Storage, error) {
	if len(passphrase) == 0 {
		return nil, fmt.Errorf("file storage: sealing passphrase cannot be empty")
	}
	return newStorage(rootDir, newSealer(passphrase))
}

func newStorage(rootDir string, s *sealer) (*Storage, error) {
	if rootDir == "" {
		return nil, fmt.Errorf("file storage: root directory cannot be empty")
	}
	if err := os.MkdirAll(rootDir, dirPerms); err != nil {
		return nil, fmt.Errorf("file storage: failed to create root directory: %w", err)
	}
	return &Storage{
		rootDir: rootDir,
		sealer:  s,
	}, nil
}

// Save persists the record blob under (lifetime, id). The record is written
// to a uuid-named temp file in the target directory and renamed into place,
// so a crash mid-write never leaves a truncated record behind.
func (f *Storage) Save(lifetime types.Lifetime, id types.KeyID, blob []byte) error {
	if err := storage.ValidateKey(lifetime, id); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return storage.ErrClosed
	}

	out := blob
	if f.sealer != nil {
		sealed, err := f.sealer.seal(blob)
		if err != nil {
			return fmt.Errorf("file storage: failed to seal record %d: %w", id, err)
		}
		out = sealed
	}

	dir := filepath.Join(f.rootDir, lifetime.String())
	if err := os.MkdirAll(dir, dirPerms); err != nil {
		return fmt.Errorf("file storage: failed to create directory for %s: %w", lifetime, err)
	}

	tmp := filepath.Join(dir, "."+uuid.NewString()+".tmp")
	if err := writeFileSync(tmp, out); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("file storage: failed to write record %d: %w", id, err)
	}
	if err := os.Rename(tmp, f.recordPath(lifetime, id)); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("file storage: failed to commit record %d: %w", id, err)
	}
	return nil
}

// Load retrieves the record blob for (lifetime, id).
func (f *Storage) Load(lifetime types.Lifetime, id types.KeyID) ([]byte, error) {
	if err := storage.ValidateKey(lifetime, id); err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return nil, storage.ErrClosed
	}

	data, err := os.ReadFile(f.recordPath(lifetime, id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("file storage: failed to read record %d: %w", id, err)
	}

	if f.sealer != nil {
		plain, err := f.sealer.open(data)
		if err != nil {
			return nil, err
		}
		return plain, nil
	}
	return data, nil
}

// Erase scrubs and removes the record for (lifetime, id). The file content
// is overwritten with zeros before the unlink; on journaling filesystems
// this is best effort only.
func (f *Storage) Erase(lifetime types.Lifetime, id types.KeyID) error {
	if err := storage.ValidateKey(lifetime, id); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return storage.ErrClosed
	}

	path := f.recordPath(lifetime, id)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("file storage: failed to stat record %d: %w", id, err)
	}

	if size := info.Size(); size > 0 {
		_ = writeFileSync(path, make([]byte, size))
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("file storage: failed to delete record %d: %w", id, err)
	}
	return nil
}

// Exists reports whether a record is present for (lifetime, id).
func (f *Storage) Exists(lifetime types.Lifetime, id types.KeyID) (bool, error) {
	if err := storage.ValidateKey(lifetime, id); err != nil {
		return false, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return false, storage.ErrClosed
	}

	_, err := os.Stat(f.recordPath(lifetime, id))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("file storage: failed to check record %d: %w", id, err)
	}
	return true, nil
}

// List returns the key IDs stored under the lifetime, in ascending order.
func (f *Storage) List(lifetime types.Lifetime) ([]types.KeyID, error) {
	if !lifetime.IsValid() {
		return nil, storage.ErrInvalidLifetime
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return nil, storage.ErrClosed
	}

	entries, err := os.ReadDir(filepath.Join(f.rootDir, lifetime.String()))
	if err != nil {
		if os.IsNotExist(err) {
			return []types.KeyID{}, nil
		}
		return nil, fmt.Errorf("file storage: failed to list %s records: %w", lifetime, err)
	}

	ids := make([]types.KeyID, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		id, ok := parseRecordName(e.Name())
		if !ok {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Close releases the backend and wipes the sealing passphrase copy.
func (f *Storage) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}
	f.closed = true
	if f.sealer != nil {
		f.sealer.destroy()
	}
	return nil
}

// recordPath maps (lifetime, id) to the record's file path.
func (f *Storage) recordPath(lifetime types.Lifetime, id types.KeyID) string {
	name := fmt.Sprintf("%08x%s", uint32(id), recordExt)
	return filepath.Join(f.rootDir, lifetime.String(), name)
}

// parseRecordName recovers a key ID from a record file name.
func parseRecordName(name string) (types.KeyID, bool) {
	if !strings.HasSuffix(name, recordExt) {
		return 0, false
	}
	hex := strings.TrimSuffix(name, recordExt)
	if len(hex) != 8 {
		return 0, false
	}
	id, err := strconv.ParseUint(hex, 16, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return types.KeyID(id), true
}

// writeFileSync writes data with record permissions and flushes it to disk
// before returning.
func writeFileSync(path string, data []byte) error {
	fh, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePerms)
	if err != nil {
		return err
	}
	if _, err := fh.Write(data); err != nil {
		_ = fh.Close()
		return err
	}
	if err := fh.Sync(); err != nil {
		_ = fh.Close()
		return err
	}
	return fh.Close()
}
