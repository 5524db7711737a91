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
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AndrzejKurek/pelion-crypto/pkg/backend/software"
	"github.com/AndrzejKurek/pelion-crypto/pkg/keystore"
	"github.com/AndrzejKurek/pelion-crypto/pkg/logging"
	"github.com/AndrzejKurek/pelion-crypto/pkg/metrics"
	"github.com/AndrzejKurek/pelion-crypto/pkg/storage"
	"github.com/AndrzejKurek/pelion-crypto/pkg/storage/file"
	"github.com/AndrzejKurek/pelion-crypto/pkg/types"
)

// collectInterval is how often the resource collector samples slot usage.
const collectInterval = 15 * time.Second

// Provider bundles the key store, the software backend and the ambient
// services (logging, metrics, persistence) behind a single API surface.
// Applications use a Provider instead of assembling the pieces themselves,
// preventing leaky abstractions.
//
// A Provider starts uninitialized. Every cryptographic entry point fails
// with ErrBadState until Init succeeds; Close tears the instance back down
// to the uninitialized state and a later Init builds it up again.
type Provider struct {
	cfg       *Config
	log       *logging.Logger
	store     *keystore.Store
	backend   *software.Backend
	collector *metrics.ResourceCollector
	cancel    context.CancelFunc
	ready     bool
	mu        sync.RWMutex
}

// Default provider singleton
var (
	defaultProvider *Provider
	defaultOnce     sync.Once
)

// New creates a Provider from the given configuration without initializing
// it. A nil config selects DefaultConfig. The configuration is validated
// here so that Init cannot fail on bad input later.
func New(config *Config) (*Provider, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := logging.NewLoggerAtLevel(config.Logging.Level).With(
		"component", "provider",
		"instance", uuid.NewString(),
	)

	return &Provider{
		cfg: config,
		log: logger,
	}, nil
}

// Init builds the storage backend, the software crypto backend and the key
// store, and arms the metrics collector. Calling Init on an initialized
// provider is a no-op.
func (p *Provider) Init() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ready {
		return nil
	}

	store, err := p.openStorage()
	if err != nil {
		return err
	}

	backend, err := software.New(&software.Config{
		NonceTracking: p.cfg.AEAD.TrackNonces,
	})
	if err != nil {
		return fmt.Errorf("failed to create software backend: %w", err)
	}

	slots, err := keystore.New(&keystore.Config{
		MaxSlots: p.cfg.Provider.MaxSlots,
		Storage:  store,
		Backend:  backend,
		Logger:   p.log,
	})
	if err != nil {
		return fmt.Errorf("failed to create key store: %w", err)
	}

	if p.cfg.Metrics.Enabled {
		metrics.Enable()
		ctx, cancel := context.WithCancel(context.Background())
		p.cancel = cancel
		p.collector = metrics.StartResourceCollector(ctx, slots, collectInterval)
	} else {
		metrics.Disable()
	}

	p.store = slots
	p.backend = backend
	p.ready = true

	p.log.Info("provider initialized",
		"storage", p.cfg.Storage.Backend,
		"max_slots", p.cfg.Provider.MaxSlots,
		"metrics", p.cfg.Metrics.Enabled)
	return nil
}

// openStorage creates the persistence layer selected by the configuration.
// Callers hold p.mu.
func (p *Provider) openStorage() (storage.Backend, error) {
	switch p.cfg.Storage.Backend {
	case StorageMemory:
		return storage.NewMemory(), nil
	case StorageFile:
		if p.cfg.Storage.Passphrase != "" {
			sealed, err := file.NewSealed(p.cfg.Storage.Path, []byte(p.cfg.Storage.Passphrase))
			if err != nil {
				return nil, fmt.Errorf("failed to open sealed file storage: %w", err)
			}
			return sealed, nil
		}
		plain, err := file.New(p.cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open file storage: %w", err)
		}
		return plain, nil
	default:
		return nil, fmt.Errorf("%w: storage backend %q", types.ErrInvalidArgument, p.cfg.Storage.Backend)
	}
}

// Close wipes all volatile keys, stops the metrics collector and returns
// the provider to the uninitialized state. Closing an uninitialized
// provider is a no-op. The provider may be initialized again afterwards.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.ready {
		return nil
	}

	if p.collector != nil {
		p.collector.Stop()
		p.collector = nil
	}
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}

	err := p.store.Close()

	p.store = nil
	p.backend = nil
	p.ready = false

	p.log.Info("provider closed")
	return err
}

// IsInitialized reports whether Init has completed and Close has not been
// called since.
func (p *Provider) IsInitialized() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ready
}

// Store returns the underlying key store for callers that need direct
// slot access, or an error when the provider is not initialized.
func (p *Provider) Store() (*keystore.Store, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.ready {
		return nil, types.ErrNotInitialized
	}
	return p.store, nil
}

// session snapshots the store and backend under the read lock. Every API
// entry point goes through here so that a concurrent Close cannot yank
// the store out from under a running call.
func (p *Provider) session() (*keystore.Store, *software.Backend, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.ready {
		return nil, nil, types.ErrNotInitialized
	}
	return p.store, p.backend, nil
}

// Default returns the process-wide provider, initializing it with the
// default configuration on first use.
func Default() *Provider {
	defaultOnce.Do(func() {
		p, err := New(nil)
		if err == nil {
			err = p.Init()
		}
		if err != nil {
			// The default configuration is memory-backed and validated;
			// failing to build it means the process cannot do crypto at all.
			logging.DefaultLogger().FatalError(err)
		}
		defaultProvider = p
	})
	return defaultProvider
}
