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

package metrics

import (
	"context"
	"time"
)

// SlotCounter reports the number of currently open key slots. The keystore
// satisfies it.
type SlotCounter interface {
	OpenSlots() int
}

// ResourceCollector periodically samples the slot gauge and uptime. It keeps
// the occupied_slots metric fresh even when no key-management call has run
// recently.
type ResourceCollector struct {
	ctx      context.Context
	cancel   context.CancelFunc
	slots    SlotCounter
	interval time.Duration
	started  time.Time
}

// NewResourceCollector creates a collector that updates metrics at the given
// interval.
//
// Example:
//
//	collector := metrics.NewResourceCollector(ctx, store, 30*time.Second)
//	go collector.Start()
//	defer collector.Stop()
func NewResourceCollector(ctx context.Context, slots SlotCounter, interval time.Duration) *ResourceCollector {
	collectorCtx, cancel := context.WithCancel(ctx)
	return &ResourceCollector{
		ctx:      collectorCtx,
		cancel:   cancel,
		slots:    slots,
		interval: interval,
		started:  time.Now(),
	}
}

// Start begins collecting at the configured interval. This method blocks and
// should typically be run in a goroutine. It returns when Stop is called or
// the parent context is cancelled.
func (rc *ResourceCollector) Start() {
	ticker := time.NewTicker(rc.interval)
	defer ticker.Stop()

	rc.collect()

	for {
		select {
		case <-rc.ctx.Done():
			return
		case <-ticker.C:
			rc.collect()
		}
	}
}

// Stop halts the collector.
func (rc *ResourceCollector) Stop() {
	rc.cancel()
}

func (rc *ResourceCollector) collect() {
	if !IsEnabled() {
		return
	}
	if rc.slots != nil {
		OccupiedSlots.Set(float64(rc.slots.OpenSlots()))
	}
	ProviderUptime.Set(time.Since(rc.started).Seconds())
}

// CollectOnce performs a single sample outside of the periodic loop.
func (rc *ResourceCollector) CollectOnce() {
	rc.collect()
}

// StartResourceCollector creates and starts a collector in a background
// goroutine. It returns the collector for lifecycle management.
func StartResourceCollector(ctx context.Context, slots SlotCounter, interval time.Duration) *ResourceCollector {
	collector := NewResourceCollector(ctx, slots, interval)
	go collector.Start()
	return collector
}
