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

import "time"

// Observe wraps a provider call: it tracks it as in flight, times it, and
// records the outcome under the given operation name.
//
// Usage:
//
//	err := metrics.Observe(metrics.OpSign, func() error {
//	    sig, err = backend.Sign(...)
//	    return err
//	})
func Observe(operation string, fn func() error) error {
	if !IsEnabled() {
		return fn()
	}

	ActiveOperations.Inc()
	defer ActiveOperations.Dec()

	start := time.Now()
	err := fn()
	duration := time.Since(start).Seconds()

	if err != nil {
		RecordOperation(operation, StatusError, duration)
		RecordError(operation, ErrorLabel(err))
		return err
	}
	RecordOperation(operation, StatusSuccess, duration)
	return nil
}

// Timer tracks a single operation for call sites where a closure is
// inconvenient. Done records the outcome; it should be called exactly once.
type Timer struct {
	operation string
	started   time.Time
}

// NewTimer starts timing an operation and marks it in flight.
//
// Usage:
//
//	timer := metrics.NewTimer(metrics.OpGenerateKey)
//	defer func() { timer.Done(err) }()
func NewTimer(operation string) *Timer {
	if IsEnabled() {
		ActiveOperations.Inc()
	}
	return &Timer{operation: operation, started: time.Now()}
}

// Done records the operation outcome and releases the in-flight slot.
func (t *Timer) Done(err error) {
	if !IsEnabled() {
		return
	}
	ActiveOperations.Dec()

	duration := time.Since(t.started).Seconds()
	if err != nil {
		RecordOperation(t.operation, StatusError, duration)
		RecordError(t.operation, ErrorLabel(err))
		return
	}
	RecordOperation(t.operation, StatusSuccess, duration)
}

// Duration returns the time elapsed since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.started)
}
