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

// Package operation implements the multi-part state machines: hash, MAC,
// cipher, AEAD, and the key-derivation generator.
//
// Every operation object is single-owner. Calls are synchronous, and a
// second goroutine calling into the same object is detected by an atomic
// latch and rejected with ErrBadState instead of corrupting state.
// Sequencing violations fail without side effects; backend failures
// mid-stream terminate the operation, after which only Abort is useful.
// Abort is idempotent from any state and zeroizes scratch.
//
// Keyed operations lease their key through the store's policy gate and
// observe slot destruction on their next call: the lease fails, the leased
// copy is wiped, and the operation terminates.
package operation

import (
	"fmt"
	"sync/atomic"

	"github.com/AndrzejKurek/pelion-crypto/pkg/types"
)

// busyGuard is the single-owner latch shared by all operation types.
type busyGuard struct {
	busy atomic.Bool
}

func (g *busyGuard) enter() error {
	if !g.busy.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: operation is in use by another goroutine", types.ErrBadState)
	}
	return nil
}

func (g *busyGuard) leave() {
	g.busy.Store(false)
}

func errSequence(detail string) error {
	return fmt.Errorf("%w: %s", types.ErrBadState, detail)
}
