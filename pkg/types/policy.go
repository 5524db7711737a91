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

package types

import "fmt"

// Policy is the immutable permission set attached to a key: the usage
// flags the key may be exercised with, and the single algorithm (or
// ANY-HASH family wildcard) it may be exercised by. A policy is set once
// while its slot is still empty and never changes afterwards.
type Policy struct {
	// Usage is the permitted operation bitmask.
	Usage Usage

	// Algorithm is the permitted algorithm, or a family wildcard.
	Algorithm Algorithm
}

// String renders the policy for logs.
func (p Policy) String() string {
	alg := string(p.Algorithm)
	if alg == "" {
		alg = "none"
	}
	return fmt.Sprintf("usage=%s alg=%s", p.Usage, alg)
}

// IsZero returns true for the unset policy.
func (p Policy) IsZero() bool {
	return p.Usage == 0 && p.Algorithm == AlgorithmNone
}

// Validate checks that the policy uses only defined usage bits and a
// recognized algorithm (or none at all, for keys that only export or copy).
func (p Policy) Validate() error {
	if !p.Usage.IsValid() {
		return fmt.Errorf("%w: unknown usage flags 0x%x", ErrInvalidArgument, uint32(p.Usage))
	}
	if p.Algorithm != AlgorithmNone && !p.Algorithm.IsValid() {
		return fmt.Errorf("%w: unrecognized algorithm %q", ErrInvalidArgument, p.Algorithm)
	}
	return nil
}

// Permits reports whether the policy allows exercising the key with the
// given usage and algorithm. The usage must be a subset of the policy's
// usage, and the algorithm must equal the policy algorithm or fall in the
// family its wildcard names.
func (p Policy) Permits(usage Usage, alg Algorithm) bool {
	if !p.Usage.Has(usage) {
		return false
	}
	if alg == AlgorithmNone {
		// Pure slot-management permissions (export, copy) carry no algorithm.
		return true
	}
	return p.Algorithm == alg || WildcardMatches(p.Algorithm, alg)
}

// Intersect combines two policies into the strongest policy both allow:
// usage is the bitwise intersection; algorithms must be identical, or one
// must be a wildcard covering the other concrete algorithm, in which case
// the concrete algorithm wins. Incompatible algorithms yield
// ErrInvalidArgument.
func (p Policy) Intersect(other Policy) (Policy, error) {
	alg, err := intersectAlgorithms(p.Algorithm, other.Algorithm)
	if err != nil {
		return Policy{}, err
	}
	return Policy{
		Usage:     p.Usage & other.Usage,
		Algorithm: alg,
	}, nil
}

func intersectAlgorithms(a, b Algorithm) (Algorithm, error) {
	switch {
	case a == b:
		return a, nil
	case WildcardMatches(a, b):
		return b, nil
	case WildcardMatches(b, a):
		return a, nil
	}
	return AlgorithmNone, fmt.Errorf("%w: policies name incompatible algorithms %q and %q",
		ErrInvalidArgument, a, b)
}
