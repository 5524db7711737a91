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

import (
	"errors"
	"fmt"
)

// Key lifecycle errors
var (
	// ErrInvalidHandle indicates a handle that is zero, stale, or was never issued.
	ErrInvalidHandle = errors.New("crypto: invalid key handle")

	// ErrEmptySlot indicates the slot holds no key material yet.
	ErrEmptySlot = errors.New("crypto: key slot is empty")

	// ErrOccupiedSlot indicates the slot already holds key material.
	ErrOccupiedSlot = errors.New("crypto: key slot is occupied")

	// ErrAlreadyExists indicates the persistent identifier or policy is already set.
	ErrAlreadyExists = errors.New("crypto: already exists")

	// ErrNotFound indicates no persistent key exists under the requested identifier.
	ErrNotFound = errors.New("crypto: key not found")
)

// Policy and algorithm errors
var (
	// ErrNotPermitted indicates the key policy forbids the requested usage or algorithm.
	ErrNotPermitted = errors.New("crypto: usage not permitted by key policy")

	// ErrInvalidArgument indicates a malformed or out-of-range argument.
	ErrInvalidArgument = errors.New("crypto: invalid argument")

	// ErrNotSupported indicates an algorithm or key type this provider does not implement.
	ErrNotSupported = errors.New("crypto: not supported")
)

// Operation sequencing errors
var (
	// ErrBadState indicates a call that is illegal in the operation's current state.
	ErrBadState = errors.New("crypto: operation in bad state")

	// ErrBufferTooSmall indicates an output buffer too small for the result.
	ErrBufferTooSmall = errors.New("crypto: output buffer too small")

	// ErrNotInitialized indicates the provider has not completed initialization.
	// It is a BadState condition and matches ErrBadState under errors.Is.
	ErrNotInitialized = fmt.Errorf("%w: provider not initialized", ErrBadState)
)

// Verification errors
var (
	// ErrInvalidSignature indicates a signature, MAC, or authentication tag mismatch.
	ErrInvalidSignature = errors.New("crypto: invalid signature")

	// ErrInvalidPadding indicates malformed padding discovered during decryption.
	ErrInvalidPadding = errors.New("crypto: invalid padding")
)

// Generator errors
var (
	// ErrInsufficientCapacity indicates a read past the generator's remaining capacity.
	// The generator is exhausted once this is returned.
	ErrInsufficientCapacity = errors.New("crypto: insufficient generator capacity")
)

// Resource and environment errors
var (
	// ErrInsufficientMemory indicates slot or scratch allocation failed.
	ErrInsufficientMemory = errors.New("crypto: insufficient memory")

	// ErrInsufficientStorage indicates the storage collaborator is out of space.
	ErrInsufficientStorage = errors.New("crypto: insufficient storage")

	// ErrStorageFailure indicates the storage collaborator failed to save, load, or erase.
	ErrStorageFailure = errors.New("crypto: storage failure")

	// ErrCommunicationFailure indicates the backend transport failed.
	ErrCommunicationFailure = errors.New("crypto: communication failure")

	// ErrHardwareFailure indicates an opaque backend fault.
	ErrHardwareFailure = errors.New("crypto: hardware failure")

	// ErrTamperingDetected indicates the backend observed physical or logical tampering.
	ErrTamperingDetected = errors.New("crypto: tampering detected")

	// ErrInsufficientEntropy indicates the random source could not produce enough entropy.
	ErrInsufficientEntropy = errors.New("crypto: insufficient entropy")
)
