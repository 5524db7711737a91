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

// Package metrics provides Prometheus instrumentation for the crypto
// provider. It exposes operation counters, latency histograms, error
// counters, and resource gauges for monitoring provider health.
package metrics

import (
	"errors"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/AndrzejKurek/pelion-crypto/pkg/types"
)

const (
	// Namespace is the Prometheus namespace for all provider metrics
	Namespace = "pelion_crypto"

	// Label names
	LabelOperation = "operation"
	LabelStatus    = "status"
	LabelErrorType = "error_type"

	// Status values
	StatusSuccess = "success"
	StatusError   = "error"

	// Operation names
	OpHash          = "hash"
	OpMAC           = "mac"
	OpCipherEncrypt = "cipher_encrypt"
	OpCipherDecrypt = "cipher_decrypt"
	OpAEADEncrypt   = "aead_encrypt"
	OpAEADDecrypt   = "aead_decrypt"
	OpSign          = "sign"
	OpVerify        = "verify"
	OpAsymEncrypt   = "asymmetric_encrypt"
	OpAsymDecrypt   = "asymmetric_decrypt"
	OpKeyAgreement  = "key_agreement"
	OpGenerateKey   = "generate_key"
	OpImportKey     = "import_key"
	OpExportKey     = "export_key"
	OpCopyKey       = "copy_key"
	OpDestroyKey    = "destroy_key"
	OpRandom        = "random"
)

var (
	// OperationsTotal tracks the total number of provider operations by type and status.
	// Use RecordOperation to increment this counter with the appropriate labels.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "operations_total",
			Help:      "Total number of provider operations by type and status",
		},
		[]string{LabelOperation, LabelStatus},
	)

	// OperationDuration tracks the duration of provider operations in seconds.
	// Buckets span microsecond symmetric primitives up to multi-second RSA
	// key generation.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of provider operations in seconds",
			Buckets:   []float64{.00005, .0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5, 10},
		},
		[]string{LabelOperation},
	)

	// ErrorsTotal tracks the total number of errors by operation and error type.
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "errors_total",
			Help:      "Total number of errors by operation and error type",
		},
		[]string{LabelOperation, LabelErrorType},
	)

	// OccupiedSlots tracks the number of key slots currently open in the store.
	OccupiedSlots = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "occupied_slots",
			Help:      "Number of key slots currently open",
		},
	)

	// ActiveOperations tracks the number of provider calls currently in flight.
	ActiveOperations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "active_operations",
			Help:      "Number of provider calls currently in flight",
		},
	)

	// RandomBytesTotal tracks the total number of random bytes drawn from the backend.
	RandomBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "random_bytes_total",
			Help:      "Total number of random bytes drawn from the backend",
		},
	)

	// StorageErrorsTotal tracks the total number of persistent storage failures.
	StorageErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "storage_errors_total",
			Help:      "Total number of persistent storage failures",
		},
	)

	// ProviderUptime tracks the provider uptime in seconds since Init.
	ProviderUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "provider_uptime_seconds",
			Help:      "Provider uptime in seconds since initialization",
		},
	)

	// enabled tracks whether metrics collection is enabled
	enabled atomic.Bool
)

func init() {
	// Metrics are enabled by default
	enabled.Store(true)
}

// RecordOperation records a provider operation with its duration and status.
// This is the primary function for tracking operational metrics.
//
// Parameters:
//   - operation: The operation name (use Op* constants)
//   - status: The operation status (use Status* constants)
//   - duration: The operation duration in seconds
func RecordOperation(operation, status string, duration float64) {
	if !enabled.Load() {
		return
	}
	OperationsTotal.WithLabelValues(operation, status).Inc()
	OperationDuration.WithLabelValues(operation).Observe(duration)
}

// RecordError records an error event with context about where it occurred.
// Use ErrorLabel to derive a stable error_type from a returned error.
func RecordError(operation, errorType string) {
	if !enabled.Load() {
		return
	}
	ErrorsTotal.WithLabelValues(operation, errorType).Inc()
}

// SetOccupiedSlots sets the open key slot gauge.
func SetOccupiedSlots(n int) {
	if !enabled.Load() {
		return
	}
	OccupiedSlots.Set(float64(n))
}

// AddRandomBytes adds to the random byte counter.
func AddRandomBytes(n int) {
	if !enabled.Load() || n <= 0 {
		return
	}
	RandomBytesTotal.Add(float64(n))
}

// RecordStorageError increments the storage failure counter.
func RecordStorageError() {
	if !enabled.Load() {
		return
	}
	StorageErrorsTotal.Inc()
}

// ErrorLabel maps an error to a stable error_type label value. Unrecognized
// errors fold into "internal" to keep the label cardinality bounded.
func ErrorLabel(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, types.ErrInvalidHandle):
		return "invalid_handle"
	case errors.Is(err, types.ErrEmptySlot):
		return "empty_slot"
	case errors.Is(err, types.ErrOccupiedSlot):
		return "occupied_slot"
	case errors.Is(err, types.ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, types.ErrNotFound):
		return "not_found"
	case errors.Is(err, types.ErrNotPermitted):
		return "not_permitted"
	case errors.Is(err, types.ErrNotSupported):
		return "not_supported"
	case errors.Is(err, types.ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, types.ErrBadState):
		return "bad_state"
	case errors.Is(err, types.ErrBufferTooSmall):
		return "buffer_too_small"
	case errors.Is(err, types.ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, types.ErrInvalidPadding):
		return "invalid_padding"
	case errors.Is(err, types.ErrInsufficientCapacity):
		return "insufficient_capacity"
	case errors.Is(err, types.ErrInsufficientMemory):
		return "insufficient_memory"
	case errors.Is(err, types.ErrInsufficientStorage):
		return "insufficient_storage"
	case errors.Is(err, types.ErrStorageFailure):
		return "storage_failure"
	case errors.Is(err, types.ErrInsufficientEntropy):
		return "insufficient_entropy"
	case errors.Is(err, types.ErrCommunicationFailure):
		return "communication_failure"
	case errors.Is(err, types.ErrHardwareFailure):
		return "hardware_failure"
	case errors.Is(err, types.ErrTamperingDetected):
		return "tampering_detected"
	default:
		return "internal"
	}
}

// Enable enables metrics collection.
func Enable() {
	enabled.Store(true)
}

// Disable disables metrics collection.
// Useful for testing or when metrics are not desired.
func Disable() {
	enabled.Store(false)
}

// IsEnabled returns whether metrics collection is currently enabled.
func IsEnabled() bool {
	return enabled.Load()
}
