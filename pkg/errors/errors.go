// Package errors provides the structured error system for tiercache with
// error codes, categories, and context. Every recoverable condition inside
// the engine maps to a code here; only configuration validation is fatal.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ErrorCode identifies a class of failure inside the cache engine.
type ErrorCode string

const (
	// Configuration errors. These are the only errors surfaced at
	// construction time; everything else is recovered locally.
	ErrCodeInvalidConfig    ErrorCode = "INVALID_CONFIG"
	ErrCodeConfigValidation ErrorCode = "CONFIG_VALIDATION"
	ErrCodeConfigLoad       ErrorCode = "CONFIG_LOAD"

	// Tier backend errors. A failing backend degrades its tier to
	// memory-only operation; the engine keeps serving.
	ErrCodeBackendUnavailable ErrorCode = "BACKEND_UNAVAILABLE"
	ErrCodeBackendLoad        ErrorCode = "BACKEND_LOAD"
	ErrCodeBackendPersist     ErrorCode = "BACKEND_PERSIST"
	ErrCodeSchemaMismatch     ErrorCode = "SCHEMA_MISMATCH"
	ErrCodeChecksumMismatch   ErrorCode = "CHECKSUM_MISMATCH"

	// Codec errors. Compression failures fall back to the raw value and
	// never fail the cache call.
	ErrCodeCodecFailure ErrorCode = "CODEC_FAILURE"

	// Metrics errors. A missing snapshot skips adaptation until fresh
	// data arrives.
	ErrCodeMetricsUnavailable ErrorCode = "METRICS_UNAVAILABLE"
	ErrCodeMetricsTimeout     ErrorCode = "METRICS_TIMEOUT"

	// Resource errors.
	ErrCodeCapacityExhausted ErrorCode = "CAPACITY_EXHAUSTED"
	ErrCodeTierFull          ErrorCode = "TIER_FULL"

	// State errors.
	ErrCodeInvalidState   ErrorCode = "INVALID_STATE"
	ErrCodeEngineClosed   ErrorCode = "ENGINE_CLOSED"
	ErrCodeAlreadyStarted ErrorCode = "ALREADY_STARTED"

	// Internal errors.
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// ErrorCategory represents the general category of an error.
type ErrorCategory string

const (
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryBackend       ErrorCategory = "backend"
	CategoryCodec         ErrorCategory = "codec"
	CategoryMetrics       ErrorCategory = "metrics"
	CategoryResource      ErrorCategory = "resource"
	CategoryState         ErrorCategory = "state"
	CategoryInternal      ErrorCategory = "internal"
)

// CacheError is a structured error with code, category, and context.
type CacheError struct {
	Code     ErrorCode              `json:"code"`
	Category ErrorCategory          `json:"category"`
	Message  string                 `json:"message"`
	Details  map[string]interface{} `json:"details,omitempty"`

	Cause     error     `json:"-"` // not serialized, reachable via Unwrap
	Timestamp time.Time `json:"timestamp"`

	Component string `json:"component,omitempty"`
	Operation string `json:"operation,omitempty"`

	Retryable bool `json:"retryable"`
}

// Error implements the error interface.
func (e *CacheError) Error() string {
	if e.Component != "" {
		if e.Operation != "" {
			return fmt.Sprintf("[%s:%s] %s: %s", e.Component, e.Operation, e.Code, e.Message)
		}
		return fmt.Sprintf("[%s] %s: %s", e.Component, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *CacheError) Unwrap() error {
	return e.Cause
}

// Is matches errors by code so sentinel comparison works across wrapping.
func (e *CacheError) Is(target error) bool {
	if other, ok := target.(*CacheError); ok {
		return e.Code == other.Code
	}
	return false
}

// New creates a structured error with category and retryability derived
// from the code.
func New(code ErrorCode, message string) *CacheError {
	return &CacheError{
		Code:      code,
		Category:  categoryOf(code),
		Message:   message,
		Timestamp: time.Now(),
		Retryable: retryableByDefault(code),
	}
}

// Newf creates a structured error with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *CacheError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap creates a structured error around an existing cause.
func Wrap(cause error, code ErrorCode, message string) *CacheError {
	e := New(code, message)
	e.Cause = cause
	return e
}

// WithComponent sets the component for an error.
func (e *CacheError) WithComponent(component string) *CacheError {
	e.Component = component
	return e
}

// WithOperation sets the operation for an error.
func (e *CacheError) WithOperation(operation string) *CacheError {
	e.Operation = operation
	return e
}

// WithDetail attaches a detail value to an error.
func (e *CacheError) WithDetail(key string, value interface{}) *CacheError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// CodeOf extracts the error code, or ErrCodeInternalError for plain errors.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	if ce, ok := err.(*CacheError); ok {
		return ce.Code
	}
	return ErrCodeInternalError
}

// IsRetryable reports whether the error is worth retrying.
func IsRetryable(err error) bool {
	if ce, ok := err.(*CacheError); ok {
		return ce.Retryable
	}
	return false
}

func categoryOf(code ErrorCode) ErrorCategory {
	s := string(code)
	switch {
	case strings.HasPrefix(s, "INVALID_CONFIG") || strings.HasPrefix(s, "CONFIG_"):
		return CategoryConfiguration
	case strings.HasPrefix(s, "BACKEND_") || strings.HasPrefix(s, "SCHEMA_") || strings.HasPrefix(s, "CHECKSUM_"):
		return CategoryBackend
	case strings.HasPrefix(s, "CODEC_"):
		return CategoryCodec
	case strings.HasPrefix(s, "METRICS_"):
		return CategoryMetrics
	case strings.HasPrefix(s, "CAPACITY_") || strings.HasPrefix(s, "TIER_"):
		return CategoryResource
	case strings.HasPrefix(s, "INVALID_STATE") || strings.HasPrefix(s, "ENGINE_") || strings.HasPrefix(s, "ALREADY_"):
		return CategoryState
	default:
		return CategoryInternal
	}
}

func retryableByDefault(code ErrorCode) bool {
	switch code {
	case ErrCodeBackendUnavailable, ErrCodeBackendLoad, ErrCodeBackendPersist,
		ErrCodeMetricsUnavailable, ErrCodeMetricsTimeout, ErrCodeInternalError:
		return true
	}
	return false
}
