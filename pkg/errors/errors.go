// Package errors provides custom error types for the advisor system.
// These errors enable programmatic error checking throughout the collection
// pipeline: record-level errors never abort a batch, region-level errors
// never abort a source, and source-level errors never abort a cycle as long
// as at least one source succeeded.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Is and As are aliases for the standard library equivalents so callers
// don't need a second errors import.
var (
	Is = errors.Is
	As = errors.As
)

// Common sentinel errors for the advisor system
var (
	// ErrRateLimited indicates that a source exhausted its rate-limit retries
	ErrRateLimited = errors.New("rate limited")

	// ErrSourceUnavailable indicates that a source failed hard (auth, exhausted 5xx)
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrCircuitOpen indicates that a source's circuit breaker is open
	ErrCircuitOpen = errors.New("circuit open")

	// ErrMalformedRecord indicates a raw record that could not be normalized
	ErrMalformedRecord = errors.New("malformed record")

	// ErrAllSourcesFailed indicates that a cycle collected no usable data
	ErrAllSourcesFailed = errors.New("all sources failed")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrTimeout indicates that an operation timed out
	ErrTimeout = errors.New("operation timed out")
)

// RateLimitedError reports that a region fetch exhausted its retries
// against a rate-limiting source. It is scoped to one source and region;
// sibling regions are unaffected.
type RateLimitedError struct {
	Source  string
	Region  string
	Retries int
}

// Error implements the error interface
func (e *RateLimitedError) Error() string {
	if e.Region != "" {
		return fmt.Sprintf("source %s rate limited in region %s after %d retries", e.Source, e.Region, e.Retries)
	}
	return fmt.Sprintf("source %s rate limited after %d retries", e.Source, e.Retries)
}

// Is implements errors.Is support
func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}

// NewRateLimitedError creates a new RateLimitedError
func NewRateLimitedError(source, region string, retries int) *RateLimitedError {
	return &RateLimitedError{Source: source, Region: region, Retries: retries}
}

// SourceUnavailableError reports a hard failure against a source: an auth
// rejection or a server error that survived all retries.
type SourceUnavailableError struct {
	Source     string
	Region     string
	StatusCode int
	Err        error
}

// Error implements the error interface
func (e *SourceUnavailableError) Error() string {
	if e.Region != "" {
		return fmt.Sprintf("source %s unavailable in region %s (status %d): %v", e.Source, e.Region, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("source %s unavailable (status %d): %v", e.Source, e.StatusCode, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *SourceUnavailableError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *SourceUnavailableError) Is(target error) bool {
	return target == ErrSourceUnavailable
}

// NewSourceUnavailableError creates a new SourceUnavailableError
func NewSourceUnavailableError(source, region string, statusCode int, err error) *SourceUnavailableError {
	return &SourceUnavailableError{Source: source, Region: region, StatusCode: statusCode, Err: err}
}

// CircuitOpenError reports a fast-failed call against a source whose
// circuit breaker is open for the remainder of the collection cycle.
type CircuitOpenError struct {
	Source   string
	Failures int
}

// Error implements the error interface
func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("source %s circuit open after %d consecutive failures", e.Source, e.Failures)
}

// Is implements errors.Is support
func (e *CircuitOpenError) Is(target error) bool {
	return target == ErrCircuitOpen
}

// NewCircuitOpenError creates a new CircuitOpenError
func NewCircuitOpenError(source string, failures int) *CircuitOpenError {
	return &CircuitOpenError{Source: source, Failures: failures}
}

// TimeoutError reports a region fetch truncated by the collection
// deadline. The region contributes whatever it had already gathered;
// the entry lets the consumer flag the data as incomplete.
type TimeoutError struct {
	Source string
	Region string
}

// Error implements the error interface
func (e *TimeoutError) Error() string {
	if e.Region != "" {
		return fmt.Sprintf("source %s timed out in region %s", e.Source, e.Region)
	}
	return fmt.Sprintf("source %s timed out", e.Source)
}

// Is implements errors.Is support
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// NewTimeoutError creates a new TimeoutError
func NewTimeoutError(source, region string) *TimeoutError {
	return &TimeoutError{Source: source, Region: region}
}

// MalformedRecordError reports a single raw record that could not be
// normalized. It is logged and tallied, never fatal for the batch.
type MalformedRecordError struct {
	Source string
	Field  string
	Reason string
}

// Error implements the error interface
func (e *MalformedRecordError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("malformed record from %s: field %s: %s", e.Source, e.Field, e.Reason)
	}
	return fmt.Sprintf("malformed record from %s: %s", e.Source, e.Reason)
}

// Is implements errors.Is support
func (e *MalformedRecordError) Is(target error) bool {
	return target == ErrMalformedRecord
}

// NewMalformedRecordError creates a new MalformedRecordError
func NewMalformedRecordError(source, field, reason string) *MalformedRecordError {
	return &MalformedRecordError{Source: source, Field: field, Reason: reason}
}

// CollectionError reports a cycle that produced no usable data from any
// source. The caller falls back to the cached report.
type CollectionError struct {
	CycleID string
	Errs    []error
}

// Error implements the error interface
func (e *CollectionError) Error() string {
	return fmt.Sprintf("collection cycle %s: all sources failed (%d errors)", e.CycleID, len(e.Errs))
}

// Unwrap implements errors.Unwrap for multi-error inspection
func (e *CollectionError) Unwrap() []error {
	return e.Errs
}

// Is implements errors.Is support
func (e *CollectionError) Is(target error) bool {
	return target == ErrAllSourcesFailed
}

// NewCollectionError creates a new CollectionError
func NewCollectionError(cycleID string, errs []error) *CollectionError {
	return &CollectionError{CycleID: cycleID, Errs: errs}
}

// APIError represents an error response from a source API.
type APIError struct {
	Source     string
	StatusCode int
	Endpoint   string
	Message    string
	Err        error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("API error from %s (status %d): %s", e.Source, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error from %s: %s", e.Source, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *APIError) Is(target error) bool {
	if e.StatusCode == 429 {
		return target == ErrRateLimited
	}
	if e.StatusCode >= 500 || e.StatusCode == 401 || e.StatusCode == 403 {
		return target == ErrSourceUnavailable
	}
	return false
}

// NewAPIError creates a new APIError
func NewAPIError(source string, statusCode int, message string) *APIError {
	return &APIError{Source: source, StatusCode: statusCode, Message: message}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{Component: component, Message: message, Err: err}
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// Helper functions for error checking

// IsRateLimited checks if an error is a rate limit error
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsSourceUnavailable checks if an error indicates source unavailability
func IsSourceUnavailable(err error) bool {
	return errors.Is(err, ErrSourceUnavailable)
}

// IsCircuitOpen checks if an error is a circuit breaker rejection
func IsCircuitOpen(err error) bool {
	return errors.Is(err, ErrCircuitOpen)
}

// IsMalformedRecord checks if an error is a single-record normalization failure
func IsMalformedRecord(err error) bool {
	return errors.Is(err, ErrMalformedRecord)
}

// IsAllSourcesFailed checks if an error is a cycle-level collection failure
func IsAllSourcesFailed(err error) bool {
	return errors.Is(err, ErrAllSourcesFailed)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsTimeout checks if an error is a timeout error
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// WrapAPI wraps an error as an APIError
func WrapAPI(source string, statusCode int, err error) error {
	if err == nil {
		return nil
	}
	return &APIError{
		Source:     source,
		StatusCode: statusCode,
		Message:    err.Error(),
		Err:        err,
	}
}
