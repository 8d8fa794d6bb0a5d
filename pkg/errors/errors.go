// Package errors provides the error types used across tasklink.
// Typed errors carry enough context for callers to branch with errors.Is
// and errors.As, and for the HTTP layer to pick a status code.
package errors

import (
	"errors"
	"fmt"
)

// Standard library passthroughs so callers need a single errors import.
var (
	New = errors.New
	Is  = errors.Is
	As  = errors.As
)

// Sentinel errors.
var (
	// ErrNotFound indicates that a requested resource was not found.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyLinked indicates that an identifier is already bound to another pair.
	ErrAlreadyLinked = errors.New("already linked")

	// ErrInvalidInput indicates that provided input was invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAPIRequest indicates that a remote system rejected or failed a request.
	ErrAPIRequest = errors.New("remote request failed")

	// ErrRateLimited indicates that a remote rate limit has been exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = errors.New("operation timed out")

	// ErrCanceled indicates that an operation was canceled.
	ErrCanceled = errors.New("operation canceled")
)

// NotFoundError represents an error when a resource is not found.
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError represents a validation failure.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// AlreadyLinkedError is returned when a link would rebind an identifier
// that another pair already holds.
type AlreadyLinkedError struct {
	Side   string // "a" or "b"
	ID     string // the identifier that is already bound
	PairID string // the pair currently holding it
}

// Error implements the error interface.
func (e *AlreadyLinkedError) Error() string {
	if e.PairID != "" {
		return fmt.Sprintf("record %s on side %s is already linked (pair %s)", e.ID, e.Side, e.PairID)
	}
	return fmt.Sprintf("record %s on side %s is already linked", e.ID, e.Side)
}

// Is implements errors.Is support.
func (e *AlreadyLinkedError) Is(target error) bool {
	return target == ErrAlreadyLinked
}

// NewAlreadyLinkedError creates a new AlreadyLinkedError.
func NewAlreadyLinkedError(side, id, pairID string) *AlreadyLinkedError {
	return &AlreadyLinkedError{Side: side, ID: id, PairID: pairID}
}

// APIError represents an error returned by a remote task system.
type APIError struct {
	System     string
	StatusCode int
	Message    string
	Endpoint   string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("API error from %s (status %d): %s", e.System, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error from %s: %s", e.System, e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support.
func (e *APIError) Is(target error) bool {
	if target == ErrAPIRequest {
		return true
	}
	return e.StatusCode == 429 && target == ErrRateLimited
}

// NewAPIError creates a new APIError.
func NewAPIError(system string, statusCode int, message string) *APIError {
	return &APIError{
		System:     system,
		StatusCode: statusCode,
		Message:    message,
	}
}

// FetchError records a failed per-record fetch against a remote system.
// Reconciliation passes degrade these into report entries instead of failing.
type FetchError struct {
	System    string
	Operation string // "list_records", "list_comments"
	RecordID  string
	Err       error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.RecordID != "" {
		return fmt.Sprintf("%s %s failed for %s: %v", e.System, e.Operation, e.RecordID, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %v", e.System, e.Operation, e.Err)
}

// Unwrap implements errors.Unwrap.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError creates a new FetchError.
func NewFetchError(system, operation, recordID string, err error) *FetchError {
	return &FetchError{System: system, Operation: operation, RecordID: recordID, Err: err}
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError.
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// StoreError represents a failed persistence operation.
type StoreError struct {
	Operation string // "get", "create", "update", "delete", "upsert", "append"
	Resource  string // "pair", "snapshot", "change"
	ID        string
	Err       error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("failed to %s %s %s: %v", e.Operation, e.Resource, e.ID, e.Err)
	}
	return fmt.Sprintf("failed to %s %s: %v", e.Operation, e.Resource, e.Err)
}

// Unwrap implements errors.Unwrap.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError.
func NewStoreError(operation, resource, id string, err error) *StoreError {
	return &StoreError{Operation: operation, Resource: resource, ID: id, Err: err}
}

// ParseError represents an error when parsing data formats.
type ParseError struct {
	Format  string // "json", "yaml"
	File    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyLinked checks if an error is a link conflict.
func IsAlreadyLinked(err error) bool {
	return errors.Is(err, ErrAlreadyLinked)
}

// IsValidationError checks if an error is a validation error.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsRateLimited checks if an error is a rate limit error.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsAPIError checks if an error came from a remote system.
func IsAPIError(err error) bool {
	return errors.Is(err, ErrAPIRequest)
}

// WrapStore wraps an error as a StoreError.
func WrapStore(operation, resource, id string, err error) error {
	if err == nil {
		return nil
	}
	return NewStoreError(operation, resource, id, err)
}

// WrapParse wraps an error as a ParseError.
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return &ParseError{Format: format, File: file, Message: err.Error(), Err: err}
}

// WrapAPI wraps an error as an APIError.
func WrapAPI(system string, statusCode int, err error) error {
	if err == nil {
		return nil
	}
	return &APIError{
		System:     system,
		StatusCode: statusCode,
		Message:    err.Error(),
		Err:        err,
	}
}
