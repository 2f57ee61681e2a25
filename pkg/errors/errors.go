// Package errors provides custom error types for the staffsync system.
// These errors enable programmatic error checking and carry enough context
// for the orchestrator to decide whether a failure happened before or after
// the store was touched.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Is reports whether any error in err's tree matches target.
var Is = errors.Is

// As finds the first error in err's tree that matches target.
var As = errors.As

// Common sentinel errors for the staffsync system
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrSchemaMismatch indicates entity types differ between inputs
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrLeaseHeld indicates a mutating sync is already in flight for
	// the entity type
	ErrLeaseHeld = errors.New("lease held")

	// ErrCaptureFailed indicates a snapshot could not be taken
	ErrCaptureFailed = errors.New("snapshot capture failed")

	// ErrCommitFailed indicates the store write failed mid-transaction
	ErrCommitFailed = errors.New("commit failed")

	// ErrRestoreFailed indicates a rollback itself failed; fatal
	ErrRestoreFailed = errors.New("restore failed")
)

// SchemaMismatchError reports inputs whose entity types disagree. It is
// raised before any I/O and always aborts the run with no side effects.
type SchemaMismatchError struct {
	Expected string
	Got      string
	Key      string
}

// Error implements the error interface
func (e *SchemaMismatchError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("schema mismatch: record %s has entity type %s, expected %s", e.Key, e.Got, e.Expected)
	}
	return fmt.Sprintf("schema mismatch: got entity type %s, expected %s", e.Got, e.Expected)
}

// Is implements errors.Is support
func (e *SchemaMismatchError) Is(target error) bool {
	return target == ErrSchemaMismatch
}

// NewSchemaMismatchError creates a new SchemaMismatchError
func NewSchemaMismatchError(expected, got, key string) *SchemaMismatchError {
	return &SchemaMismatchError{Expected: expected, Got: got, Key: key}
}

// CaptureError reports a failed snapshot capture. The caller must abort
// the sync rather than proceed without a snapshot.
type CaptureError struct {
	EntityType string
	Err        error
}

// Error implements the error interface
func (e *CaptureError) Error() string {
	return fmt.Sprintf("failed to capture snapshot for %s: %v", e.EntityType, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *CaptureError) Unwrap() error { return e.Err }

// Is implements errors.Is support
func (e *CaptureError) Is(target error) bool { return target == ErrCaptureFailed }

// NewCaptureError creates a new CaptureError
func NewCaptureError(entityType string, err error) *CaptureError {
	return &CaptureError{EntityType: entityType, Err: err}
}

// CommitError reports a failed store write during COMMITTING. The
// orchestrator responds by rolling back to the run's snapshot.
type CommitError struct {
	EntityType string
	SnapshotID string
	Err        error
}

// Error implements the error interface
func (e *CommitError) Error() string {
	return fmt.Sprintf("commit failed for %s: %v", e.EntityType, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *CommitError) Unwrap() error { return e.Err }

// Is implements errors.Is support
func (e *CommitError) Is(target error) bool { return target == ErrCommitFailed }

// NewCommitError creates a new CommitError
func NewCommitError(entityType, snapshotID string, err error) *CommitError {
	return &CommitError{EntityType: entityType, SnapshotID: snapshotID, Err: err}
}

// SnapshotNotFoundError reports an unknown snapshot id.
type SnapshotNotFoundError struct {
	ID string
}

// Error implements the error interface
func (e *SnapshotNotFoundError) Error() string {
	return fmt.Sprintf("snapshot %s not found", e.ID)
}

// Is implements errors.Is support
func (e *SnapshotNotFoundError) Is(target error) bool { return target == ErrNotFound }

// NewSnapshotNotFoundError creates a new SnapshotNotFoundError
func NewSnapshotNotFoundError(id string) *SnapshotNotFoundError {
	return &SnapshotNotFoundError{ID: id}
}

// RestoreFailedError reports that a rollback failed after bounded retries.
// This is the one fatal condition requiring operator intervention; the
// snapshot id is surfaced so the operator can retry by hand.
type RestoreFailedError struct {
	SnapshotID string
	Attempts   int
	Err        error
}

// Error implements the error interface
func (e *RestoreFailedError) Error() string {
	return fmt.Sprintf("FATAL: restore of snapshot %s failed after %d attempts: %v", e.SnapshotID, e.Attempts, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *RestoreFailedError) Unwrap() error { return e.Err }

// Is implements errors.Is support
func (e *RestoreFailedError) Is(target error) bool { return target == ErrRestoreFailed }

// NewRestoreFailedError creates a new RestoreFailedError
func NewRestoreFailedError(snapshotID string, attempts int, err error) *RestoreFailedError {
	return &RestoreFailedError{SnapshotID: snapshotID, Attempts: attempts, Err: err}
}

// LeaseError reports a mutating sync attempted while another sync holds
// the entity type's lease.
type LeaseError struct {
	EntityType string
}

// Error implements the error interface
func (e *LeaseError) Error() string {
	return fmt.Sprintf("sync already in flight for entity type %s", e.EntityType)
}

// Is implements errors.Is support
func (e *LeaseError) Is(target error) bool { return target == ErrLeaseHeld }

// NewLeaseError creates a new LeaseError
func NewLeaseError(entityType string) *LeaseError {
	return &LeaseError{EntityType: entityType}
}

// ValidationError represents a validation failure on adapter or store input
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
func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// ParseError represents an error when parsing source artifacts
type ParseError struct {
	Format  string // "json", "yaml"
	File    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error { return e.Err }

// NewParseError creates a new ParseError
func NewParseError(format, file, message string, err error) *ParseError {
	return &ParseError{Format: format, File: file, Message: message, Err: err}
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "open", "close"
	Path      string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("IO error during %s: %v", e.Operation, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error { return e.Err }

// NewIOError creates a new IOError
func NewIOError(operation, path string, err error) *IOError {
	return &IOError{Operation: operation, Path: path, Err: err}
}

// ChecksumError reports snapshot content that no longer matches its
// recorded checksum.
type ChecksumError struct {
	SnapshotID string
	Expected   string
	Got        string
}

// Error implements the error interface
func (e *ChecksumError) Error() string {
	return fmt.Sprintf("snapshot %s checksum mismatch: expected %s, got %s", e.SnapshotID, e.Expected, e.Got)
}

// NewChecksumError creates a new ChecksumError
func NewChecksumError(snapshotID, expected, got string) *ChecksumError {
	return &ChecksumError{SnapshotID: snapshotID, Expected: expected, Got: got}
}

// PruneError reports a partially failed snapshot prune.
type PruneError struct {
	OlderThan time.Time
	Err       error
}

// Error implements the error interface
func (e *PruneError) Error() string {
	return fmt.Sprintf("prune of snapshots older than %s failed: %v", e.OlderThan.Format(time.RFC3339), e.Err)
}

// Unwrap implements errors.Unwrap
func (e *PruneError) Unwrap() error { return e.Err }

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsSchemaMismatch checks if an error is a schema mismatch
func IsSchemaMismatch(err error) bool {
	return errors.Is(err, ErrSchemaMismatch)
}

// IsLeaseHeld checks if an error means another sync holds the lease
func IsLeaseHeld(err error) bool {
	return errors.Is(err, ErrLeaseHeld)
}

// IsFatal checks if an error requires operator intervention rather than
// automatic retry. Only a failed restore qualifies.
func IsFatal(err error) bool {
	return errors.Is(err, ErrRestoreFailed)
}

// IsCommitFailure checks if an error came from the commit phase
func IsCommitFailure(err error) bool {
	return errors.Is(err, ErrCommitFailed)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// Helper wrapping functions for common patterns

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}
