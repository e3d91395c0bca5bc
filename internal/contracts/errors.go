package contracts

import (
	"errors"
	"fmt"
)

// Error taxonomy. Match with errors.Is.
var (
	// ErrNotFound is normal absence; callers treat it as an empty result
	ErrNotFound = errors.New("not found")
	// ErrSourceUnavailable is a transient provider failure (network, timeout, 5xx)
	ErrSourceUnavailable = errors.New("market data source unavailable")
	// ErrPersistence is a failed store write
	ErrPersistence = errors.New("persistence failure")
	// ErrValidation is malformed input, rejected before any I/O
	ErrValidation = errors.New("validation failed")
)

// SourceError wraps a provider failure for one operation and key
type SourceError struct {
	Op  string
	Key string
	Err error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Key, e.Err)
}

// Unwrap exposes both the taxonomy sentinel and the cause
func (e *SourceError) Unwrap() []error {
	return []error{ErrSourceUnavailable, e.Err}
}

// NewSourceError wraps err unless it already is a NotFound
func NewSourceError(op, key string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) {
		return err
	}
	return &SourceError{Op: op, Key: key, Err: err}
}

// ValidationError describes one rejected input field
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// PersistenceError wraps a store failure
func PersistenceError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}
