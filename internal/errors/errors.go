// Package errors defines the typed error kinds named in the error handling
// design (§7): I/O failure during persistence, unknown target on load (always
// recoverable), and programmer-error assertions. Ordinary Go errors from
// collaborators (stamp store, filesystem) are returned to the caller as they
// are, not wrapped; the exception is a failed stamp removal inside
// FSState.MarkDirty and MarkDirtyIfNotDeleted, which is not reported.
package errors

import (
	"fmt"
	"time"
)

// ErrorType classifies an error for callers that branch on kind rather than
// doing a type assertion.
type ErrorType string

const (
	ErrorTypeState    ErrorType = "state"    // I/O failure saving/loading FSS (§7a)
	ErrorTypeTarget   ErrorType = "target"   // unknown target encountered on load (§7b)
	ErrorTypeConfig   ErrorType = "config"
	ErrorTypeAssert   ErrorType = "assert"   // programmer error (§7e)
)

// StateError wraps an I/O failure encountered while saving or loading
// persisted FSS data. The in-memory FSState remains consistent; callers
// decide whether to retry or abort.
type StateError struct {
	Operation  string // "save" or "load"
	Underlying error
	Timestamp  time.Time
}

func NewStateError(op string, err error) *StateError {
	return &StateError{Operation: op, Underlying: err, Timestamp: time.Now()}
}

func (e *StateError) Error() string {
	return fmt.Sprintf("fsstate %s failed: %v", e.Operation, e.Underlying)
}

func (e *StateError) Unwrap() error {
	return e.Underlying
}

// UnknownTargetError records a target referenced by a persisted record whose
// type is no longer registered, or whose id that type's loader no longer
// resolves (§7b). It is never returned as a fatal error;
// it exists so callers that want the detail (rather than just the Info log
// line) can collect it.
type UnknownTargetError struct {
	TypeID   string
	TargetID string
}

func NewUnknownTargetError(typeID, targetID string) *UnknownTargetError {
	return &UnknownTargetError{TypeID: typeID, TargetID: targetID}
}

func (e *UnknownTargetError) Error() string {
	return fmt.Sprintf("unknown target %q of type %q, record skipped", e.TargetID, e.TypeID)
}

// ConfigError reports a problem parsing or validating a configuration file.
type ConfigError struct {
	Field      string
	Value      string
	Underlying error
}

func NewConfigError(field, value string, err error) *ConfigError {
	return &ConfigError{Field: field, Value: value, Underlying: err}
}

func (e *ConfigError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("config error for field %s: %v", e.Field, e.Underlying)
	}
	return fmt.Sprintf("config error for field %s (value %q): %v", e.Field, e.Value, e.Underlying)
}

func (e *ConfigError) Unwrap() error {
	return e.Underlying
}

// AssertionError marks a programmer error (§7e): a null target, iteration
// without the delta lock held, or similar contract violation that is never
// expected at runtime. Panics with this type are intentional — callers of
// the public API are not expected to recover from it.
type AssertionError struct {
	Message string
}

func NewAssertionError(format string, args ...interface{}) *AssertionError {
	return &AssertionError{Message: fmt.Sprintf(format, args...)}
}

func (e *AssertionError) Error() string {
	return "assertion failed: " + e.Message
}

// MultiError aggregates independent failures into one error. FSState.Load
// does not use it: it stops at and returns the first failure.
type MultiError struct {
	Errors []error
}

func NewMultiError(errs []error) *MultiError {
	filtered := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	return &MultiError{Errors: filtered}
}

func (e *MultiError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors, first: %v", len(e.Errors), e.Errors[0])
}

func (e *MultiError) Unwrap() []error {
	return e.Errors
}
