// Package apperr defines the error taxonomy shared by the scheduling core.
//
// Every typed error unwraps to one of the sentinel kinds below, so callers
// branch with errors.Is and extract context with errors.As.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrDependencyNotMet  = errors.New("dependency not met")
	ErrEvidenceRequired  = errors.New("evidence required")
	ErrPermission        = errors.New("permission denied")
	ErrStorage           = errors.New("storage failure")
)

// ValidationError reports malformed input before any mutation happens.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Message
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid is shorthand for a *ValidationError.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a missing referenced entity.
type NotFoundError struct {
	Entity string
	ID     any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %v", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NotFound is shorthand for a *NotFoundError.
func NotFound(entity string, id any) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// TransitionError reports a state-machine action attempted from a state that
// does not permit it. Current is the actual state, for client reconciliation.
type TransitionError struct {
	UserTaskID uint
	Action     string
	Current    string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("user task %d: cannot %s from status %q", e.UserTaskID, e.Action, e.Current)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// DependencyError reports completion attempted before the user tasks it
// depends on are completed.
type DependencyError struct {
	UserTaskID uint
	Blocking   []uint
}

func (e *DependencyError) Error() string {
	ids := make([]string, len(e.Blocking))
	for i, id := range e.Blocking {
		ids[i] = fmt.Sprint(id)
	}
	return fmt.Sprintf("user task %d: waiting on [%s]", e.UserTaskID, strings.Join(ids, ", "))
}

func (e *DependencyError) Unwrap() error { return ErrDependencyNotMet }

// EvidenceError reports a completion missing mandatory evidence.
type EvidenceError struct {
	UserTaskID uint
	Reason     string
}

func (e *EvidenceError) Error() string {
	return fmt.Sprintf("user task %d: evidence required: %s", e.UserTaskID, e.Reason)
}

func (e *EvidenceError) Unwrap() error { return ErrEvidenceRequired }

// PermissionError reports an actor lacking the capability for an action.
type PermissionError struct {
	ActorID uint
	Action  string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %d may not %s", e.ActorID, e.Action)
}

func (e *PermissionError) Unwrap() error { return ErrPermission }

// StorageError wraps a store failure. Its message includes the store error for
// operators; the HTTP boundary replaces it with a generic message.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error { return []error{ErrStorage, e.Err} }

// Storage wraps err as a *StorageError unless it is nil or already
// classified by this package.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	if Classified(err) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// Classified reports whether err already belongs to one of the kinds.
func Classified(err error) bool {
	for _, kind := range []error{ErrValidation, ErrNotFound, ErrInvalidTransition, ErrDependencyNotMet, ErrEvidenceRequired, ErrPermission, ErrStorage} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
