package model

import (
	"errors"
	"fmt"
	"strings"
)

// NotFoundError is returned when a referenced definition, node, instance,
// execution or template does not exist, or when a process has no start node
type NotFoundError struct {
	Kind string
	ID   string
	msg  string
}

func (e *NotFoundError) Error() string {
	if e.msg != "" {
		return e.msg
	}
	return fmt.Sprintf("%s '%s' not found", e.Kind, e.ID)
}

// NewNotFoundError creates a NotFoundError for the specified kind of entity
func NewNotFoundError(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

// NewNotFoundErrorf creates a NotFoundError with a custom message
func NewNotFoundErrorf(kind, id, format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id, msg: fmt.Sprintf(format, args...)}
}

// ConflictError is returned for illegal state transitions
type ConflictError struct {
	Kind string
	ID   string
	msg  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s '%s': %s", e.Kind, e.ID, e.msg)
}

// NewConflictError creates a ConflictError for the specified entity
func NewConflictError(kind, id, format string, args ...interface{}) *ConflictError {
	return &ConflictError{Kind: kind, ID: id, msg: fmt.Sprintf(format, args...)}
}

// ValidationError is returned when activation is attempted on a graph that
// did not pass validation
type ValidationError struct {
	ProcessID string
	Issues    []string
	Warnings  []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("process '%s' failed validation: %s", e.ProcessID, strings.Join(e.Issues, "; "))
}

// IsNotFound returns true if err is, or wraps, a NotFoundError
func IsNotFound(err error) bool {
	var nfErr *NotFoundError
	return errors.As(err, &nfErr)
}

// IsConflict returns true if err is, or wraps, a ConflictError
func IsConflict(err error) bool {
	var cErr *ConflictError
	return errors.As(err, &cErr)
}

// IsValidation returns true if err is, or wraps, a ValidationError
func IsValidation(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}
