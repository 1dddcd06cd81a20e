// Package store provides the in-memory hierarchical file store.
//
// This file contains error types and error handling utilities.
package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates no entry of the required kind exists at a path
	ErrNotFound = errors.New("entry not found")

	// ErrAlreadyExists indicates the operation would clobber an existing entry
	ErrAlreadyExists = errors.New("entry already exists")

	// ErrRootImmutable indicates an attempt to delete or rename the root
	ErrRootImmutable = errors.New("root directory cannot be removed or renamed")
)

// Error wraps store errors with context about the operation and affected
// path.
type Error struct {
	Op   string // Operation that failed (e.g., "stat", "write")
	Path string // Affected path
	Err  error  // Underlying error
}

// Error implements the error interface, providing a formatted error message
func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("operation %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("operation %s on %s failed: %v", e.Op, e.Path, e.Err)
}

// Unwrap implements error unwrapping for the errors.Is/As functions
func (e *Error) Unwrap() error {
	return e.Err
}

func newError(op, path string, err error) *Error {
	return &Error{Op: op, Path: path, Err: err}
}

// Kind returns a short label for err, used as a metrics label.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, ErrRootImmutable):
		return "root_immutable"
	default:
		return "error"
	}
}

// Common operation names for consistent logging and error reporting
const (
	OpStat   = "stat"
	OpList   = "list"
	OpRead   = "read"
	OpWrite  = "write"
	OpMkdir  = "mkdir"
	OpDelete = "delete"
	OpRename = "rename"
)
