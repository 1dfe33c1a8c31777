package service

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyLiked is returned when the device guard already holds a like
	// for the app. It is a denied duplicate, not a system failure.
	ErrAlreadyLiked = errors.New("already liked")
	ErrNoDownload   = errors.New("app has no direct download")
)

// ValidationError is bad user input caught before any store access.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// PersistenceError wraps a store failure. Local state is left as it was
// before the attempt, so the caller may retry.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}
