// Package service implements the todo and account operations shared by the
// REST and Connect transports.
package service

import "errors"

var (
	// ErrNotFound covers both missing todos and todos owned by someone else.
	ErrNotFound = errors.New("todo not found")
	// ErrInvalidArgument wraps every input validation failure.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnauthenticated is returned when no owner is attached to the call.
	ErrUnauthenticated = errors.New("authentication required")
)
