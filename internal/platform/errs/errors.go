package errs

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is a generic sentinel for auth failures.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrConflict reports a lost compare-and-swap or a duplicate key.
	ErrConflict = errors.New("conflict")
	// ErrConcurrentUpdate is returned when a compare-and-swap loop gives up.
	ErrConcurrentUpdate = errors.New("concurrent update")
)
