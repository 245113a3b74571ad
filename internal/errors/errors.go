package errors

import (
	"errors"
	"fmt"
)

// Common error types for the journal client
var (
	// Session errors
	ErrNotLoggedIn  = errors.New("not logged in")
	ErrNoSession    = errors.New("no session stored")
	ErrSessionStore = errors.New("session store failure")

	// Authorization errors
	ErrInvalidAuthResult = errors.New("invalid authorization result")
	ErrStateMismatch     = errors.New("authorization state not recognised")
	ErrNonceMismatch     = errors.New("identity token nonce mismatch")

	// General errors
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New returns an error that formats as the given text
func New(text string) error {
	return errors.New(text)
}
