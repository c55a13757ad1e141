package errors

import (
	"errors"
	"fmt"
)

// Common error types for the link server
var (
	// Input errors
	ErrInvalidPhone = errors.New("invalid phone number")

	// Credential store errors
	ErrNotYetAvailable = errors.New("credentials not yet available")
	ErrCodeNotFound    = errors.New("code not found")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionTerminal = errors.New("session already terminal")

	// Link flow errors
	ErrLinkTimeout    = errors.New("link attempt timed out")
	ErrUpstreamClosed = errors.New("upstream connection closed")

	// General errors
	ErrNotFound = errors.New("not found")
	ErrInternal = errors.New("internal error")
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
