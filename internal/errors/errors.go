package errors

import (
	"errors"
	"fmt"
)

// Common error types for the prompt client
var (
	// Boot errors
	ErrAuthInit = errors.New("identity client initialization failed")

	// Interactive authentication errors
	ErrAuthInteraction = errors.New("interactive authentication failed")

	// Token errors
	ErrTokenAcquisition = errors.New("token acquisition failed")

	// Request errors
	ErrEmptyResponse = errors.New("response field is empty")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
