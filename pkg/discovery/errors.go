package discovery

import (
	"fmt"
)

// UsageError is returned on malformed arguments or configuration.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("invalid usage: %v", e.Err)
}

func (e *UsageError) Unwrap() error {
	return e.Err
}

// InitializationError is returned when the provider cannot start.
type InitializationError struct {
	Err error
}

func (e *InitializationError) Error() string {
	if e.Err == nil {
		return "failed to initialize discovery provider"
	}
	return fmt.Sprintf("failed to initialize discovery provider: %v", e.Err)
}

func (e *InitializationError) Unwrap() error {
	return e.Err
}

// SessionCreateError is returned when the provider returns no session.
type SessionCreateError struct {
	Err error
}

func (e *SessionCreateError) Error() string {
	if e.Err == nil {
		return "failed to create discovery session"
	}
	return fmt.Sprintf("failed to create discovery session: %v", e.Err)
}

func (e *SessionCreateError) Unwrap() error {
	return e.Err
}
