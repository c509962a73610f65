package trudesk

import (
	"errors"
	"fmt"
)

// Base URL validation errors.
var (
	ErrInvalidScheme    = errors.New("only http and https allowed")
	ErrPrivateIP        = errors.New("private IP addresses not allowed")
	ErrLocalhostBlocked = errors.New("localhost not allowed")
	ErrInvalidURL       = errors.New("invalid URL format")
	ErrEmptyHost        = errors.New("URL must have a host")
	ErrUserInfo         = errors.New("URL must not embed credentials")
)

var (
	// ErrLoginFailed is returned when the helpdesk rejects the credentials.
	ErrLoginFailed = errors.New("incorrect credentials")
	// ErrUnexpectedShape is wrapped by a DecodeError when a 2xx body parses
	// but does not carry the expected list.
	ErrUnexpectedShape = errors.New("unexpected response shape")
)

// StatusError reports a non-2xx answer from the helpdesk.
type StatusError struct {
	Op         string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("trudesk %s: unexpected status %d", e.Op, e.StatusCode)
}

// DecodeError reports a response body that does not match the expected shape.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("trudesk %s: decode response: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
