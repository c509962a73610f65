package ticketing

import (
	"errors"
	"fmt"
)

// Kind classifies gateway failures.
type Kind int

const (
	// KindInternal covers decryption and malformed credential data.
	KindInternal Kind = iota
	// KindNotFound means no credential exists for the id in the workspace.
	KindNotFound
	// KindAuthenticationFailed means the helpdesk rejected the credential.
	KindAuthenticationFailed
	// KindUpstreamError covers transport errors, non-2xx answers and
	// bodies of the wrong shape.
	KindUpstreamError
	// KindInvalidInput means a required argument was empty.
	KindInvalidInput
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindAuthenticationFailed:
		return "authentication_failed"
	case KindUpstreamError:
		return "upstream_error"
	case KindInvalidInput:
		return "invalid_input"
	default:
		return "internal"
	}
}

// Caller-facing messages.
const (
	MessageNotFound    = "No credentials found"
	MessageListFailed  = "Could not list ticket types"
	MessageLoginFailed = "Incorrect credentials"
)

// ErrMissingArgument is the cause of KindInvalidInput errors.
var ErrMissingArgument = errors.New("credentialsId and workspaceId are required")

// Error is returned by every gateway failure. Message is safe to show to the
// caller; Cause carries the detail and is only logged.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// KindOf returns the Kind of err, or KindInternal if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func fail(kind Kind, cause error) *Error {
	msg := MessageListFailed
	switch kind {
	case KindNotFound:
		msg = MessageNotFound
	case KindInvalidInput:
		msg = ErrMissingArgument.Error()
	}
	return &Error{Kind: kind, Message: msg, Cause: cause}
}
