package usecase

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	ErrorInvalidInput ErrorCode = "INVALID_INPUT"
	ErrorRateLimited  ErrorCode = "RATE_LIMITED"
	ErrorUpstream     ErrorCode = "UPSTREAM_ERROR"
	ErrorInternal     ErrorCode = "INTERNAL_ERROR"
)

// MsgMissingFields is returned to callers of Ask that omit a required field.
const MsgMissingFields = "Missing session_id or message"

var defaultMessages = map[ErrorCode]string{
	ErrorInvalidInput: "invalid request",
	ErrorRateLimited:  "the language model provider is rate limiting requests",
	ErrorUpstream:     "the language model provider request failed",
	ErrorInternal:     "internal error",
}

// Error is a classified failure. Message is safe to show to API callers;
// Err carries the underlying cause for logs.
type Error struct {
	Code    ErrorCode
	Reason  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// UserMessage returns Message, or a generic text for the code.
func (e *Error) UserMessage() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if m, ok := defaultMessages[e.Code]; ok {
		return m
	}
	return defaultMessages[ErrorInternal]
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}

// Classify returns err as an *Error, wrapping anything unclassified as
// ErrorInternal.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var ue *Error
	if errors.As(err, &ue) {
		return ue
	}
	return newError(ErrorInternal, "unclassified", err)
}
