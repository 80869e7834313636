package repochat

import (
	"errors"
	"fmt"
)

// Application error codes.
//
// These are meant to be generic across the application: infrastructure
// packages map their failures onto them (e.g., an HTTP 404 becomes
// ENOTFOUND, a connection refusal becomes EUNAVAILABLE) so that callers
// and the retry executor can act on the code without knowing the source.
const (
	ECONFLICT    = "conflict"    // action cannot be performed in current state
	EINVALID     = "invalid"     // validation failed; retrying cannot succeed
	ENOTFOUND    = "not_found"   // entity does not exist
	EUNAVAILABLE = "unavailable" // transient infrastructure failure
	EINTERNAL    = "internal"    // internal error; a bug if observed
)

// Error represents an application error with a machine-readable code and
// a human-readable message. An optional wrapped cause is preserved for
// errors.Is/As inspection.
type Error struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("repochat error: code=%s message=%s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("repochat error: code=%s message=%s", e.Code, e.Message)
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error { return e.Err }

// ErrorCode returns the code of the error, if available.
// Returns EINTERNAL for non-application errors and "" for nil.
func ErrorCode(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage returns the message of the error, if available.
// Returns a generic message for non-application errors and "" for nil.
func ErrorMessage(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Message
	}
	return "An internal error has occurred."
}

// Errorf is a helper to construct an Error with a formatted message.
func Errorf(code string, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapErrorf is like Errorf but preserves err as the wrapped cause.
func WrapErrorf(err error, code string, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}
