package sign

import "errors"

// Error is the package's structured error type.
//
// Code is a stable identifier naming the violated contract. Message is for
// humans; do not match on it.
type Error struct {
	Code    string
	Message string
	Cause   error
}

const (
	CodeInvalidPrivateKey    = "INVALID_PRIVATE_KEY"
	CodeInvalidPublicKey     = "INVALID_PUBLIC_KEY"
	CodeUnsupportedAlgorithm = "UNSUPPORTED_ALGORITHM"
	CodeInvalidPayload       = "INVALID_PAYLOAD"
)

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func newError(code, msg string) error {
	return &Error{Code: code, Message: msg}
}

func wrapError(code, msg string, cause error) error {
	if cause == nil {
		return newError(code, msg)
	}
	return &Error{Code: code, Message: msg, Cause: cause}
}

// ErrCode returns the stable code for a structured error, or "" if unknown.
func ErrCode(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Code
}
