package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level error kinds. Every failure leaving the session service
	// wraps exactly one of these.
	ErrorValidation     = errors.New("validation error")
	ErrorUnauthorized   = errors.New("unauthorized")
	ErrorAuthentication = errors.New("authentication error")
	ErrorInternal       = errors.New("internal error")
)

// Error is a classified failure with a caller-facing message.
// Kind is one of the sentinel errors above; errors.Is(err, Kind) holds.
type Error struct {
	Kind    error
	Message string
}

// NewError builds an *Error of the given kind.
func NewError(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// MessageOf returns the caller-facing message carried by err, or the text
// of err itself when it is not an *Error.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Message != "" {
			return e.Message
		}
		return e.Kind.Error()
	}
	return err.Error()
}
