package apperr

import (
	"errors"
	"net/http"
)

// Code classifies an error for callers and for HTTP mapping.
type Code string

const (
	CodeUnauthenticated  Code = "UNAUTHENTICATED"
	CodeEmailNotVerified Code = "EMAIL_NOT_VERIFIED"
	CodeInvalidPayload   Code = "INVALID_PAYLOAD"
	CodeNotFound         Code = "NOT_FOUND"
	CodeUpstreamAuth     Code = "UPSTREAM_AUTH"
	CodeUpstreamWrite    Code = "UPSTREAM_WRITE"
	CodeInternal         Code = "INTERNAL"
)

// HTTPStatus returns the response status used when an error of this code
// reaches a handler.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeEmailNotVerified:
		return http.StatusForbidden
	case CodeInvalidPayload:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error is the application error type.
type Error struct {
	Code    Code
	Message string // safe to return to clients
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Sentinels for errors.Is checks.
var (
	ErrUnauthenticated  = New(CodeUnauthenticated, "unauthenticated")
	ErrEmailNotVerified = New(CodeEmailNotVerified, "email not verified")
	ErrInvalidPayload   = New(CodeInvalidPayload, "invalid payload")
	ErrNotFound         = New(CodeNotFound, "not found")
	ErrUpstreamAuth     = New(CodeUpstreamAuth, "identity provider request failed")
	ErrUpstreamWrite    = New(CodeUpstreamWrite, "identity provider write failed")
)

// CodeOf returns the code of the first *Error in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// Status maps err to an HTTP status and a client-facing message.
// Unclassified errors keep their own message, as the handlers did before
// the taxonomy existed.
func Status(err error) (int, string) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code.HTTPStatus(), e.Message
	}
	if err == nil {
		return http.StatusOK, ""
	}
	return http.StatusInternalServerError, err.Error()
}
