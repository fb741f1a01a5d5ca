// Package errors is the typed error vocabulary shared by services and the
// HTTP layer. A Code decides the status, retry hint and how much of the error
// a caller may see.
package errors

import (
	stdErrors "errors"
	"net/http"
)

type Code string

const (
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeNotFound     Code = "NOT_FOUND"
	CodeConflict     Code = "CONFLICT"
	CodeInvalidState Code = "INVALID_STATE"
	CodeIdempotency  Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit    Code = "RATE_LIMITED"
	CodeInternal     Code = "INTERNAL_ERROR"
	CodeDependency   Code = "DEPENDENCY_ERROR"
)

type Metadata struct {
	HTTPStatus int
	Retryable  bool
	// PublicMessage replaces the error's own message unless ShowMessage is set.
	PublicMessage  string
	ShowMessage    bool
	DetailsAllowed bool
}

// caller errors describe a bad request; their message is written for the caller
func callerError(status int, public string, details bool) Metadata {
	return Metadata{HTTPStatus: status, PublicMessage: public, ShowMessage: true, DetailsAllowed: details}
}

// server errors are worth retrying and never expose their message
func serverError(status int, public string, details bool) Metadata {
	return Metadata{HTTPStatus: status, Retryable: true, PublicMessage: public, DetailsAllowed: details}
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:   callerError(http.StatusBadRequest, "validation failed", true),
	CodeUnauthorized: callerError(http.StatusUnauthorized, "authentication required", false),
	CodeForbidden:    callerError(http.StatusForbidden, "access denied", false),
	CodeNotFound:     callerError(http.StatusNotFound, "resource not found", false),
	CodeConflict:     callerError(http.StatusConflict, "conflict detected", false),
	CodeInvalidState: callerError(http.StatusBadRequest, "state transition disallowed", true),
	CodeIdempotency:  callerError(http.StatusConflict, "idempotency key reused", true),
	CodeInternal:     serverError(http.StatusInternalServerError, "internal server error", false),
	CodeDependency:   serverError(http.StatusServiceUnavailable, "dependency unavailable", true),

	// the caller's doing, but it clears on its own
	CodeRateLimit: {HTTPStatus: http.StatusTooManyRequests, Retryable: true, PublicMessage: "too many requests", ShowMessage: true},
}

// MetadataFor falls back to internal for codes it does not know.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// Error carries a Code, a message, optional public details and a cause.
// A nil *Error reads as an empty internal error.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Wrap attaches code and message to err. A nil err behaves like New.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

// WithDetails sets the details in place and returns e for chaining.
func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return string(e.code) + ": " + e.message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// HasCode reports whether the outermost typed error in err's chain has code.
func HasCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}
