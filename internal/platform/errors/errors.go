// Package errors is the project error type: a code for machines, a message
// for people, and an optional field naming the offending keyword or key.
// Import it as perr.
package errors

import (
	stderrs "errors"
	"fmt"
	"net/http"
)

// Error is a coded error, optionally wrapping a cause
type Error struct {
	code  ErrorCode
	msg   string
	field string
	cause error
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return "<nil>"
	case e.cause != nil:
		return e.msg + ": " + e.cause.Error()
	default:
		return e.msg
	}
}

func (e *Error) Unwrap() error { return e.cause }

// Code returns the classification
func (e *Error) Code() ErrorCode { return e.code }

// Field names the header keyword, config key or request field at fault
func (e *Error) Field() string { return e.field }

// ErrNotFound is the sentinel returned by single-row lookups and blob reads
var ErrNotFound = New(ErrorCodeNotFound, "not found")

// New returns an error with code and msg
func New(code ErrorCode, msg string) error { return &Error{code: code, msg: msg} }

// Newf formats the message
func Newf(code ErrorCode, format string, a ...any) error { return New(code, fmt.Sprintf(format, a...)) }

// Wrap classifies cause under code
func Wrap(cause error, code ErrorCode, msg string) error {
	return &Error{code: code, msg: msg, cause: cause}
}

// Wrapf formats the message
func Wrapf(cause error, code ErrorCode, format string, a ...any) error {
	return Wrap(cause, code, fmt.Sprintf(format, a...))
}

// Annotate adds context to err without changing its code; nil stays nil
func Annotate(err error, format string, a ...any) error {
	if err == nil {
		return nil
	}
	return Wrap(err, CodeOf(err), fmt.Sprintf(format, a...))
}

// WithField returns a copy of err naming field; foreign errors pass through
func WithField(err error, field string) error {
	e, ok := As(err)
	if !ok {
		return err
	}
	cp := *e
	cp.field = field
	return &cp
}

// As returns the outermost *Error in err's chain
func As(err error) (*Error, bool) {
	var e *Error
	ok := stderrs.As(err, &e)
	return e, ok
}

// CodeOf returns the outermost code in err's chain, Unknown for foreign errors
func CodeOf(err error) ErrorCode {
	if e, ok := As(err); ok {
		return e.code
	}
	return ErrorCodeUnknown
}

// IsCode reports whether err's outermost code is code
func IsCode(err error, code ErrorCode) bool { return CodeOf(err) == code }

func NotFoundf(format string, a ...any) error    { return Newf(ErrorCodeNotFound, format, a...) }
func InvalidArgf(format string, a ...any) error  { return Newf(ErrorCodeInvalidArgument, format, a...) }
func JSONErrf(format string, a ...any) error     { return Newf(ErrorCodeJSON, format, a...) }
func PanicErrf(format string, a ...any) error    { return Newf(ErrorCodePanic, format, a...) }
func Conflictf(format string, a ...any) error    { return Newf(ErrorCodeConflict, format, a...) }
func Unavailablef(format string, a ...any) error { return Newf(ErrorCodeUnavailable, format, a...) }
func Malformedf(format string, a ...any) error   { return Newf(ErrorCodeMalformed, format, a...) }
func Mismatchf(format string, a ...any) error    { return Newf(ErrorCodeMismatch, format, a...) }
func Contractf(format string, a ...any) error    { return Newf(ErrorCodeContract, format, a...) }
func Integrityf(format string, a ...any) error   { return Newf(ErrorCodeIntegrity, format, a...) }

// Wire is the error part of an API response
type Wire struct {
	Code    ErrorCode `json:"code"`
	Kind    string    `json:"kind"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
}

// HTTP returns the response status and wire form of err; nil is 200
func HTTP(err error) (int, Wire) {
	if err == nil {
		return http.StatusOK, Wire{}
	}
	e, ok := As(err)
	if !ok {
		return http.StatusInternalServerError, Wire{Code: ErrorCodeUnknown, Kind: ErrorCodeUnknown.String(), Message: err.Error()}
	}
	return HTTPStatusCode(e.code), Wire{Code: e.code, Kind: e.code.String(), Message: e.msg, Field: e.field}
}
