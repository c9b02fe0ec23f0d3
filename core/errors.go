package core

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// ErrorCode classifies errors surfaced to API callers.
type ErrorCode string

const (
	CodeValidation         ErrorCode = "VALIDATION_ERROR"
	CodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	CodeForbidden          ErrorCode = "FORBIDDEN"
	CodeNotFound           ErrorCode = "NOT_FOUND"
	CodeConflict           ErrorCode = "CONFLICT"
	CodeRateLimited        ErrorCode = "RATE_LIMITED"
	CodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
)

// Status returns the HTTP status code matching the ErrorCode.
func (c ErrorCode) Status() int {
	switch c {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error carrying one of the ErrorCode classes.
// Packages declare their sentinels with it, eg. `ErrNotMember = core.NewForbiddenError("...")`.
type Error struct {
	Code    ErrorCode
	Message string
	Details map[string]string
}

func (err *Error) Error() string {
	return err.Message
}

func NewError(code ErrorCode, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

func NewUnauthorizedError(msg string) *Error { return NewError(CodeUnauthorized, msg) }
func NewForbiddenError(msg string) *Error    { return NewError(CodeForbidden, msg) }
func NewNotFoundError(msg string) *Error     { return NewError(CodeNotFound, msg) }
func NewConflictError(msg string) *Error     { return NewError(CodeConflict, msg) }

// WithField returns a copy of err with a field detail attached.
func (err *Error) WithField(field, msg string) *Error {
	details := make(map[string]string, len(err.Details)+1)
	for k, v := range err.Details {
		details[k] = v
	}
	details[field] = msg
	return &Error{Code: err.Code, Message: err.Message, Details: details}
}

// Is reports whether target is an *Error with the same code and message,
// so that copies made by WithField still match their sentinel.
func (err *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return err.Code == t.Code && err.Message == t.Message
}

// ErrorCodeOf returns the ErrorCode of err if it is (or wraps) a domain error.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	switch e := errors.Cause(err).(type) {
	case *Error:
		return e.Code
	case *ValidationError, validator.ValidationErrors:
		return CodeValidation
	}
	return ""
}

// ErrorDetails returns the {field: message} details carried by err, if any.
func ErrorDetails(err error) map[string]string {
	switch e := errors.Cause(err).(type) {
	case *Error:
		return e.Details
	case *ValidationError:
		if len(e.Fields) == 0 {
			return nil
		}
		details := make(map[string]string, len(e.Fields))
		for _, f := range e.Fields {
			details[f.Field] = f.Error
		}
		return details
	case validator.ValidationErrors:
		return ValidationDetails(e)
	}
	return nil
}

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
