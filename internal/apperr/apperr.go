package apperr

import (
	"errors"
	"net/http"
)

// Code is a stable, user-surfaced error code.
type Code string

const (
	CodeInvalidInput        Code = "INVALID_INPUT"
	CodeUnauthorized        Code = "UNAUTHORIZED"
	CodeForbidden           Code = "FORBIDDEN"
	CodeTrialExhausted      Code = "TRIAL_EXHAUSTED"
	CodeDurationExceeded    Code = "DURATION_EXCEEDED"
	CodeInsufficientBalance Code = "INSUFFICIENT_BALANCE"
	CodeConflict            Code = "CONFLICT"
	CodeNotFound            Code = "NOT_FOUND"
	CodeEngineError         Code = "ENGINE_ERROR"
	CodeInternal            Code = "INTERNAL_ERROR"
)

// Error is a structured application error carrying a stable code.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

// HTTPStatus maps the code to the status the HTTP surface returns.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden, CodeTrialExhausted, CodeDurationExceeded, CodeInsufficientBalance:
		return http.StatusForbidden
	case CodeConflict:
		return http.StatusConflict
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// New creates an Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// From extracts an *Error from err, wrapping unknown errors as INTERNAL_ERROR.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return &Error{Code: CodeInternal, Message: err.Error()}
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Code == code
}
