package ratelimit

import "errors"

// Code identifies the kind of failure a Check call produced, mirroring the
// taxonomy in the teacher's AppError (core.ErrorCode). Check itself returns
// only CodeBadRequest and CodeServiceUnavailable; CodeOf reports
// CodeInternal for any other error. CodeStoreError and CodeBreakerOpen name
// the remaining kinds of the taxonomy and are not returned by Check.
type Code string

const (
	CodeBadRequest         Code = "BAD_REQUEST"
	CodeStoreError         Code = "STORE_ERROR"
	CodeBreakerOpen        Code = "BREAKER_OPEN"
	CodeServiceUnavailable Code = "SERVICE_UNAVAILABLE"
	CodeInternal           Code = "INTERNAL"
)

// Error is the coordinator's typed error, grounded on C-NASIR's
// internal/ratelimit/core.AppError shape.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf extracts the Code carried by err, or CodeInternal if err does not
// wrap an *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
