package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError is the error type crossing the service boundary. Code drives
// the HTTP status mapping in the handler layer; Cause is internal only.
type AppError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

// Is makes sentinel comparison work through errors.Is: two AppErrors
// match when their codes match.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !stderrors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// Constructors
func New(code Code, message string) error {
	return &AppError{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) error {
	return &AppError{Code: code, Message: message, Cause: cause}
}

func BadRequest(msg string) error {
	return New(CodeBadRequest, msg)
}

func Unauthorized(msg string) error {
	return New(CodeUnauthorized, msg)
}

func Internal(msg string) error {
	return New(CodeInternal, msg)
}

// CodeOf extracts the taxonomy code from err, or CodeUnknown when err
// is not an AppError (store unavailable, driver failures and the like —
// callers should treat those as transient).
func CodeOf(err error) Code {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}
