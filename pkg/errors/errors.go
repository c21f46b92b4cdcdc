package errors

import "fmt"

type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

func Wrap(err error, code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Code extracts the application error code, or INTERNAL_ERROR for foreign errors.
func Code(err error) string {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return ErrCodeInternalError
}

// Common error codes
const (
	ErrCodeValidationFailed  = "VALIDATION_FAILED"
	ErrCodeNotAuthenticated  = "NOT_AUTHENTICATED"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeInternalError     = "INTERNAL_ERROR"
	ErrCodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
)

// Request lifecycle error codes
const (
	ErrCodeSelfResponseForbidden = "SELF_RESPONSE_FORBIDDEN"
	ErrCodeAlreadyResponded      = "ALREADY_RESPONDED"
	ErrCodeRequestClosed         = "REQUEST_CLOSED"
	ErrCodeStorageFailure        = "STORAGE_FAILURE"
)
