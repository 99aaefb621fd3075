package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Error codes carried by AppError.
const (
	CodeConfig            = "CONFIG_ERROR"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeUnsupportedType   = "UNSUPPORTED_MEDIA_TYPE"
	CodeDocumentRead      = "DOCUMENT_READ_ERROR"
	CodeInvalidCredential = "INVALID_CREDENTIAL"
	CodeMalformedResponse = "MALFORMED_RESPONSE"
	CodeExtraction        = "EXTRACTION_ERROR"
	CodeUnavailable       = "UNAVAILABLE"
	CodeTimeout           = "TIMEOUT"
	CodeInternal          = "INTERNAL"
)

// Common application errors
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnavailable  = errors.New("service unavailable")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// CodeOf returns the code of the first AppError in err's chain, or "" when there is none.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
