package schema

import (
	"errors"
	"fmt"
)

// Error codes for structured error reporting.
const (
	ErrCodeValidation = "VALIDATION_ERROR"
	ErrCodeDecode     = "DECODE_ERROR"
	ErrCodeNotFound   = "NOT_FOUND"
	ErrCodeStore      = "STORE_ERROR"
	ErrCodeConfig     = "CONFIG_ERROR"
	ErrCodeRule       = "RULE_ERROR"
)

// RecipeError is the structured error type for failures that are not recipe
// content defects: undecodable input, missing metadata, storage and config
// problems. Content defects are reported as ValidationError values instead.
type RecipeError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Cause   error          `json:"-"`
}

func (e *RecipeError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *RecipeError) Unwrap() error {
	return e.Cause
}

// NewError creates a new RecipeError.
func NewError(code, message string) *RecipeError {
	return &RecipeError{Code: code, Message: message}
}

// NewErrorf creates a new RecipeError with a formatted message.
func NewErrorf(code, format string, args ...any) *RecipeError {
	return &RecipeError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithCause attaches an underlying cause.
func (e *RecipeError) WithCause(err error) *RecipeError {
	e.Cause = err
	return e
}

// WithDetails attaches key-value details.
func (e *RecipeError) WithDetails(details map[string]any) *RecipeError {
	e.Details = details
	return e
}

// HasCode reports whether err is a RecipeError carrying code.
func HasCode(err error, code string) bool {
	var re *RecipeError
	return errors.As(err, &re) && re.Code == code
}
