package models

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a dataset, record, or user does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalid is returned for malformed user input.
var ErrInvalid = errors.New("invalid input")

// ErrorCode classifies a LoadError.
type ErrorCode string

const (
	CodeParse    ErrorCode = "PARSE_ERROR"
	CodeNetwork  ErrorCode = "NETWORK_ERROR"
	CodeNotFound ErrorCode = "NOT_FOUND"
	CodeUnknown  ErrorCode = "UNKNOWN"
)

// LoadError is returned when a dataset cannot be loaded from any source.
// Retryable errors may succeed on a later attempt.
type LoadError struct {
	Message   string    `json:"message"`
	Code      ErrorCode `json:"code"`
	Retryable bool      `json:"retryable"`
	Err       error     `json:"-"`
}

// NewLoadError builds a LoadError wrapping err.
func NewLoadError(code ErrorCode, retryable bool, err error, format string, args ...any) *LoadError {
	return &LoadError{
		Message:   fmt.Sprintf(format, args...),
		Code:      code,
		Retryable: retryable,
		Err:       err,
	}
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error { return e.Err }

// IsRetryable reports whether err carries a retryable LoadError.
func IsRetryable(err error) bool {
	var le *LoadError
	return errors.As(err, &le) && le.Retryable
}
