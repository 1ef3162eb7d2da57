package engine

import (
	"errors"
	"fmt"
)

// ExecutionError represents an error detected while running a compiled
// query.
//
// Execution errors include:
//   - Non-unique result: FetchOne received more than one row
//   - Backend failure: the adapter reported an error during the round trip
//   - Decode failure: a driver value did not fit the projection type
//
// Type and structure errors are raised before execution and are never
// wrapped as execution errors.
type ExecutionError struct {
	// Code identifies the error category.
	Code ExecutionErrorCode

	// Message is a human-readable description.
	Message string

	// QueryID identifies the execution in logs.
	QueryID string

	// Err is the underlying backend or decode error, if any.
	Err error
}

// ExecutionErrorCode categorizes execution errors.
type ExecutionErrorCode string

const (
	// ErrCodeNonUnique indicates FetchOne matched more than one row.
	ErrCodeNonUnique ExecutionErrorCode = "NON_UNIQUE_RESULT"

	// ErrCodeBackend indicates the backend round trip failed.
	ErrCodeBackend ExecutionErrorCode = "BACKEND_FAILED"

	// ErrCodeDecode indicates a result row could not be decoded.
	ErrCodeDecode ExecutionErrorCode = "DECODE_FAILED"
)

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.QueryID != "" {
		msg = fmt.Sprintf("%s (query=%s)", msg, e.QueryID)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// IsNonUniqueError returns true if the error is a non-unique result error.
// Uses errors.As to handle wrapped errors.
func IsNonUniqueError(err error) bool {
	var ee *ExecutionError
	if errors.As(err, &ee) {
		return ee.Code == ErrCodeNonUnique
	}
	return false
}

// IsBackendError returns true if the error is a backend failure.
// Uses errors.As to handle wrapped errors.
func IsBackendError(err error) bool {
	var ee *ExecutionError
	if errors.As(err, &ee) {
		return ee.Code == ErrCodeBackend
	}
	return false
}

// NewNonUniqueError creates an ExecutionError for a FetchOne that matched
// more than one row.
func NewNonUniqueError(queryID string) *ExecutionError {
	return &ExecutionError{
		Code:    ErrCodeNonUnique,
		Message: "query returned more than one row",
		QueryID: queryID,
	}
}

func newBackendError(queryID string, err error) *ExecutionError {
	return &ExecutionError{
		Code:    ErrCodeBackend,
		Message: "query failed",
		QueryID: queryID,
		Err:     err,
	}
}

func newDecodeError(queryID string, err error) *ExecutionError {
	return &ExecutionError{
		Code:    ErrCodeDecode,
		Message: "cannot decode result row",
		QueryID: queryID,
		Err:     err,
	}
}
