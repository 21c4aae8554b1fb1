package speckle

import (
	"errors"
	"fmt"
)

// ClientError represents a failure while talking to the Speckle server.
//
// Resolution failures (stream/branch/commit lookups) are fatal to the
// calling operation and never retried here; retry policy belongs to the
// caller.
type ClientError struct {
	// Code identifies the error category.
	Code ClientErrorCode

	// Message is a human-readable description, surfaced verbatim to the
	// API caller.
	Message string

	// Err is the underlying transport or decode error, if any.
	Err error
}

// ClientErrorCode categorizes client errors.
type ClientErrorCode string

const (
	// ErrCodeNotFound indicates a stream, branch, or commit lookup that
	// matched nothing (or that the token has no access to).
	ErrCodeNotFound ClientErrorCode = "NOT_FOUND"

	// ErrCodeGraphQL indicates the server answered the query with errors.
	ErrCodeGraphQL ClientErrorCode = "GRAPHQL_ERROR"

	// ErrCodeTransport indicates a network or HTTP-level failure.
	ErrCodeTransport ClientErrorCode = "TRANSPORT_ERROR"

	// ErrCodeDecode indicates a payload that could not be decoded.
	ErrCodeDecode ClientErrorCode = "DECODE_ERROR"
)

// Error implements the error interface.
func (e *ClientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ClientError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a ClientError with ErrCodeNotFound.
// Uses errors.As to handle wrapped errors.
func IsNotFound(err error) bool {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.Code == ErrCodeNotFound
	}
	return false
}

func notFoundError(format string, args ...any) *ClientError {
	return &ClientError{Code: ErrCodeNotFound, Message: fmt.Sprintf(format, args...)}
}
