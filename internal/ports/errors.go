package ports

import (
	"errors"
	"fmt"
	"time"
)

// Common infrastructure errors that can occur while talking to external
// collaborators.
var (
	// ErrSourceUnavailable indicates that the dataset could not be retrieved.
	// Presentation layers map it to a single user-facing failure message.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrRateLimited indicates that the remote host rate limited the request.
	ErrRateLimited = errors.New("rate limited")

	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = errors.New("operation timed out")

	// ErrInvalidResponse indicates that the remote host answered with an
	// unusable response.
	ErrInvalidResponse = errors.New("invalid response")

	// ErrReleaseNotFound indicates that no archived release matches a lookup.
	ErrReleaseNotFound = errors.New("release not found")
)

// SourceError describes a failed dataset fetch.
type SourceError struct {
	// Operation is the name of the operation that failed.
	Operation string

	// Location is the file path or URL that was being read.
	Location string

	// StatusCode is the HTTP status, zero for non-HTTP sources.
	StatusCode int

	// Err is the underlying error.
	Err error

	// RetryAfter indicates how long to wait before retrying, if the remote
	// host said so.
	RetryAfter *time.Duration
}

// Error implements the error interface for SourceError.
func (e *SourceError) Error() string {
	msg := fmt.Sprintf("source error: operation=%s, location=%s, err=%v", e.Operation, e.Location, e.Err)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(", status=%d", e.StatusCode)
	}
	if e.RetryAfter != nil {
		msg += fmt.Sprintf(", retry_after=%v", *e.RetryAfter)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *SourceError) Unwrap() error { return e.Err }

// IsRetryable reports whether the fetch may succeed if attempted again.
func (e *SourceError) IsRetryable() bool {
	// Only transport-level failures are retryable; a missing file is not.
	return errors.Is(e.Err, ErrRateLimited) ||
		errors.Is(e.Err, ErrSourceUnavailable) ||
		errors.Is(e.Err, ErrTimeout)
}

// NewSourceError creates a new SourceError with the given details.
func NewSourceError(operation, location string, err error) *SourceError {
	return &SourceError{
		Operation: operation,
		Location:  location,
		Err:       err,
	}
}
