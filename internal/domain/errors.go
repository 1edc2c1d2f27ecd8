package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrInternal marks unexpected failures inside the pipeline.
var ErrInternal = errors.New("internal error")

// ErrNotFound is returned when a referenced record does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError is returned for malformed caller input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// RateLimitError is returned when a caller exhausted its quota.
type RateLimitError struct {
	Remaining int
	ResetAt   time.Time
}

func (e *RateLimitError) Error() string {
	if e.ResetAt.IsZero() {
		return "rate limit exceeded, no history"
	}

	return fmt.Sprintf("rate limit exceeded, resets at %s", e.ResetAt.Format(time.RFC3339))
}

// UpstreamError carries the code and message of a failed catalog call.
type UpstreamError struct {
	Code    int
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("catalog error %d: %s", e.Code, e.Message)
}
