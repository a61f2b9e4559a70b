package serverutils

import (
	"fmt"
	"time"
)

// FileError carries the per-file reason an upload was refused.
type FileError struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// ValidationError is returned when upload input is user-correctable.
type ValidationError struct {
	Message string      `json:"message"`
	Files   []FileError `json:"errors,omitempty"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(message string, files []FileError) *ValidationError {
	return &ValidationError{Message: message, Files: files}
}

// NotFoundError is returned when a session id does not resolve.
type NotFoundError struct {
	Resource string
	Id       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.Id)
}

func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, Id: id}
}

// RateLimitError is returned when admission control refuses a request.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %s", e.RetryAfter)
}

func NewRateLimitError(retryAfter time.Duration) *RateLimitError {
	return &RateLimitError{RetryAfter: retryAfter}
}

// UpstreamError wraps a failure from the reasoning or vector backend.
type UpstreamError struct {
	Backend string
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s backend error: %v", e.Backend, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func NewUpstreamError(backend string, err error) *UpstreamError {
	return &UpstreamError{Backend: backend, Err: err}
}
