package websync

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
	// ErrConfiguration is returned when credentials or bucket addressing are missing or invalid
	ErrConfiguration = errors.New("configuration error")
	// ErrUpstream is returned when the storage backend fails or cannot be reached
	ErrUpstream = errors.New("upstream error")
	// ErrTooLarge is returned when a payload exceeds its configured limit
	ErrTooLarge = errors.New("payload too large")
)

// UpstreamError describes a failed call to the storage backend.
// StatusCode is zero when no response was received.
type UpstreamError struct {
	Op         string
	StatusCode int
	Code       string
	Err        error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Code != "":
		return fmt.Sprintf("%s: storage returned %d (%s)", e.Op, e.StatusCode, e.Code)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: storage returned %d", e.Op, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op + ": upstream error"
	}
}

// Unwrap exposes both ErrUpstream and the underlying transport error.
func (e *UpstreamError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUpstream}
	}
	return []error{ErrUpstream, e.Err}
}

// Timeout reports whether the call failed because a deadline passed.
func (e *UpstreamError) Timeout() bool {
	if e.Err == nil {
		return false
	}
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}
