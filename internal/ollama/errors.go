// ABOUTME: Typed error taxonomy for the inference client
// ABOUTME: Classifies backend rejection, timeout, transport failure, and empty streams

package ollama

import (
	"errors"
	"fmt"
)

// Kind classifies an inference failure. Per-line parse errors are not a
// Kind: they are recovered inside the stream loop and never surface.
type Kind string

const (
	// KindBackendRejected means the backend answered with a non-2xx status.
	KindBackendRejected Kind = "backend_rejected"
	// KindTimeout means the exchange did not complete within the deadline.
	KindTimeout Kind = "timeout"
	// KindConnectionFailed means the transport failed before or during the stream.
	KindConnectionFailed Kind = "connection_failed"
	// KindEmptyResponse means the stream completed with no usable text.
	KindEmptyResponse Kind = "empty_response"
)

// Error is a classified inference failure.
type Error struct {
	Kind   Kind
	Status int    // HTTP status for KindBackendRejected
	Body   string // response body excerpt for KindBackendRejected
	Err    error  // underlying error, if any
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindBackendRejected:
		return fmt.Sprintf("backend rejected request: status %d: %s", e.Status, e.Body)
	case KindTimeout:
		return "inference request timed out"
	case KindConnectionFailed:
		return fmt.Sprintf("connection to backend failed: %v", e.Err)
	case KindEmptyResponse:
		return "backend stream produced no text"
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of an inference error, or "" for other errors.
func KindOf(err error) Kind {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return ""
}
