// Package errs defines the error taxonomy shared by every component. Errors
// are values carrying a Kind; the HTTP layer maps kinds onto status codes and
// never leaks internals for Internal errors.
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind names a class of failure
type Kind string

const (
	InvalidArgument     Kind = "invalid_argument"
	NotFound            Kind = "not_found"
	Unauthorized        Kind = "unauthorized"
	QuotaExceeded       Kind = "quota_exceeded"
	Incompatible        Kind = "incompatible"
	Timeout             Kind = "timeout"
	UpstreamUnavailable Kind = "upstream_unavailable"
	Internal            Kind = "internal"
)

// Error is the canonical error value surfaced to callers and clients
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
	wrapped error
}

func (e *Error) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.wrapped }

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, wrapped: err}
}

// WithHint returns a copy of e carrying a hint for the client.
func (e *Error) WithHint(hint string) *Error {
	out := *e
	out.Hint = hint
	return &out
}

// WithTrace returns a copy of e stamped with a trace id.
func (e *Error) WithTrace(traceID string) *Error {
	out := *e
	out.TraceID = traceID
	return &out
}

// KindOf extracts the Kind from any error. Unknown errors are Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Transient reports whether a dispatch error is worth retrying. Permanent
// kinds (incompatible, unauthorized, invalid_argument, not_found) are not.
func Transient(err error) bool {
	switch KindOf(err) {
	case Incompatible, Unauthorized, InvalidArgument, NotFound, QuotaExceeded:
		return false
	}
	return true
}

// HTTPStatus maps a kind to its HTTP status code.
func HTTPStatus(kind Kind) int {
	switch kind {
	case InvalidArgument:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case Unauthorized:
		return http.StatusUnauthorized
	case QuotaExceeded:
		return http.StatusTooManyRequests
	case Incompatible:
		return http.StatusUnprocessableEntity
	case Timeout:
		return http.StatusGatewayTimeout
	case UpstreamUnavailable:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
