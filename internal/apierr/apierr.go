// Package apierr defines the typed failure taxonomy shared by every
// component of the backend. Failures are explicit error values raised at
// the point of detection and propagated unchanged to the caller-facing
// surface; nothing in the core retries.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure for the caller-facing surface.
type Kind string

// Failure kinds.
const (
	// Unauthenticated means the credential could not be verified.
	Unauthenticated Kind = "UNAUTHENTICATED"
	// Forbidden means the verified identity may not perform the action.
	// Forbidden failures carry no reason text.
	Forbidden Kind = "FORBIDDEN"
	// NotFound means a workload or cluster the request named does not exist.
	NotFound Kind = "NOT_FOUND"
	// InvalidArgument means the request itself is unacceptable: a negative
	// replica count, a count above live capacity, or a startup policy that
	// would make the change a silent no-op downstream.
	InvalidArgument Kind = "INVALID_ARGUMENT"
	// Conflict means a concurrent writer changed the record between read
	// and replace. Retrying is the caller's decision.
	Conflict Kind = "CONFLICT"
	// Upstream means a collaborator call failed: the API server, the token
	// review, or the workload admin endpoint.
	Upstream Kind = "UPSTREAM"
	// Internal means a collaborator violated its contract. These are bugs,
	// logged loudly and surfaced as generic failures, never retried.
	Internal Kind = "INTERNAL"
)

// Error is a classified failure. It wraps the underlying cause, when there
// is one, for errors.Is/As chains.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// New returns an Error of the given kind with a fixed message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf returns an Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns an Error of the given kind wrapping cause. The message is
// the formatted text; the cause stays reachable through Unwrap.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: cause}
}

// KindOf extracts the Kind from an error chain. Unclassified errors report
// Internal: an error that reached the surface without a kind is a bug.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// IsKind reports whether the error chain carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps a kind to the status code the caller-facing surface
// reports.
func HTTPStatus(kind Kind) int {
	switch kind {
	case Unauthenticated:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case InvalidArgument:
		return http.StatusBadRequest
	case Conflict:
		return http.StatusConflict
	case Upstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
