// Package apierr defines the servo error taxonomy and its HTTP mapping.
//
// Handlers construct an *Error (or wrap an existing one with one of the
// helpers below) instead of returning bare errors; internal/httpapi maps
// Kind to a status code at the response boundary.
package apierr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the purposes of HTTP status mapping.
type Kind int

const (
	// Internal covers storage failures, codec failures, and
	// flight-not-connected preconditions.
	Internal Kind = iota
	BadRequest
	Unauthorized
	NotFound
	Conflict
	Forbidden
)

func (k Kind) String() string {
	switch k {
	case BadRequest:
		return "bad_request"
	case Unauthorized:
		return "unauthorized"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case Forbidden:
		return "forbidden"
	default:
		return "internal"
	}
}

// Error is a typed, kind-classified error that flows from a service layer
// up to internal/httpapi, which maps Kind to a status code and writes
// Message as the plain-text response body (see spec §7).
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func New(kind Kind, msg string) *Error { return &Error{Kind: kind, Message: msg} }

func BadRequestf(format string, args ...any) *Error { return newf(BadRequest, format, args...) }
func NotFoundf(format string, args ...any) *Error   { return newf(NotFound, format, args...) }
func Conflictf(format string, args ...any) *Error   { return newf(Conflict, format, args...) }
func Forbiddenf(format string, args ...any) *Error  { return newf(Forbidden, format, args...) }

// Internalf wraps cause as a 500 with an additional message, matching the
// "handlers convert storage/codec errors to Internal with the underlying
// message" propagation policy in spec §7.
func Internalf(cause error, format string, args ...any) *Error {
	return &Error{Kind: Internal, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf extracts the Kind of err, defaulting to Internal when err is not
// (or does not wrap) an *Error — e.g. an unclassified storage error that
// escaped a service method.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return Internal
}
