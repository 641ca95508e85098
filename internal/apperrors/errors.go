// Package apperrors defines the typed failure kinds shared by both services
// and their mapping to HTTP status codes.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Kind classifies a failure for transport-level mapping.
type Kind int

const (
	// Internal is any unclassified failure.
	Internal Kind = iota
	// NotFound means a referenced record is absent.
	NotFound
	// InvalidArgument means a malformed route or request body.
	InvalidArgument
	// ValidationFailed means one or more validation rules were violated.
	ValidationFailed
	// Conflict means a duplicate record or an exceeded business limit.
	Conflict
	// Unauthorized means the caller is not allowed to perform the operation.
	Unauthorized
	// NotImplemented means the operation is not supported.
	NotImplemented
)

// Error is a typed application error. Fields is populated only for
// ValidationFailed and carries one message per violated field.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Kind == ValidationFailed && len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+e.Fields[k])
		}
		return e.Message + " (" + strings.Join(parts, "; ") + ")"
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NotFoundf builds a NotFound error.
func NotFoundf(format string, args ...interface{}) *Error {
	return &Error{Kind: NotFound, Message: fmt.Sprintf(format, args...)}
}

// InvalidArgumentf builds an InvalidArgument error.
func InvalidArgumentf(format string, args ...interface{}) *Error {
	return &Error{Kind: InvalidArgument, Message: fmt.Sprintf(format, args...)}
}

// Conflictf builds a Conflict error.
func Conflictf(format string, args ...interface{}) *Error {
	return &Error{Kind: Conflict, Message: fmt.Sprintf(format, args...)}
}

// Unauthorizedf builds an Unauthorized error.
func Unauthorizedf(format string, args ...interface{}) *Error {
	return &Error{Kind: Unauthorized, Message: fmt.Sprintf(format, args...)}
}

// NotImplementedf builds a NotImplemented error.
func NotImplementedf(format string, args ...interface{}) *Error {
	return &Error{Kind: NotImplemented, Message: fmt.Sprintf(format, args...)}
}

// Validation builds a ValidationFailed error from field-level messages.
func Validation(fields map[string]string) *Error {
	return &Error{
		Kind:    ValidationFailed,
		Message: "validation failed",
		Fields:  fields,
	}
}

// Wrap attaches a cause to an Internal error.
func Wrap(err error, message string) *Error {
	return &Error{Kind: Internal, Message: message, Err: err}
}

// KindOf returns the Kind of err, or Internal when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// FieldsOf returns the field-level messages of a ValidationFailed error.
func FieldsOf(err error) map[string]string {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}

// HTTPStatus maps an error kind to its HTTP status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case NotFound:
		return http.StatusNotFound
	case InvalidArgument, ValidationFailed:
		return http.StatusBadRequest
	case Conflict:
		return http.StatusConflict
	case Unauthorized:
		return http.StatusUnauthorized
	case NotImplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
