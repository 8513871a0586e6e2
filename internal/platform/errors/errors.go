package errors

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindConfig       Kind = "config"
	KindBootstrap    Kind = "bootstrap"
	KindValidation   Kind = "validation"
	KindPayload      Kind = "payload"
	KindConnectivity Kind = "connectivity"
	KindTimeout      Kind = "timeout"
	KindUpstream     Kind = "upstream"
	KindStorage      Kind = "storage"
	KindTransport    Kind = "transport"
	KindUnknown      Kind = "unknown"
)

type Error struct {
	Kind    Kind
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Kind, e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Kind, e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func Wrap(kind Kind, op, message string, err error) *Error {
	if err == nil {
		return nil
	}

	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}

	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
		Cause:   err,
	}
}

func New(kind Kind, op, message string) *Error {
	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
	}
}

// IsKind checks whether any error in the chain matches the provided kind.
func IsKind(err error, kind Kind) bool {
	var target *Error
	for err != nil {
		if errors.As(err, &target) {
			return target.Kind == kind
		}
		err = errors.Unwrap(err)
	}
	return false
}

// KindOf returns the kind of the first typed error in the chain, KindUnknown otherwise.
func KindOf(err error) Kind {
	var target *Error
	if errors.As(err, &target) {
		return target.Kind
	}
	return KindUnknown
}

// HTTPStatus maps an error kind to the status code the transport layer reports.
// Validation problems are client faults, connectivity and timeout failures point
// at the remote collaborators, everything else is an internal error.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindPayload:
		return http.StatusRequestEntityTooLarge
	case KindConnectivity:
		return http.StatusServiceUnavailable
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindUpstream:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
