// Package apperr classifies pipeline failures so callers can branch on the
// kind of failure instead of matching error text.
package apperr

import (
	"errors"
	"fmt"
)

// Kind identifies the class of a failure.
type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation is returned before any remote service is contacted.
	KindValidation
	// KindTransport covers network, auth and API errors from a remote call.
	KindTransport
	// KindTimeout is returned when a bounded wait expires.
	KindTimeout
	// KindServiceResponse means the service answered but the answer is unusable.
	KindServiceResponse
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindTransport:
		return "transport"
	case KindTimeout:
		return "timeout"
	case KindServiceResponse:
		return "service_response"
	default:
		return "unknown"
	}
}

// Error is a classified error. Op names the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E builds a classified error.
func E(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Validation wraps err as a validation failure.
func Validation(op string, err error) error {
	return E(KindValidation, op, err)
}

// Transport wraps err as a transport failure.
func Transport(op string, err error) error {
	return E(KindTransport, op, err)
}

// Timeout wraps err as a timeout.
func Timeout(op string, err error) error {
	return E(KindTimeout, op, err)
}

// ServiceResponse wraps err as an unusable service response.
func ServiceResponse(op string, err error) error {
	return E(KindServiceResponse, op, err)
}

// KindOf returns the kind of the outermost classified error in the chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
