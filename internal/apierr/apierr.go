// Package apierr is the error taxonomy shared by the service layer and the
// HTTP and gRPC boundaries. Errors are raised with a kind at the point of
// detection and translated to a status code exactly once, at the boundary.
package apierr

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
)

// Error codes. Each maps to one HTTP status and one gRPC code.
const (
	CodeNotFound          = "not_found"
	CodeValidation        = "validation"
	CodeInsufficientStock = "insufficient_stock"
	CodeUnauthorized      = "unauthorized"
	CodeForbidden         = "forbidden"
	CodeInternal          = "internal"
)

// Messages surfaced to clients for failures that carry no detail of their own.
const (
	MsgAccessDenied = "Access Denied: You do not have the required permissions"
	MsgInternal     = "An unexpected error occurred"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func NotFound(format string, args ...any) *Error {
	return New(http.StatusNotFound, CodeNotFound, fmt.Errorf(format, args...))
}

func Validation(format string, args ...any) *Error {
	return New(http.StatusBadRequest, CodeValidation, fmt.Errorf(format, args...))
}

// InsufficientStock names the item whose stock cannot cover the requested quantity.
func InsufficientStock(itemName string) *Error {
	return New(http.StatusBadRequest, CodeInsufficientStock, fmt.Errorf("Insufficient quantity for item: %s", itemName))
}

func Unauthorized(format string, args ...any) *Error {
	return New(http.StatusUnauthorized, CodeUnauthorized, fmt.Errorf(format, args...))
}

func Forbidden() *Error {
	return New(http.StatusForbidden, CodeForbidden, errors.New(MsgAccessDenied))
}

// Internal marks a server-side fault. Its text is logged, never sent to clients.
func Internal(format string, args ...any) *Error {
	return New(http.StatusInternalServerError, CodeInternal, fmt.Errorf(format, args...))
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code string) bool {
	e, ok := As(err)
	return ok && e.Code == code
}

// HTTPStatus returns the status and client message for err. Errors outside the
// taxonomy become 500 with a generic message; their text is never exposed.
func HTTPStatus(err error) (int, string) {
	e, ok := As(err)
	if !ok || e.Status == 0 || e.Status >= http.StatusInternalServerError {
		return http.StatusInternalServerError, MsgInternal
	}
	return e.Status, e.Error()
}

// GRPCCode returns the gRPC status code and client message for err.
func GRPCCode(err error) (codes.Code, string) {
	e, ok := As(err)
	if !ok {
		return codes.Internal, MsgInternal
	}
	switch e.Code {
	case CodeNotFound:
		return codes.NotFound, e.Error()
	case CodeValidation:
		return codes.InvalidArgument, e.Error()
	case CodeInsufficientStock:
		return codes.FailedPrecondition, e.Error()
	case CodeUnauthorized:
		return codes.Unauthenticated, e.Error()
	case CodeForbidden:
		return codes.PermissionDenied, e.Error()
	default:
		return codes.Internal, MsgInternal
	}
}
