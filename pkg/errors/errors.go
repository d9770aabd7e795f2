package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Detail  interface{} `json:"detail,omitempty"`
	Err     error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError carrying the same code, so callers can test
// errors.Is(err, errors.ErrDataUnavailable).
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// StatusCode maps the error code onto an HTTP status.
func (e *AppError) StatusCode() int {
	switch e.Code {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrBadRequest:
		return http.StatusBadRequest
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	case ErrDataUnavailable, ErrUpstreamDispatch:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrBadRequest
	ErrUnauthorized
	ErrForbidden
	ErrInternal
	ErrDataUnavailable
	ErrUpstreamDispatch
)

// Sentinels for errors.Is comparisons.
var (
	ErrNotFoundKind         = &AppError{Code: ErrNotFound}
	ErrBadRequestKind       = &AppError{Code: ErrBadRequest}
	ErrDataUnavailableKind  = &AppError{Code: ErrDataUnavailable}
	ErrUpstreamDispatchKind = &AppError{Code: ErrUpstreamDispatch}
)

// Error constructors
func NewNotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func NewBadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    ErrBadRequest,
		Message: message,
		Err:     err,
	}
}

func NewInternal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

// NewDataUnavailable marks a case-store read that could not be completed.
// Analytics callers recover from it by serving empty output.
func NewDataUnavailable(operation string, err error) *AppError {
	return &AppError{
		Code:    ErrDataUnavailable,
		Message: fmt.Sprintf("%s: case data unavailable", operation),
		Err:     err,
	}
}

// NewUpstreamDispatch records a single failed message dispatch.
func NewUpstreamDispatch(recipient string, err error) *AppError {
	return &AppError{
		Code:    ErrUpstreamDispatch,
		Message: fmt.Sprintf("dispatch to %s failed", recipient),
		Err:     err,
	}
}

// Common errors
func NotFound(resource string, err error) *AppError {
	return NewNotFound(resource, err)
}

func BadRequest(message string, err error) *AppError {
	return NewBadRequest(message, err)
}

func Internal(err error) *AppError {
	return NewInternal(err)
}

func Unauthorized(err error) *AppError {
	return &AppError{
		Code:    ErrUnauthorized,
		Message: "unauthorized",
		Err:     err,
	}
}

// WithDetail attaches client-facing detail (for example the list of valid
// diseases) to the error.
func (e *AppError) WithDetail(detail interface{}) *AppError {
	e.Detail = detail
	return e
}

// As is a shortcut for errors.As against *AppError.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsDataUnavailable reports whether err carries ErrDataUnavailable.
func IsDataUnavailable(err error) bool {
	return stderrors.Is(err, ErrDataUnavailableKind)
}
