package common

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Error taxonomy. Every error surfaced by the pipeline wraps exactly one of these.
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrResourceUnavailable = errors.New("resource unavailable")
	ErrUpstream            = errors.New("upstream error")
	ErrConfiguration       = errors.New("configuration error")
	ErrNotFound            = errors.New("resource not found")
	ErrInternal            = errors.New("internal error")
)

// Error codes carried by AppError.Code.
const (
	CodeInvalidInput        = "INVALID_INPUT"
	CodeResourceUnavailable = "RESOURCE_UNAVAILABLE"
	CodeUpstream            = "UPSTREAM_ERROR"
	CodeConfiguration       = "CONFIG_ERROR"
	CodeNotFound            = "NOT_FOUND"
	CodeInternal            = "INTERNAL"
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func InvalidInputf(format string, args ...any) error {
	return NewAppError(CodeInvalidInput, fmt.Sprintf(format, args...), ErrInvalidInput)
}

func ResourceUnavailablef(format string, args ...any) error {
	return NewAppError(CodeResourceUnavailable, fmt.Sprintf(format, args...), ErrResourceUnavailable)
}

func Configurationf(format string, args ...any) error {
	return NewAppError(CodeConfiguration, fmt.Sprintf(format, args...), ErrConfiguration)
}

func NotFoundf(format string, args ...any) error {
	return NewAppError(CodeNotFound, fmt.Sprintf(format, args...), ErrNotFound)
}

// UpstreamError reports a failed call to the language-model service.
// Retryable marks failures worth another attempt (transport, 5xx, 429, empty body).
type UpstreamError struct {
	StatusCode int
	Retryable  bool
	Message    string
	Cause      error
}

func (e *UpstreamError) Error() string {
	msg := e.Message
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("status %d: %s", e.StatusCode, msg)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", CodeUpstream, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", CodeUpstream, msg)
}

func (e *UpstreamError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrUpstream, e.Cause}
	}
	return []error{ErrUpstream}
}

// IsRetryable reports whether err is an upstream failure marked as transient.
func IsRetryable(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue) && ue.Retryable
}

// StageError names the pipeline stage an error escaped from.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// StageOf returns the pipeline stage recorded on err, or "".
func StageOf(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}

// GRPCStatus converts a taxonomy error into a gRPC status error.
func GRPCStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	var code codes.Code
	switch {
	case errors.Is(err, ErrInvalidInput):
		code = codes.InvalidArgument
	case errors.Is(err, ErrNotFound):
		code = codes.NotFound
	case errors.Is(err, ErrResourceUnavailable), errors.Is(err, ErrConfiguration):
		code = codes.FailedPrecondition
	case errors.Is(err, ErrUpstream):
		code = codes.Unavailable
	default:
		code = codes.Internal
	}
	return status.Error(code, err.Error())
}

// HTTPStatus maps a taxonomy error onto an HTTP status code.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrResourceUnavailable), errors.Is(err, ErrConfiguration):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// gRPC error helpers
func InvalidArgumentError(message string) error {
	return status.Error(codes.InvalidArgument, message)
}
