// Package errors defines the error kinds the services answer with and
// their HTTP mapping. Every kind is a sentinel, so callers branch with
// errors.Is while handlers render the code and status from one table.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound                  = errors.New("resource not found")
	ErrInvalidParameter          = errors.New("invalid parameter")
	ErrUnknownTenant             = errors.New("unknown tenant")
	ErrBackendUnavailable        = errors.New("backend unavailable")
	ErrConcurrentSessionConflict = errors.New("concurrent session conflict")
	ErrUnauthorized              = errors.New("unauthorized")
	ErrInternal                  = errors.New("internal error")
)

// kind describes how a sentinel is rendered. An empty public message means
// the error text itself is safe to show.
type kind struct {
	sentinel error
	code     string
	status   int
	public   string
}

var kinds = []kind{
	{ErrUnknownTenant, "UNKNOWN_TENANT", http.StatusNotFound, "unknown tenant"},
	{ErrNotFound, "NOT_FOUND", http.StatusNotFound, "resource not found"},
	{ErrInvalidParameter, "INVALID_PARAMETER", http.StatusBadRequest, ""},
	{ErrConcurrentSessionConflict, "CONCURRENT_SESSION_CONFLICT", http.StatusConflict, "conflicting import session"},
	{ErrUnauthorized, "UNAUTHORIZED", http.StatusUnauthorized, "unauthorized"},
	{ErrBackendUnavailable, "BACKEND_UNAVAILABLE", http.StatusServiceUnavailable, "backend is currently unavailable"},
}

var internal = kind{ErrInternal, "INTERNAL_ERROR", http.StatusInternalServerError, "an internal error occurred"}

func kindOf(sentinel error) kind {
	for _, k := range kinds {
		if k.sentinel == sentinel {
			return k
		}
	}
	return internal
}

// AppError is an error with a client-facing code and message. Err holds the
// sentinel and, for server-side failures, the cause.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Code + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func newError(sentinel error, message string) *AppError {
	k := kindOf(sentinel)
	return &AppError{Code: k.code, Message: message, Status: k.status, Err: sentinel}
}

// NotFound reports a missing document, session or configuration entry.
func NotFound(resource, id string) *AppError {
	return newError(ErrNotFound, fmt.Sprintf("%s with id %s not found", resource, id))
}

// InvalidParameter reports malformed filter, sort, paging or body input.
func InvalidParameter(param, reason string) *AppError {
	return newError(ErrInvalidParameter, fmt.Sprintf("invalid parameter %q: %s", param, reason))
}

// UnknownTenant reports a tenant without resolvable configuration.
func UnknownTenant(tenant string) *AppError {
	return newError(ErrUnknownTenant, fmt.Sprintf("no search configuration for tenant %q", tenant))
}

// ConcurrentSessionConflict reports an import session colliding with one
// already running for the same index.
func ConcurrentSessionConflict(index string) *AppError {
	return newError(ErrConcurrentSessionConflict,
		fmt.Sprintf("an import session for index %q is already running", index))
}

// Unauthorized reports a missing or wrong API token.
func Unauthorized(message string) *AppError {
	return newError(ErrUnauthorized, message)
}

// BackendUnavailable wraps a failure of Elasticsearch, Postgres or another
// dependency. The cause is for logs only and never part of Message.
func BackendUnavailable(backend string, cause error) *AppError {
	e := newError(ErrBackendUnavailable, backend+" is currently unavailable")
	e.Err = errors.Join(ErrBackendUnavailable, cause)
	return e
}

// Internal wraps an unexpected failure.
func Internal(err error) *AppError {
	return &AppError{Code: internal.code, Message: internal.public, Status: internal.status, Err: err}
}

// Describe returns the status, code and client message for err. Unknown
// errors are internal errors with a generic message.
func Describe(err error) (status int, code, message string) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status, appErr.Code, appErr.Message
	}
	for _, k := range kinds {
		if errors.Is(err, k.sentinel) {
			if k.public == "" {
				return k.status, k.code, err.Error()
			}
			return k.status, k.code, k.public
		}
	}
	return internal.status, internal.code, internal.public
}

// HTTPStatus returns the response status for err.
func HTTPStatus(err error) int {
	status, _, _ := Describe(err)
	return status
}

// SentinelForCode returns the sentinel rendered with code, or nil.
func SentinelForCode(code string) error {
	for _, k := range kinds {
		if k.code == code {
			return k.sentinel
		}
	}
	return nil
}
