// Package httputil writes the JSON envelope shared by every endpoint.
package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	apperrors "github.com/SrinivasareddyGatla/open-commerce-search/pkg/errors"
	"github.com/SrinivasareddyGatla/open-commerce-search/pkg/logger"
	"github.com/SrinivasareddyGatla/open-commerce-search/pkg/validator"
)

// Response is the envelope: exactly one of Data and Error is set.
type Response struct {
	Data  any            `json:"data,omitempty"`
	Error *ErrorResponse `json:"error,omitempty"`
}

// ErrorResponse is the error member of the envelope. Reference is only set
// for server-side failures and matches the error_reference of the log
// entry holding the cause.
type ErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	Reference string            `json:"reference,omitempty"`
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError renders err through apperrors.Describe. For 5xx responses the
// cause is logged under a fresh reference and the client only gets the
// reference back.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	ctx := r.Context()
	status, code, message := apperrors.Describe(err)
	body := &ErrorResponse{
		Code:      code,
		Message:   message,
		RequestID: logger.CorrelationIDFromContext(ctx),
	}

	if status >= http.StatusInternalServerError {
		body.Reference = uuid.NewString()
		requestLogger(r, fallback).ErrorContext(ctx, "request failed",
			slog.String("error_reference", body.Reference),
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
		if status == http.StatusInternalServerError {
			body.Message = "Something went wrong. Error reference: " + body.Reference
		} else {
			body.Message += ". Error reference: " + body.Reference
		}
	}

	WriteJSON(w, status, Response{Error: body})
}

// requestLogger prefers the logger the request middleware stored in the
// context.
func requestLogger(r *http.Request, fallback *slog.Logger) *slog.Logger {
	if l := logger.FromContext(r.Context()); l != slog.Default() || fallback == nil {
		return l
	}
	return fallback
}

// WriteValidationError answers a body that failed to decode or validate:
// 413 when it exceeded the size limit, 400 with per-field messages for tag
// violations and 400 INVALID_PARAMETER otherwise.
func WriteValidationError(w http.ResponseWriter, err error) {
	var (
		tooLarge *http.MaxBytesError
		invalid  *validator.ValidationError
	)
	switch {
	case errors.As(err, &tooLarge):
		WriteJSON(w, http.StatusRequestEntityTooLarge, Response{Error: &ErrorResponse{
			Code:    "REQUEST_TOO_LARGE",
			Message: "request body exceeds the limit",
		}})
	case errors.As(err, &invalid):
		WriteJSON(w, http.StatusBadRequest, Response{Error: &ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "request validation failed",
			Fields:  invalid.Fields(),
		}})
	default:
		WriteJSON(w, http.StatusBadRequest, Response{Error: &ErrorResponse{
			Code:    "INVALID_PARAMETER",
			Message: err.Error(),
		}})
	}
}
