package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/SrinivasareddyGatla/open-commerce-search/pkg/errors"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 1 << 20

// remoteEnvelope is the error half of the httputil envelope.
type remoteEnvelope struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseResponseError consumes and closes the body of a failed response and
// turns it into an error. Envelopes from our own services become an
// *apperrors.AppError wrapping the sentinel of their code, so errors.Is
// works across the wire. Other bodies and 5xx envelopes become plain errors.
func ParseResponseError(resp *http.Response, service string) error {
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", service, resp.StatusCode, err)
	}

	var env remoteEnvelope
	if json.Unmarshal(raw, &env) != nil || env.Error == nil {
		return fmt.Errorf("%s returned status %d: %s", service, resp.StatusCode, raw)
	}
	code, msg := env.Error.Code, env.Error.Message

	sentinel := apperrors.SentinelForCode(code)
	if sentinel == nil {
		sentinel = sentinelForStatus(resp.StatusCode)
	}
	if resp.StatusCode >= http.StatusInternalServerError && sentinel != apperrors.ErrBackendUnavailable {
		return fmt.Errorf("%s server error (%d/%s): %s", service, resp.StatusCode, code, msg)
	}
	return &apperrors.AppError{
		Code:    code,
		Message: service + ": " + msg,
		Status:  resp.StatusCode,
		Err:     sentinel,
	}
}

// sentinelForStatus covers envelopes whose code we do not know.
func sentinelForStatus(status int) error {
	switch status {
	case http.StatusNotFound:
		return apperrors.ErrNotFound
	case http.StatusBadRequest:
		return apperrors.ErrInvalidParameter
	case http.StatusConflict:
		return apperrors.ErrConcurrentSessionConflict
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperrors.ErrUnauthorized
	case http.StatusServiceUnavailable:
		return apperrors.ErrBackendUnavailable
	default:
		return nil
	}
}
