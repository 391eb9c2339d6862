package api

import (
	"errors"
	"net/http"

	"pos-activation/internal/domain"
	"pos-activation/internal/infra/logging"

	"github.com/go-chi/render"
	"github.com/rs/zerolog"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

var errorStatus = []struct {
	err    error
	status int
}{
	{domain.ErrInvalidKey, http.StatusBadRequest},
	{domain.ErrKeyAlreadyUsed, http.StatusConflict},
	{domain.ErrDuplicateFeature, http.StatusConflict},
	{domain.ErrAlreadyExists, http.StatusConflict},
	{domain.ErrKeyExpired, http.StatusGone},
	{domain.ErrFeatureDisabled, http.StatusForbidden},
	{domain.ErrTooManyAttempts, http.StatusTooManyRequests},
	{domain.ErrConcurrentRedemption, http.StatusServiceUnavailable},
	{domain.ErrUnknownFeature, http.StatusNotFound},
	{domain.ErrUnknownBusiness, http.StatusNotFound},
	{domain.ErrNotFound, http.StatusNotFound},
	{domain.ErrActivationRequired, http.StatusUnprocessableEntity},
	{domain.ErrInvalidFeatureName, http.StatusUnprocessableEntity},
	{domain.ErrInvalidArgument, http.StatusUnprocessableEntity},
}

// statusFor maps a use case error to its HTTP status; unmapped errors are 500.
func statusFor(err error) int {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

// writeError answers with the mapped status. Internal errors are logged and
// replaced by a generic message.
func writeError(w http.ResponseWriter, r *http.Request, logger *zerolog.Logger, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logging.With(r.Context(), logger).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		msg = "internal error"
	} else {
		for _, e := range errorStatus {
			if errors.Is(err, e.err) {
				msg = e.err.Error()
				break
			}
		}
	}
	writeMessage(w, r, status, msg)
}

func writeMessage(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: msg, TraceID: logging.TraceID(r.Context())})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}
