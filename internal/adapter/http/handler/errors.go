package handler

import (
	"context"
	"net/http"

	"github.com/ridecore/dispatch/internal/domain/types"
	"github.com/ridecore/dispatch/pkg/logger"
	wrap "github.com/ridecore/dispatch/pkg/logger/wrapper"
)

func errorResponse(w http.ResponseWriter, status int, message any) {
	env := envelope{"error": message}

	// Write the response using the writeJSON() helper. If this happens to return an
	// error then log it, and fall back to sending the client an empty response with a
	// 500 Internal Server Error status code.
	if err := writeJSON(w, status, env, nil); err != nil {
		w.WriteHeader(500)
	}
}

// failedValidationResponse returns 422 UnprocessableEntity status.
func failedValidationResponse(w http.ResponseWriter, errors map[string]string) {
	errorResponse(w, http.StatusUnprocessableEntity, errors)
}

// badRequestResponse returns 400 BadRequest status.
func badRequestResponse(w http.ResponseWriter, message any) {
	errorResponse(w, http.StatusBadRequest, message)
}

// internalErrorResponse returns 500 InternalServerError status.
func internalErrorResponse(w http.ResponseWriter, message any) {
	errorResponse(w, http.StatusInternalServerError, message)
}

// statusFor maps a Kind to its HTTP status.
func statusFor(kind types.Kind) int {
	switch kind {
	case types.KindNotFound:
		return http.StatusNotFound
	case types.KindForbidden:
		return http.StatusForbidden
	case types.KindBadRequest:
		return http.StatusBadRequest
	case types.KindConflict:
		return http.StatusConflict
	case types.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// respondError classifies err and writes the matching status. Internal
// errors are logged with the request's LogCtx; client errors are not
// (they aren't a service fault).
func respondError(ctx context.Context, w http.ResponseWriter, log logger.Logger, err error) {
	kind := types.Classify(err)
	status := statusFor(kind)
	if kind == types.KindInternal {
		log.Error(wrap.ErrorCtx(ctx, err), "request failed", err)
		errorResponse(w, status, "the server encountered a problem and could not process your request")
		return
	}
	errorResponse(w, status, err.Error())
}
