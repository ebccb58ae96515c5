package api

import (
	"encoding/json"
	"net/http"

	"github.com/nerrad567/gray-logic-dispatch/internal/dispatch"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest    = "bad_request"
	ErrCodeNotFound      = "not_found"
	ErrCodeUnauthorized  = "unauthorised"
	ErrCodeForbidden     = "forbidden"
	ErrCodeConflict      = "conflict"
	ErrCodeInternal      = "internal_error"
	ErrCodeUnprocessable = "unprocessable"
	ErrCodeDeviceFailure = "device_failure"
	ErrCodeUnavailable   = "unavailable"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // best-effort write; the connection may be gone
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{Status: status, Code: code, Message: message})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeDispatchError maps a Send failure to a response.
func writeDispatchError(w http.ResponseWriter, err error) {
	switch dispatch.Classify(err) {
	case dispatch.OutcomeNotFound:
		writeNotFound(w, err.Error())
	case dispatch.OutcomeUnsupported, dispatch.OutcomeInvalidPayload, dispatch.OutcomeInvalidMessage:
		writeError(w, http.StatusUnprocessableEntity, ErrCodeUnprocessable, err.Error())
	case dispatch.OutcomeFailed:
		writeError(w, http.StatusBadGateway, ErrCodeDeviceFailure, err.Error())
	default:
		writeInternalError(w, err.Error())
	}
}
