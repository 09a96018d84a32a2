package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/menuhub/hubsync/internal/hubclient"
)

// Error is the body of every error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes not derived from hubclient categories.
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeNotFound       = "not_found"
	ErrCodeConflict       = "conflict"
	ErrCodeInternal       = "internal_error"
	ErrCodeUnavailable    = "unavailable"
	ErrCodeTimeout        = "timeout"
	ErrCodeNotImplemented = "not_implemented"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{Status: status, Code: code, Message: message})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeAgentError maps a hub session error to a status and code.
func writeAgentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, ErrCodeTimeout, err.Error())
		return
	case errors.Is(err, hubclient.ErrClosed), errors.Is(err, context.Canceled):
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, err.Error())
		return
	case errors.Is(err, hubclient.ErrAborted):
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
		return
	}

	code := hubclient.Category(err)
	status := http.StatusInternalServerError
	switch code {
	case hubclient.CategoryInvalidPairingCode, hubclient.CategoryOfferRejected, hubclient.CategoryInvalidOrder:
		status = http.StatusBadRequest
	case hubclient.CategoryRestaurantMismatch:
		status = http.StatusConflict
	case hubclient.CategoryTransport, hubclient.CategoryHub, hubclient.CategoryReconnectExhausted:
		status = http.StatusBadGateway
	case hubclient.CategoryNotConnected:
		status = http.StatusServiceUnavailable
	}
	writeError(w, status, code, err.Error())
}
