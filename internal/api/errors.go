package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/dingz-bridge/internal/dingz"
)

// Error is the JSON error body.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes.
const (
	ErrCodeBadRequest  = "bad_request"
	ErrCodeNotFound    = "not_found"
	ErrCodeInternal    = "internal_error"
	ErrCodeDevice      = "device_error"
	ErrCodeUnavailable = "unavailable"
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

func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeDeviceError maps a client error: a rejected argument is the
// caller's fault (400), anything else is the device's (502).
func writeDeviceError(w http.ResponseWriter, err error) {
	if errors.Is(err, dingz.ErrInvalidArgument) {
		writeBadRequest(w, err.Error())
		return
	}
	writeError(w, http.StatusBadGateway, ErrCodeDevice, err.Error())
}
