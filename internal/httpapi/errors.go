package httpapi

import (
	"encoding/json"
	"net/http"

	"deviced/internal/device"
	"deviced/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// statusForError maps well-known device-manager errors to HTTP statuses.
func statusForError(err error) int {
	switch {
	case device.IsNetworkNotFound(err):
		return http.StatusNotFound
	case device.IsDuplicateNetwork(err):
		return http.StatusConflict
	case device.IsBackendMismatch(err):
		return http.StatusBadRequest
	case device.IsOutOfDeviceMemory(err):
		return http.StatusInsufficientStorage
	case device.IsResourceExhausted(err):
		return http.StatusTooManyRequests
	case device.IsRemoteAddressUnavailable(err):
		return http.StatusNotFound
	}
	if he, ok := err.(HTTPError); ok {
		return he.StatusCode()
	}
	return http.StatusInternalServerError
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}
