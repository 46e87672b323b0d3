package respond

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/isaac-evs/side-b/internal/model"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// WriteError writes a standardized error response
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Code:    statusCode,
		Message: message,
	})
}

func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message)
}

func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, message)
}

func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, message)
}

// StatusFor maps domain errors onto HTTP status codes. A failed primary store is
// reported as 503 since the request can be retried once it recovers.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case model.IsValidationError(err):
		return http.StatusBadRequest
	case model.IsNotFoundError(err):
		return http.StatusNotFound
	case model.IsDuplicateEntry(err):
		return http.StatusConflict
	case model.IsPrimaryWriteError(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteDomainError writes err with the status StatusFor picks. Messages of
// unclassified errors are not echoed back.
func WriteDomainError(w http.ResponseWriter, err error) {
	code := StatusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError || code == http.StatusServiceUnavailable {
		log.Error().Stack().Err(err).Int("code", code).Msg("request failed")
		msg = ""
	}
	WriteError(w, code, msg)
}
