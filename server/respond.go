package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ErickG09/api-muro-eolico/logger"
	"github.com/ErickG09/api-muro-eolico/rollup"
)

// RespondJSON writes a JSON response with the given status code and data.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Errorf("Failed to encode JSON response: %v\n", err)
	}
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// RespondError writes an error response with the given status code and error message.
func RespondError(w http.ResponseWriter, status int, err error) {
	RespondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: err.Error(),
	})
}

// RespondErrorString writes an error response with the given status code and error message string.
func RespondErrorString(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}

// respondDomainError maps the core's typed errors onto HTTP status codes.
func respondDomainError(w http.ResponseWriter, err error) {
	var validation *rollup.ValidationError
	var notFound *rollup.NotFoundError
	var storage *rollup.StorageError

	switch {
	case errors.As(err, &validation):
		RespondError(w, http.StatusBadRequest, err)
	case errors.As(err, &notFound):
		RespondError(w, http.StatusNotFound, err)
	case errors.As(err, &storage):
		logger.Errorf("%v\n", err)
		RespondError(w, http.StatusInternalServerError, err)
	default:
		logger.Errorf("%v\n", err)
		RespondError(w, http.StatusInternalServerError, err)
	}
}
