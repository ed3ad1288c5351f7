package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-unify/pkg/apperrors"
)

// ApiResponse is the envelope for JSON responses.
type ApiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	return WriteJSON(w, statusCode, ApiResponse{
		Success: false,
		Error:   errorCode,
		Message: message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// writeError maps err onto a status code and writes it. Mapping errors carry
// their own status; store misses are 404; anything else is a 500.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status, code := http.StatusInternalServerError, "internal_error"

	var mappingErr *apperrors.MappingError
	switch {
	case errors.As(err, &mappingErr):
		status, code = mappingErr.HTTPStatus(), string(mappingErr.Kind)
	case errors.Is(err, apperrors.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	}

	if err := ErrorResponse(w, status, code, err.Error()); err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
}

func writeBadRequest(w http.ResponseWriter, logger *zap.Logger, code, message string) {
	if err := ErrorResponse(w, http.StatusBadRequest, code, message); err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
}
