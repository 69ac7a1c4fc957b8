package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hypergopher/downblog"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeError writes a JSON error response
func writeError(w http.ResponseWriter, statusCode int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(errorResponse{
		Success: false,
		Error:   errorType,
		Message: message,
	}); err != nil {
		slog.Error("failed to encode error response", slog.String("error", err.Error()))
	}
}

// handleServiceError maps service errors to HTTP responses
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *downblog.ValidationError
	var notFoundErr *downblog.NotFoundError

	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, "InvalidRequest",
			fmt.Sprintf("inputted fields are not valid. Reason: %s", validationErr.Message))

	case errors.As(err, &notFoundErr):
		writeError(w, http.StatusNotFound, "NotFound",
			fmt.Sprintf("blog with id %s does not exist", notFoundErr.ID))

	case downblog.IsNotFound(err):
		writeError(w, http.StatusNotFound, "NotFound", "blog does not exist")

	default:
		// Don't leak internal error details to clients
		h.logger.Error("unexpected error in blog handler",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "InternalServerError",
			"An internal error occurred")
	}
}

// handleDecodeError reports a request body that could not be read as JSON.
func handleDecodeError(w http.ResponseWriter, err error) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		writeError(w, http.StatusRequestEntityTooLarge, "RequestTooLarge",
			fmt.Sprintf("Request body too large (max %d bytes)", maxBytesErr.Limit))
		return
	}
	writeError(w, http.StatusBadRequest, "InvalidRequest", "Invalid request body")
}
