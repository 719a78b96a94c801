package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/benvon/taskwise/internal/logger"
	"github.com/benvon/taskwise/internal/store"
	"go.uber.org/zap"
)

// maxErrorMessageLength caps messages returned to clients
const maxErrorMessageLength = 200

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data any) {
	respondJSONMessage(w, status, "", data)
}

// respondJSONMessage sends a JSON response with a human readable message
func respondJSONMessage(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success":   true,
		"data":      data,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if message != "" {
		response["message"] = message
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// sanitizeErrorMessage strips control characters and truncates
func sanitizeErrorMessage(message string) string {
	return logger.SanitizeString(message, maxErrorMessageLength)
}

// respondJSONError sends an error JSON response with sanitized error messages
func respondJSONError(w http.ResponseWriter, status int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success":   false,
		"error":     errorType,
		"message":   sanitizeErrorMessage(message),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// respondStoreError maps store errors onto HTTP statuses
func respondStoreError(w http.ResponseWriter, log *zap.Logger, err error) {
	switch {
	case store.IsValidationError(err):
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
	case store.IsNotFoundError(err):
		respondJSONError(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		log.Error("task_operation_failed", zap.String("error", logger.SanitizeError(err)))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to process task")
	}
}
