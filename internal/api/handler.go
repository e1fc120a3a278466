package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/AlmostInteractive/Mexico-Naturalization-Study-Tool/internal/service"
	"github.com/AlmostInteractive/Mexico-Naturalization-Study-Tool/internal/store"
)

// Handler holds all dependencies needed by HTTP handlers. Instead of
// relying on package-level globals, every handler method receives its
// dependencies through this struct.
type Handler struct {
	quiz   *service.QuizService
	logger *slog.Logger
}

// NewHandler creates a Handler with the given dependencies.
func NewHandler(quiz *service.QuizService, logger *slog.Logger) *Handler {
	return &Handler{
		quiz:   quiz,
		logger: logger,
	}
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// handleServiceError maps engine errors onto HTTP responses. Returns
// true if an error was handled (caller should return).
func (h *Handler) handleServiceError(w http.ResponseWriter, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, service.ErrNoItems):
		respondJSON(w, http.StatusNotFound, map[string]string{"error": "no items available"})
	case errors.Is(err, service.ErrSessionNotFound):
		http.Error(w, "session not found", http.StatusNotFound)
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	default:
		h.logger.Error("service error", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
	return true
}
