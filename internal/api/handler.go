// Package api provides HTTP handlers for the Mindora API.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mindoraRwanda/mindorabeta/internal/store"
)

const maxBodyBytes = 1 << 20

// Handler provides common handler utilities.
type Handler struct {
	repo store.Repository
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.Repository) *Handler {
	return &Handler{repo: repo}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// WriteError maps service and storage errors to HTTP responses.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		Error(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrInvalid):
		Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrConflict):
		Error(w, http.StatusConflict, "resource was modified concurrently")
	default:
		slog.Error("Request failed", "error", err, "method", r.Method, "path", r.URL.Path)
		Error(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSON reads a JSON body into v and rejects unknown fields.
func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: malformed request body: %v", store.ErrInvalid, err)
	}
	return nil
}

// queryInt parses an integer query parameter, returning fallback when it is
// absent or malformed.
func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
