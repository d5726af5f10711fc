package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mindoraRwanda/mindorabeta/internal/presence"
)

// PresenceHandler reports whether a user holds a live connection.
type PresenceHandler struct {
	store presence.Store
}

// NewPresenceHandler creates a presence handler.
func NewPresenceHandler(store presence.Store) *PresenceHandler {
	return &PresenceHandler{store: store}
}

type presenceResponse struct {
	UserID   string     `json:"userId"`
	Online   bool       `json:"online"`
	LastSeen *time.Time `json:"lastSeen,omitempty"`
}

// RegisterRoutes registers presence routes. Callers must already be
// authenticated.
func (h *PresenceHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/presence/{userID}", h.Get)
}

// Get returns the presence of a single user.
func (h *PresenceHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	at, ok, err := h.store.LastSeen(r.Context(), userID)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	resp := presenceResponse{UserID: userID, Online: ok}
	if ok {
		resp.LastSeen = &at
	}
	JSON(w, http.StatusOK, resp)
}
