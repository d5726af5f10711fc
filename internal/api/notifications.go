package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mindoraRwanda/mindorabeta/internal/domain"
	"github.com/mindoraRwanda/mindorabeta/internal/identity"
)

const notificationPageSize = 50

// NotificationHandler serves the caller's notification inbox.
type NotificationHandler struct {
	*Handler
}

// NewNotificationHandler creates a notification handler.
func NewNotificationHandler(base *Handler) *NotificationHandler {
	return &NotificationHandler{Handler: base}
}

// RegisterRoutes registers notification routes. Callers must already be
// authenticated.
func (h *NotificationHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/notifications", func(r chi.Router) {
		r.Get("/", h.List)
		r.Patch("/read-all", h.MarkAllRead)
		r.Patch("/{id}/read", h.MarkRead)
		r.Delete("/{id}", h.Delete)
	})
}

// List returns the caller's latest notifications, newest first.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.repo.ListNotifications(r.Context(), identity.UserIDFromContext(r.Context()), notificationPageSize)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if items == nil {
		items = []domain.Notification{}
	}
	JSON(w, http.StatusOK, items)
}

// MarkRead marks one notification as read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	err := h.repo.MarkNotificationRead(r.Context(), identity.UserIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": "read"})
}

// MarkAllRead marks every unread notification of the caller as read.
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.repo.MarkAllNotificationsRead(r.Context(), identity.UserIDFromContext(r.Context()))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]int64{"updated": n})
}

// Delete removes one notification.
func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.repo.DeleteNotification(r.Context(), identity.UserIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
