package http

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/ecommerce-admin/internal/domain"
	"github.com/utafrali/ecommerce-admin/internal/resource"
	"github.com/utafrali/ecommerce-admin/pkg/httputil"
)

// NotificationHandler exposes the notification feed.
type NotificationHandler struct {
	store  *resource.NotificationStore
	logger *slog.Logger
}

// NewNotificationHandler creates a notification handler over store.
func NewNotificationHandler(store *resource.NotificationStore, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{store: store, logger: logger}
}

// notificationState is the feed state plus the bell counter.
type notificationState struct {
	resource.State[domain.Notification]
	UnreadCount int `json:"unreadCount"`
}

func (h *NotificationHandler) state(st resource.State[domain.Notification]) notificationState {
	return notificationState{State: st, UnreadCount: h.store.UnreadCount()}
}

// List handles GET /admin/notifications
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	st := h.store.Fetch(r.Context(), listParams(r, h.store.DefaultParams()))
	httputil.WriteData(w, stateStatus(st.AuthRequired), h.state(st))
}

// Refresh handles POST /admin/notifications/refresh
func (h *NotificationHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	st := h.store.Refetch(r.Context())
	httputil.WriteData(w, stateStatus(st.AuthRequired), h.state(st))
}

// MarkAsRead handles PATCH /admin/notifications/{id}/read
func (h *NotificationHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.PathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.store.MarkAsRead(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, h.state(h.store.Snapshot()))
}

// MarkAllAsRead handles PATCH /admin/notifications/read-all
func (h *NotificationHandler) MarkAllAsRead(w http.ResponseWriter, r *http.Request) {
	if err := h.store.MarkAllAsRead(r.Context()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, h.state(h.store.Snapshot()))
}

// Delete handles DELETE /admin/notifications/{id}
func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.PathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.store.Delete(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, h.state(h.store.Snapshot()))
}
