package http

import (
	"net/http"

	"github.com/utafrali/ecommerce-admin/internal/notify"
	"github.com/utafrali/ecommerce-admin/pkg/httputil"
)

// ToastHandler hands queued toasts to the UI.
type ToastHandler struct {
	tray *notify.Tray
}

// NewToastHandler creates a toast handler draining tray.
func NewToastHandler(tray *notify.Tray) *ToastHandler {
	return &ToastHandler{tray: tray}
}

// Drain handles GET /admin/toasts
func (h *ToastHandler) Drain(w http.ResponseWriter, r *http.Request) {
	httputil.WriteData(w, http.StatusOK, h.tray.Drain())
}
