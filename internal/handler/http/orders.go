package http

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/ecommerce-admin/internal/resource"
	"github.com/utafrali/ecommerce-admin/pkg/httputil"
	"github.com/utafrali/ecommerce-admin/pkg/validator"
)

// OrderHandler exposes an order store. The orders page and the pending
// orders widget each get one.
type OrderHandler struct {
	store  *resource.OrderStore
	logger *slog.Logger
}

// NewOrderHandler creates an order handler over store.
func NewOrderHandler(store *resource.OrderStore, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{store: store, logger: logger}
}

// UpdateOrderStatusRequest is the JSON request body for changing an order's status.
type UpdateOrderStatusRequest struct {
	Status        string `json:"status" validate:"required,oneof=Pending Processing Shipped Delivered Cancelled"`
	PaymentStatus string `json:"paymentStatus" validate:"omitempty,oneof=Pending Paid Failed Refunded"`
}

// List handles GET /admin/orders
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	params := listParams(r, h.store.DefaultParams())
	writeState(w, h.store.Fetch(r.Context(), params))
}

// Refresh handles POST /admin/orders/refresh
func (h *OrderHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	writeState(w, h.store.Refetch(r.Context()))
}

// UpdateStatus handles PATCH /admin/orders/{id}/status
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.PathID(w, r, "id")
	if !ok {
		return
	}

	var req UpdateOrderStatusRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if err := h.store.UpdateStatus(r.Context(), id, req.Status, req.PaymentStatus); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, h.store.Snapshot())
}

// Delete handles DELETE /admin/orders/{id}
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.PathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, h.store.Snapshot())
}
