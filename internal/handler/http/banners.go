package http

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/ecommerce-admin/internal/resource"
	"github.com/utafrali/ecommerce-admin/pkg/httputil"
	"github.com/utafrali/ecommerce-admin/pkg/validator"
)

// BannerHandler exposes banner management and the public hero slider.
type BannerHandler struct {
	store      *resource.BannerStore
	storefront *resource.BannerStore
	logger     *slog.Logger
}

// NewBannerHandler creates a banner handler. storefront is the public store.
func NewBannerHandler(store, storefront *resource.BannerStore, logger *slog.Logger) *BannerHandler {
	return &BannerHandler{store: store, storefront: storefront, logger: logger}
}

// SetBannerActiveRequest is the JSON request body for showing or hiding a banner.
type SetBannerActiveRequest struct {
	IsActive *bool `json:"isActive" validate:"required"`
}

// List handles GET /admin/banners
func (h *BannerHandler) List(w http.ResponseWriter, r *http.Request) {
	writeState(w, h.store.Fetch(r.Context(), listParams(r, h.store.DefaultParams())))
}

// Refresh handles POST /admin/banners/refresh
func (h *BannerHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	writeState(w, h.store.Refetch(r.Context()))
}

// SetActive handles PATCH /admin/banners/{id}/active
func (h *BannerHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.PathID(w, r, "id")
	if !ok {
		return
	}

	var req SetBannerActiveRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if err := h.store.SetActive(r.Context(), id, *req.IsActive); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, h.store.Snapshot())
}

// Delete handles DELETE /admin/banners/{id}
func (h *BannerHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

// Storefront handles GET /storefront/banners
func (h *BannerHandler) Storefront(w http.ResponseWriter, r *http.Request) {
	writeState(w, h.storefront.Fetch(r.Context(), h.storefront.DefaultParams()))
}
