package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/utafrali/ecommerce-admin/internal/auth"
	"github.com/utafrali/ecommerce-admin/pkg/httputil"
	"github.com/utafrali/ecommerce-admin/pkg/validator"
)

// Sessions stores the admin token. *auth.TokenStore satisfies it.
type Sessions interface {
	Save(ctx context.Context, token string, remember bool) error
	Current(ctx context.Context) (token string, remembered bool, err error)
	Clear(ctx context.Context) error
}

// Resetter discards cached state. Every store is one.
type Resetter interface {
	Reset()
}

// SessionHandler signs the admin in and out of the console.
type SessionHandler struct {
	sessions Sessions
	stores   []Resetter
	logger   *slog.Logger
	now      func() time.Time
}

// NewSessionHandler creates a session handler. stores are reset whenever the
// signed-in admin changes.
func NewSessionHandler(sessions Sessions, stores []Resetter, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, stores: stores, logger: logger, now: time.Now}
}

// CreateSessionRequest is the JSON request body for signing in.
type CreateSessionRequest struct {
	Token    string `json:"token" validate:"required,jwt"`
	Remember bool   `json:"remember"`
}

// SessionResponse describes the current console session.
type SessionResponse struct {
	Authenticated bool         `json:"authenticated"`
	Remembered    bool         `json:"remembered,omitempty"`
	Admin         *auth.Claims `json:"admin,omitempty"`
	Expired       bool         `json:"expired,omitempty"`
}

// Create handles POST /admin/session
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	claims, err := auth.ParseClaims(req.Token)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "token carries no admin identity"},
		})
		return
	}

	if err := h.sessions.Save(r.Context(), req.Token, req.Remember); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.resetStores()

	httputil.WriteData(w, http.StatusCreated, SessionResponse{
		Authenticated: true,
		Remembered:    req.Remember,
		Admin:         &claims,
		Expired:       claims.Expired(h.now()),
	})
}

// Get handles GET /admin/session
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	token, remembered, err := h.sessions.Current(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if token == "" {
		httputil.WriteData(w, http.StatusOK, SessionResponse{})
		return
	}

	resp := SessionResponse{Authenticated: true, Remembered: remembered}
	if claims, err := auth.ParseClaims(token); err == nil {
		resp.Admin = &claims
		resp.Expired = claims.Expired(h.now())
	}
	httputil.WriteData(w, http.StatusOK, resp)
}

// Delete handles DELETE /admin/session
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Clear(r.Context()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.resetStores()
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) resetStores() {
	for _, s := range h.stores {
		s.Reset()
	}
}
