package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/ecommerce-admin/internal/auth"
	"github.com/utafrali/ecommerce-admin/internal/config"
	"github.com/utafrali/ecommerce-admin/internal/notify"
	"github.com/utafrali/ecommerce-admin/internal/resource"
	"github.com/utafrali/ecommerce-admin/pkg/health"
	"github.com/utafrali/ecommerce-admin/pkg/httpclient"
	"github.com/utafrali/ecommerce-admin/pkg/httputil"
)

// --- Mock Sessions ---

type mockSessions struct {
	mock.Mock
}

func (m *mockSessions) Save(ctx context.Context, token string, remember bool) error {
	args := m.Called(ctx, token, remember)
	return args.Error(0)
}

func (m *mockSessions) Current(ctx context.Context) (string, bool, error) {
	args := m.Called(ctx)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *mockSessions) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- Test Helpers ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testConfig() *config.Config {
	return &config.Config{
		Environment:            "test",
		CORSAllowedOrigins:     []string{"http://localhost:3000"},
		CORSMaxAge:             600,
		RateLimitRPS:           1000,
		RateLimitBurst:         1000,
		StorefrontCacheSeconds: 60,
	}
}

// fakeStorefront mimics the storefront backend under /api.
type fakeStorefront struct {
	server *httptest.Server
	hits   atomic.Int32
	// mutate answers every non-GET request.
	mutate http.HandlerFunc
}

func newFakeStorefront(t *testing.T) *fakeStorefront {
	t.Helper()
	f := &fakeStorefront{}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		if r.Method != http.MethodGet {
			if f.mutate != nil {
				f.mutate(w, r)
				return
			}
			writeBody(w, http.StatusOK, `{"success":true}`)
			return
		}
		switch r.URL.Path {
		case "/api/orders", "/api/orders/pending":
			writeBody(w, http.StatusOK, `{"success":true,"data":[
				{"_id":"o1","orderNumber":"PUF-1001","status":"Pending","paymentStatus":"Pending","total":599},
				{"_id":"o2","orderNumber":"PUF-1002","status":"Processing","paymentStatus":"Paid","total":120}
			],"pagination":{"currentPage":1,"totalPages":1,"totalItems":2,"itemsPerPage":10}}`)
		case "/api/notifications":
			writeBody(w, http.StatusOK, `{"success":true,"data":{"notifications":[
				{"_id":"n1","title":"New order","isRead":false},
				{"_id":"n2","title":"Low stock","isRead":false},
				{"_id":"n3","title":"Refund","isRead":true}
			],"unreadCount":2}}`)
		case "/api/banners", "/api/banners/active":
			writeBody(w, http.StatusOK, `{"success":true,"data":[
				{"_id":"b1","title":"Summer sale","isActive":true,"order":1},
				{"_id":"b2","title":"Winter sale","isActive":false,"order":2}
			]}`)
		default:
			writeBody(w, http.StatusNotFound, `{"message":"Not found"}`)
		}
	}))
	t.Cleanup(f.server.Close)
	return f
}

func writeBody(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

type console struct {
	router   http.Handler
	backend  *fakeStorefront
	tokens   *auth.TokenStore
	tray     *notify.Tray
	stores   Stores
	sessions Sessions
}

// newConsole builds the full router against a fake backend. When sessions is
// nil the real token store backs the session endpoints.
func newConsole(t *testing.T, sessions Sessions) *console {
	t.Helper()
	backend := newFakeStorefront(t)
	logger := testLogger()

	api, err := httpclient.NewAPI(backend.server.URL+"/api", httpclient.New(httpclient.DefaultConfig()), logger)
	require.NoError(t, err)

	tokens := auth.NewTokenStore(auth.NewMemoryStorage(), auth.NewMemoryStorage(), time.Hour)
	tray := notify.NewTray(10)
	deps := resource.Deps{API: api, Auth: auth.NewGate(tokens), Notifier: tray, Logger: logger}
	public := deps
	public.Auth = auth.Public{}

	stores := Stores{
		Orders:        resource.NewOrderStore(deps),
		Pending:       resource.NewPendingOrderStore(deps),
		Notifications: resource.NewNotificationStore(deps),
		Banners:       resource.NewBannerStore(deps),
		Storefront:    resource.NewActiveBannerStore(public),
	}
	if sessions == nil {
		sessions = tokens
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	router := NewRouter(ctx, testConfig(), Dependencies{
		Stores:        stores,
		Sessions:      sessions,
		Tray:          tray,
		Health:        health.NewHandler(),
		AdminResolver: auth.AdminResolver(tokens),
		Logger:        logger,
	})
	return &console{router: router, backend: backend, tokens: tokens, tray: tray, stores: stores, sessions: sessions}
}

func (c *console) signIn(t *testing.T) {
	t.Helper()
	require.NoError(t, c.tokens.Save(context.Background(), "admin-token", true))
}

func (c *console) do(method, target string, body any) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)
	return rec
}

// decodeData decodes the data half of the response envelope into dst.
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	var resp struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NoError(t, json.Unmarshal(resp.Data, dst))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) *httputil.ErrorResponse {
	t.Helper()
	var resp httputil.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotNil(t, resp.Error)
	return resp.Error
}

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

type orderList struct {
	Items []struct {
		ID            string `json:"_id"`
		OrderNumber   string `json:"orderNumber"`
		Status        string `json:"status"`
		PaymentStatus string `json:"paymentStatus"`
	} `json:"items"`
	Pagination *struct {
		TotalItems int `json:"totalItems"`
	} `json:"pagination"`
	Phase        string `json:"phase"`
	Error        string `json:"error"`
	AuthRequired bool   `json:"authRequired"`
}

// --- Health ---

func TestRouter_Liveness(t *testing.T) {
	c := newConsole(t, nil)
	rec := c.do(http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_Metrics(t *testing.T) {
	c := newConsole(t, nil)
	rec := c.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// --- Orders ---

func TestListOrders_Success(t *testing.T) {
	c := newConsole(t, nil)
	c.signIn(t)

	rec := c.do(http.MethodGet, "/admin/orders?page=1&limit=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var st orderList
	decodeData(t, rec, &st)
	assert.Equal(t, "ready", st.Phase)
	require.Len(t, st.Items, 2)
	assert.Equal(t, "PUF-1001", st.Items[0].OrderNumber)
	require.NotNil(t, st.Pagination)
	assert.Equal(t, 2, st.Pagination.TotalItems)
}

func TestListOrders_WithoutSessionIsUnauthorized(t *testing.T) {
	c := newConsole(t, nil)

	rec := c.do(http.MethodGet, "/admin/orders", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var st orderList
	decodeData(t, rec, &st)
	assert.True(t, st.AuthRequired)
	assert.Empty(t, st.Items)
	assert.Equal(t, int32(0), c.backend.hits.Load())
}

func TestListPendingOrders(t *testing.T) {
	c := newConsole(t, nil)
	c.signIn(t)

	rec := c.do(http.MethodGet, "/admin/orders/pending", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var st orderList
	decodeData(t, rec, &st)
	assert.Len(t, st.Items, 2)
}

func TestUpdateOrderStatus_Success(t *testing.T) {
	c := newConsole(t, nil)
	c.signIn(t)
	c.do(http.MethodGet, "/admin/orders", nil)

	rec := c.do(http.MethodPatch, "/admin/orders/o1/status", UpdateOrderStatusRequest{Status: "Shipped", PaymentStatus: "Paid"})
	require.Equal(t, http.StatusOK, rec.Code)

	var st orderList
	decodeData(t, rec, &st)
	require.Len(t, st.Items, 2)
	assert.Equal(t, "Shipped", st.Items[0].Status)
	assert.Equal(t, "Paid", st.Items[0].PaymentStatus)
	assert.Equal(t, "Processing", st.Items[1].Status)

	toasts := c.tray.Peek()
	require.Len(t, toasts, 1)
	assert.Equal(t, "Order status updated", toasts[0].Message)
}

func TestUpdateOrderStatus_ValidationError(t *testing.T) {
	c := newConsole(t, nil)
	c.signIn(t)

	rec := c.do(http.MethodPatch, "/admin/orders/o1/status", map[string]string{"status": "Teleported"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeError(t, rec).Code)
	assert.Equal(t, int32(0), c.backend.hits.Load())
}

func TestUpdateOrderStatus_BackendRejects(t *testing.T) {
	c := newConsole(t, nil)
	c.signIn(t)
	c.backend.mutate = func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, http.StatusBadRequest, `{"message":"Cannot ship a cancelled order"}`)
	}
	c.do(http.MethodGet, "/admin/orders", nil)

	rec := c.do(http.MethodPatch, "/admin/orders/o1/status", UpdateOrderStatusRequest{Status: "Shipped"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Cannot ship a cancelled order", decodeError(t, rec).Message)
	assert.Equal(t, "Pending", c.stores.Orders.Snapshot().Items[0].Status)
}

func TestUpdateOrderStatus_RequiresJSON(t *testing.T) {
	c := newConsole(t, nil)
	c.signIn(t)

	req := httptest.NewRequest(http.MethodPatch, "/admin/orders/o1/status", bytes.NewBufferString(`status=Shipped`))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestDeleteOrder(t *testing.T) {
	c := newConsole(t, nil)
	c.signIn(t)
	c.do(http.MethodGet, "/admin/orders", nil)

	rec := c.do(http.MethodDelete, "/admin/orders/o2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var st orderList
	decodeData(t, rec, &st)
	require.Len(t, st.Items, 1)
	assert.Equal(t, "o1", st.Items[0].ID)
}

func TestRefreshOrders_ReusesParams(t *testing.T) {
	c := newConsole(t, nil)
	c.signIn(t)
	c.do(http.MethodGet, "/admin/orders?status=Pending", nil)

	rec := c.do(http.MethodPost, "/admin/orders/refresh", map[string]string{})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Pending", c.stores.Orders.Snapshot().Params.Status)
}

// --- Notifications ---

type notificationList struct {
	Items []struct {
		ID     string `json:"_id"`
		IsRead bool   `json:"isRead"`
	} `json:"items"`
	UnreadCount int `json:"unreadCount"`
}

func TestNotifications_ListIncludesUnreadCount(t *testing.T) {
	c := newConsole(t, nil)
	c.signIn(t)

	rec := c.do(http.MethodGet, "/admin/notifications", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var st notificationList
	decodeData(t, rec, &st)
	assert.Len(t, st.Items, 3)
	assert.Equal(t, 2, st.UnreadCount)
}

func TestNotifications_MarkAsRead(t *testing.T) {
	c := newConsole(t, nil)
	c.signIn(t)
	c.do(http.MethodGet, "/admin/notifications", nil)

	rec := c.do(http.MethodPatch, "/admin/notifications/n1/read", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var st notificationList
	decodeData(t, rec, &st)
	assert.True(t, st.Items[0].IsRead)
	assert.Equal(t, 1, st.UnreadCount)
}

func TestNotifications_MarkAllAsReadWithoutBody(t *testing.T) {
	c := newConsole(t, nil)
	c.signIn(t)
	c.do(http.MethodGet, "/admin/notifications", nil)

	rec := c.do(http.MethodPatch, "/admin/notifications/read-all", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var st notificationList
	decodeData(t, rec, &st)
	assert.Equal(t, 0, st.UnreadCount)
	for _, n := range st.Items {
		assert.True(t, n.IsRead)
	}
}

func TestNotifications_Delete(t *testing.T) {
	c := newConsole(t, nil)
	c.signIn(t)
	c.do(http.MethodGet, "/admin/notifications", nil)

	rec := c.do(http.MethodDelete, "/admin/notifications/n2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var st notificationList
	decodeData(t, rec, &st)
	assert.Len(t, st.Items, 2)
	assert.Equal(t, 1, st.UnreadCount)
}

// --- Banners ---

type bannerList struct {
	Items []struct {
		ID       string `json:"_id"`
		IsActive bool   `json:"isActive"`
	} `json:"items"`
}

func TestBanners_SetActive(t *testing.T) {
	c := newConsole(t, nil)
	c.signIn(t)
	c.do(http.MethodGet, "/admin/banners", nil)

	rec := c.do(http.MethodPatch, "/admin/banners/b2/active", map[string]bool{"isActive": true})
	require.Equal(t, http.StatusOK, rec.Code)

	var st bannerList
	decodeData(t, rec, &st)
	assert.True(t, st.Items[1].IsActive)
	assert.Equal(t, "Banner activated", c.tray.Peek()[0].Message)
}

func TestBanners_SetActiveRequiresFlag(t *testing.T) {
	c := newConsole(t, nil)
	c.signIn(t)

	rec := c.do(http.MethodPatch, "/admin/banners/b2/active", map[string]string{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeError(t, rec).Code)
}

func TestStorefrontBanners_PublicAndCacheable(t *testing.T) {
	c := newConsole(t, nil)

	rec := c.do(http.MethodGet, "/storefront/banners", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=60", rec.Header().Get("Cache-Control"))

	var st bannerList
	decodeData(t, rec, &st)
	assert.Len(t, st.Items, 2)
}

// --- Toasts ---

func TestToasts_DrainEmptiesTray(t *testing.T) {
	c := newConsole(t, nil)
	c.signIn(t)
	c.do(http.MethodGet, "/admin/orders", nil)
	c.do(http.MethodDelete, "/admin/orders/o1", nil)

	rec := c.do(http.MethodGet, "/admin/toasts", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var toasts []notify.Toast
	decodeData(t, rec, &toasts)
	require.Len(t, toasts, 1)
	assert.Equal(t, "Order deleted", toasts[0].Message)
	assert.Equal(t, 0, c.tray.Len())
}

// --- Session ---

func TestSession_CreateStoresTokenAndResetsStores(t *testing.T) {
	c := newConsole(t, nil)
	c.signIn(t)
	c.do(http.MethodGet, "/admin/orders", nil)
	require.Equal(t, resource.PhaseReady, c.stores.Orders.Snapshot().Phase)

	token := signedToken(t, jwt.MapClaims{"sub": "admin-1", "email": "ops@example.com", "isAdmin": true})
	rec := c.do(http.MethodPost, "/admin/session", CreateSessionRequest{Token: token, Remember: false})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp SessionResponse
	decodeData(t, rec, &resp)
	assert.True(t, resp.Authenticated)
	require.NotNil(t, resp.Admin)
	assert.Equal(t, "admin-1", resp.Admin.Subject)
	assert.Equal(t, "ops@example.com", resp.Admin.Email)

	stored, remembered, err := c.tokens.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, token, stored)
	assert.False(t, remembered)
	assert.Equal(t, resource.PhaseIdle, c.stores.Orders.Snapshot().Phase)
}

func TestSession_CreateRejectsNonJWT(t *testing.T) {
	c := newConsole(t, nil)

	rec := c.do(http.MethodPost, "/admin/session", CreateSessionRequest{Token: "not-a-token"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeError(t, rec).Code)
}

func TestSession_CreateRejectsTokenWithoutIdentity(t *testing.T) {
	c := newConsole(t, nil)

	token := signedToken(t, jwt.MapClaims{"role": "admin"})
	rec := c.do(http.MethodPost, "/admin/session", CreateSessionRequest{Token: token})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_INPUT", decodeError(t, rec).Code)
}

func TestSession_GetReportsExpiry(t *testing.T) {
	c := newConsole(t, nil)
	token := signedToken(t, jwt.MapClaims{"sub": "admin-1", "exp": time.Now().Add(-time.Hour).Unix()})
	require.NoError(t, c.tokens.Save(context.Background(), token, true))

	rec := c.do(http.MethodGet, "/admin/session", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SessionResponse
	decodeData(t, rec, &resp)
	assert.True(t, resp.Authenticated)
	assert.True(t, resp.Remembered)
	assert.True(t, resp.Expired)
}

func TestSession_GetSignedOut(t *testing.T) {
	c := newConsole(t, nil)

	rec := c.do(http.MethodGet, "/admin/session", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SessionResponse
	decodeData(t, rec, &resp)
	assert.False(t, resp.Authenticated)
	assert.Nil(t, resp.Admin)
}

func TestSession_DeleteSignsOut(t *testing.T) {
	c := newConsole(t, nil)
	c.signIn(t)
	c.do(http.MethodGet, "/admin/orders", nil)

	rec := c.do(http.MethodDelete, "/admin/session", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	assert.Empty(t, c.stores.Orders.Snapshot().Items)
	rec = c.do(http.MethodGet, "/admin/orders", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSession_SaveFailure(t *testing.T) {
	sessions := &mockSessions{}
	sessions.On("Save", mock.Anything, mock.Anything, true).Return(errors.New("redis down"))
	c := newConsole(t, sessions)

	token := signedToken(t, jwt.MapClaims{"sub": "admin-1"})
	rec := c.do(http.MethodPost, "/admin/session", CreateSessionRequest{Token: token, Remember: true})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	sessions.AssertExpectations(t)
}

func TestSession_CurrentFailure(t *testing.T) {
	sessions := &mockSessions{}
	sessions.On("Current", mock.Anything).Return("", false, errors.New("redis down"))
	c := newConsole(t, sessions)

	rec := c.do(http.MethodGet, "/admin/session", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	sessions.AssertExpectations(t)
}

func TestSession_ClearFailureKeepsStores(t *testing.T) {
	sessions := &mockSessions{}
	sessions.On("Clear", mock.Anything).Return(errors.New("redis down"))
	c := newConsole(t, sessions)
	c.signIn(t)
	c.do(http.MethodGet, "/admin/orders", nil)

	rec := c.do(http.MethodDelete, "/admin/session", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Len(t, c.stores.Orders.Snapshot().Items, 2)
	sessions.AssertExpectations(t)
}

// --- Middleware ---

func TestCORS_Preflight(t *testing.T) {
	c := newConsole(t, nil)
	req := httptest.NewRequest(http.MethodOptions, "/admin/orders", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}
