package resource

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/ecommerce-admin/internal/auth"
	"github.com/utafrali/ecommerce-admin/internal/domain"
	"github.com/utafrali/ecommerce-admin/internal/notify"
	apperrors "github.com/utafrali/ecommerce-admin/pkg/errors"
	"github.com/utafrali/ecommerce-admin/pkg/httpclient"
	"github.com/utafrali/ecommerce-admin/pkg/pagination"
)

// backend is a fake storefront API that counts the requests it receives.
type backend struct {
	server *httptest.Server
	hits   atomic.Int32
}

func newBackend(t *testing.T, handler http.HandlerFunc) *backend {
	t.Helper()
	b := &backend{}
	b.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(b.server.Close)
	return b
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

type toastRecorder struct {
	mu     sync.Mutex
	toasts []notify.Toast
}

func (r *toastRecorder) Notify(_ context.Context, kind notify.Kind, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, notify.Toast{Kind: kind, Message: message})
}

func (r *toastRecorder) all() []notify.Toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Toast(nil), r.toasts...)
}

type harness struct {
	backend *backend
	tokens  *auth.TokenStore
	toasts  *toastRecorder
	deps    Deps
}

// newHarness wires stores against a fake backend with an admin signed in.
func newHarness(t *testing.T, handler http.HandlerFunc) *harness {
	t.Helper()
	b := newBackend(t, handler)

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	api, err := httpclient.NewAPI(b.server.URL+"/api", httpclient.New(httpclient.DefaultConfig()), logger)
	require.NoError(t, err)

	tokens := auth.NewTokenStore(auth.NewMemoryStorage(), auth.NewMemoryStorage(), time.Hour)
	require.NoError(t, tokens.Save(context.Background(), "admin-token", true))

	toasts := &toastRecorder{}
	return &harness{
		backend: b,
		tokens:  tokens,
		toasts:  toasts,
		deps: Deps{
			API:      api,
			Auth:     auth.NewGate(tokens),
			Notifier: toasts,
			Logger:   logger,
		},
	}
}

func ids[T interface{ RecordID() string }](items []T) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.RecordID())
	}
	return out
}

func TestFetch_PendingOrders(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/orders/pending", r.URL.Path)
		assert.Equal(t, "Bearer admin-token", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, `{"success": true, "data": [{"_id":"o1", "orderNumber":"PUF-1001", "paymentStatus":"Pending", "status":"Pending", "total": 599}]}`)
	})
	store := NewPendingOrderStore(h.deps)

	st := store.Fetch(context.Background(), store.DefaultParams())
	assert.Equal(t, PhaseReady, st.Phase)
	assert.False(t, st.Loading)
	require.Len(t, st.Items, 1)
	assert.Equal(t, "PUF-1001", st.Items[0].OrderNumber)
	assert.Equal(t, 599.0, st.Items[0].Total)
	require.NotNil(t, st.Pagination)
	assert.Equal(t, 1, st.Pagination.TotalItems)
	assert.Empty(t, st.Error)
}

func TestFetch_SendsListParams(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "25", q.Get("limit"))
		assert.Equal(t, "Shipped", q.Get("status"))
		assert.Equal(t, "PUF", q.Get("search"))
		assert.Equal(t, "total", q.Get("sortBy"))
		assert.Equal(t, "asc", q.Get("sortOrder"))
		writeJSON(w, http.StatusOK, `{"success":true,"data":{"orders":[],"pagination":{"currentPage":2,"totalPages":2,"totalItems":30,"itemsPerPage":25}}}`)
	})
	store := NewOrderStore(h.deps)

	params := pagination.Params{Page: 2, Limit: 25, Status: "Shipped", Search: "PUF", SortBy: "total", SortOrder: "asc"}
	st := store.Fetch(context.Background(), params)
	assert.Equal(t, params, st.Params)
	assert.Equal(t, &pagination.Pagination{CurrentPage: 2, TotalPages: 2, TotalItems: 30, ItemsPerPage: 25}, st.Pagination)
	assert.Equal(t, []domain.Order{}, st.Items)
}

func TestFetch_OrderStatistics(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"success":true,"data":{"orders":[{"_id":"o1"}],"statistics":{"totalOrders":7,"pendingOrders":2,"totalRevenue":1234.5}}}`)
	})
	store := NewOrderStore(h.deps)

	_, ok := store.Statistics()
	assert.False(t, ok)

	store.Fetch(context.Background(), store.DefaultParams())
	stats, ok := store.Statistics()
	require.True(t, ok)
	assert.Equal(t, 7, stats.TotalOrders)
	assert.Equal(t, 2, stats.PendingOrders)
	assert.Equal(t, 1234.5, stats.TotalRevenue)
}

func TestFetch_NoTokenMakesNoRequest(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("backend must not be called without a token")
	})
	require.NoError(t, h.tokens.Clear(context.Background()))

	stores := []func() (string, bool){
		func() (string, bool) {
			st := NewOrderStore(h.deps).Fetch(context.Background(), pagination.DefaultParams())
			return st.Error, st.AuthRequired
		},
		func() (string, bool) {
			st := NewPendingOrderStore(h.deps).Fetch(context.Background(), pagination.DefaultParams())
			return st.Error, st.AuthRequired
		},
		func() (string, bool) {
			st := NewNotificationStore(h.deps).Fetch(context.Background(), pagination.DefaultParams())
			return st.Error, st.AuthRequired
		},
		func() (string, bool) {
			st := NewBannerStore(h.deps).Fetch(context.Background(), pagination.DefaultParams())
			return st.Error, st.AuthRequired
		},
	}
	for _, fetch := range stores {
		msg, authRequired := fetch()
		assert.Equal(t, "Authentication required", msg)
		assert.True(t, authRequired)
	}
	assert.Equal(t, int32(0), h.backend.hits.Load())
}

func TestFetch_AuthRequiredCounted(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {})
	require.NoError(t, h.tokens.Clear(context.Background()))

	before := testutil.ToFloat64(fetchesTotal.WithLabelValues("banners", outcomeAuthRequired))
	st := NewBannerStore(h.deps).Fetch(context.Background(), pagination.DefaultParams())
	assert.Equal(t, PhaseErrored, st.Phase)
	assert.Equal(t, before+1, testutil.ToFloat64(fetchesTotal.WithLabelValues("banners", outcomeAuthRequired)))
}

func TestFetch_ServerErrorKeepsItems(t *testing.T) {
	var failing atomic.Bool
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			writeJSON(w, http.StatusInternalServerError, `{"message":"Internal error"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"success":true,"data":[{"_id":"o1"},{"_id":"o2"}]}`)
	})
	store := NewOrderStore(h.deps)

	before := store.Fetch(context.Background(), store.DefaultParams())
	require.Equal(t, PhaseReady, before.Phase)

	failing.Store(true)
	st := store.Refetch(context.Background())
	assert.Equal(t, PhaseErrored, st.Phase)
	assert.Equal(t, "Internal error", st.Error)
	assert.False(t, st.Loading)
	assert.False(t, st.AuthRequired)
	assert.Equal(t, before.Items, st.Items)
	assert.Equal(t, before.Pagination, st.Pagination)
}

func TestFetch_FirstLoadFailureStaysEmpty(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, `{"message":"Internal error"}`)
	})
	st := NewOrderStore(h.deps).Fetch(context.Background(), pagination.DefaultParams())
	assert.Equal(t, []domain.Order{}, st.Items)
	assert.Nil(t, st.Pagination)
	assert.Equal(t, "Internal error", st.Error)
}

func TestFetch_TransportErrorIsGeneric(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {})
	h.backend.server.Close()

	st := NewNotificationStore(h.deps).Fetch(context.Background(), pagination.DefaultParams())
	assert.Equal(t, PhaseErrored, st.Phase)
	assert.Equal(t, "Failed to fetch notifications", st.Error)
	assert.False(t, st.AuthRequired)
}

func TestFetch_ShapeMismatchEmptiesItemsKeepsPagination(t *testing.T) {
	var broken atomic.Bool
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		if broken.Load() {
			writeJSON(w, http.StatusOK, `{"success":true,"data":{"products":[]}}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"orders":[{"_id":"o1"}],"pagination":{"currentPage":1,"totalPages":4,"totalItems":31,"itemsPerPage":10}}`)
	})
	store := NewOrderStore(h.deps)

	good := store.Fetch(context.Background(), store.DefaultParams())
	require.Len(t, good.Items, 1)

	broken.Store(true)
	st := store.Refetch(context.Background())
	assert.Equal(t, PhaseErrored, st.Phase)
	assert.Equal(t, "Failed to fetch orders", st.Error)
	assert.Empty(t, st.Items)
	assert.Equal(t, good.Pagination, st.Pagination)
}

func TestFetch_SuccessFalseSurfacesMessage(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"success":false,"message":"Not authorized as an admin"}`)
	})
	st := NewOrderStore(h.deps).Fetch(context.Background(), pagination.DefaultParams())
	assert.Equal(t, "Not authorized as an admin", st.Error)
}

func TestFetch_StaleResponseDiscarded(t *testing.T) {
	firstArrived := make(chan struct{})
	releaseFirst := make(chan struct{})

	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("status") == "Pending" {
			close(firstArrived)
			<-releaseFirst
			writeJSON(w, http.StatusOK, `{"success":true,"data":[{"_id":"stale","status":"Pending"}]}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"success":true,"data":[{"_id":"fresh","status":"Shipped"}]}`)
	})
	store := NewOrderStore(h.deps)

	first := pagination.DefaultParams()
	first.Status = "Pending"
	second := pagination.DefaultParams()
	second.Status = "Shipped"

	done := make(chan State[domain.Order])
	go func() { done <- store.Fetch(context.Background(), first) }()
	<-firstArrived

	st := store.Fetch(context.Background(), second)
	assert.Equal(t, []string{"fresh"}, ids(st.Items))

	close(releaseFirst)
	<-done

	final := store.Snapshot()
	assert.Equal(t, []string{"fresh"}, ids(final.Items))
	assert.Equal(t, "Shipped", final.Params.Status)
	assert.Equal(t, PhaseReady, final.Phase)
	assert.False(t, final.Loading)
}

func TestFetch_LoadingWhileInFlight(t *testing.T) {
	arrived := make(chan struct{})
	release := make(chan struct{})
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		close(arrived)
		<-release
		writeJSON(w, http.StatusOK, `[]`)
	})
	store := NewBannerStore(h.deps)

	done := make(chan struct{})
	go func() {
		store.Fetch(context.Background(), store.DefaultParams())
		close(done)
	}()
	<-arrived

	st := store.Snapshot()
	assert.Equal(t, PhaseLoading, st.Phase)
	assert.True(t, st.Loading)

	close(release)
	<-done
	assert.False(t, store.Snapshot().Loading)
}

func TestRefetch_UsesHeldParams(t *testing.T) {
	var pages []string
	var mu sync.Mutex
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		pages = append(pages, r.URL.Query().Get("page"))
		mu.Unlock()
		writeJSON(w, http.StatusOK, `[]`)
	})
	store := NewOrderStore(h.deps)

	params := store.DefaultParams()
	params.Page = 3
	store.Fetch(context.Background(), params)
	store.Refetch(context.Background())

	assert.Equal(t, []string{"3", "3"}, pages)
}

func TestReset_DiscardsStateAndInFlightFetch(t *testing.T) {
	arrived := make(chan struct{})
	release := make(chan struct{})
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		close(arrived)
		<-release
		writeJSON(w, http.StatusOK, `[{"_id":"o1"}]`)
	})
	store := NewOrderStore(h.deps)

	done := make(chan struct{})
	go func() {
		store.Fetch(context.Background(), store.DefaultParams())
		close(done)
	}()
	<-arrived
	store.Reset()
	close(release)
	<-done

	st := store.Snapshot()
	assert.Equal(t, PhaseIdle, st.Phase)
	assert.Empty(t, st.Items)
	assert.Equal(t, pagination.DefaultParams(), st.Params)
}

func TestSnapshot_IsIsolated(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"data":[{"_id":"o1","status":"Pending"}],"statistics":{"totalOrders":1}}`)
	})
	store := NewOrderStore(h.deps)
	store.Fetch(context.Background(), store.DefaultParams())

	snap := store.Snapshot()
	snap.Items[0].Status = "Cancelled"
	snap.Pagination.TotalItems = 99
	snap.Statistics[0] = 'x'

	again := store.Snapshot()
	assert.Equal(t, "Pending", again.Items[0].Status)
	assert.Equal(t, 1, again.Pagination.TotalItems)
	assert.True(t, json.Valid(again.Statistics))
}

// Every page of a paginated listing satisfies the page-size relation: full
// pages hold exactly itemsPerPage records, the last page at most that many.
func TestFetch_PaginationProperty(t *testing.T) {
	for _, total := range []int{0, 1, 9, 10, 11, 37, 100} {
		for _, limit := range []int{1, 7, 10, 25} {
			h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
				params := pagination.FromValues(r.URL.Query(), pagination.DefaultParams())
				start := (params.Page - 1) * params.Limit
				end := start + params.Limit
				if end > total {
					end = total
				}
				items := []domain.Order{}
				for i := start; i < end; i++ {
					items = append(items, domain.Order{ID: "o" + strconv.Itoa(i)})
				}
				body, _ := json.Marshal(map[string]any{
					"success": true,
					"data": map[string]any{
						"orders":     items,
						"pagination": pagination.New(total, params),
					},
				})
				writeJSON(w, http.StatusOK, string(body))
			})
			store := NewOrderStore(h.deps)

			params := store.DefaultParams()
			params.Limit = limit
			st := store.Fetch(context.Background(), params)
			require.NotNil(t, st.Pagination)

			for page := 1; page <= st.Pagination.TotalPages; page++ {
				params.Page = page
				st = store.Fetch(context.Background(), params)
				p := st.Pagination
				assert.Equal(t, page < p.TotalPages, st.HasNext, "total=%d limit=%d page=%d", total, limit, page)
				assert.Equal(t, page > 1, st.HasPrev, "total=%d limit=%d page=%d", total, limit, page)
				if p.CurrentPage == p.TotalPages {
					assert.GreaterOrEqual(t, p.CurrentPage*p.ItemsPerPage, len(st.Items), "total=%d limit=%d page=%d", total, limit, page)
				} else {
					assert.Equal(t, p.ItemsPerPage, len(st.Items), "total=%d limit=%d page=%d", total, limit, page)
				}
			}
		}
	}
}

func TestMutate_AuthRequiredSkipsNetwork(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("backend must not be called without a token")
	})
	require.NoError(t, h.tokens.Clear(context.Background()))

	err := NewOrderStore(h.deps).Delete(context.Background(), "o1")
	assert.ErrorIs(t, err, apperrors.ErrAuthRequired)
	assert.Equal(t, []notify.Toast{{Kind: notify.KindError, Message: "Authentication required"}}, h.toasts.all())
	assert.Equal(t, int32(0), h.backend.hits.Load())
}
