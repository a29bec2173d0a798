package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestLogging_GeneratesCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	h := RequestLogging(newTestLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/admin/orders/o1", nil))

	id := rec.Header().Get(CorrelationHeader)
	assert.NotEmpty(t, id)

	out := lastLine(t, &buf)
	assert.Equal(t, id, out["correlation_id"])
	assert.Equal(t, float64(http.StatusNoContent), out["status"])
	assert.Equal(t, "INFO", out["level"])
}

func TestRequestLogging_KeepsIncomingCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	h := RequestLogging(newTestLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
	req.Header.Set(CorrelationHeader, "from-browser")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "from-browser", rec.Header().Get(CorrelationHeader))
	assert.Equal(t, "from-browser", lastLine(t, &buf)["correlation_id"])
}

func TestRequestLogging_LevelFollowsStatus(t *testing.T) {
	cases := map[int]string{
		http.StatusOK:                  "INFO",
		http.StatusUnauthorized:        "WARN",
		http.StatusBadGateway:          "ERROR",
		http.StatusInternalServerError: "ERROR",
	}
	for status, level := range cases {
		var buf bytes.Buffer
		h := RequestLogging(newTestLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, level, lastLine(t, &buf)["level"], "status %d", status)
	}
}
