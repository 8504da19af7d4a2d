package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.CardCreated("chat")
	m.CardCreated("chat")
	m.CardCreated("manual")
	m.LLMRequest("ok")
	m.ChatIntent("due_soon")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.cardsCreated.WithLabelValues("chat")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cardsCreated.WithLabelValues("manual")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.llmRequests.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.chatIntents.WithLabelValues("due_soon")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.CardCreated("chat")
		m.LLMRequest("ok")
		m.ChatIntent("chat")
	})

	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestHandlerAndMiddleware(t *testing.T) {
	m := New()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/cards/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.Handle("GET /metrics", m.Handler())
	srv := httptest.NewServer(m.Middleware(mux))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/cards/abc")
	require.NoError(t, err)
	resp.Body.Close()
	m.CardCreated("manual")

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, `workboard_cards_created_total{source="manual"} 1`)
	assert.True(t, strings.Contains(text, `path="GET /api/cards/{id}"`), "pattern label missing:\n%s", text)
	assert.Contains(t, text, `status="404"`)
}
