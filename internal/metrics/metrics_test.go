package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.Redirect("found")
	m.Redirect("found")
	m.Redirect("not_found")
	m.ClickRecorded("ok")
	m.CodeCollision()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.redirects.WithLabelValues("found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.redirects.WithLabelValues("not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.clicksRecorded.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.codeCollisions))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.Redirect("found")
		m.ObserveRequest("GET", "/:code", 302, time.Millisecond)
		m.ClickDispatched("queued")
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveRequest("GET", "/:code", http.StatusFound, 3*time.Millisecond)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `shortlink_http_requests_total{code="302",method="GET",route="/:code"} 1`)
}
