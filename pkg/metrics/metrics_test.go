package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ItemsProcessedTotal.Add(6)
	m.SinkWritesTotal.WithLabelValues("file", "ok").Inc()

	assert.Equal(t, float64(6), testutil.ToFloat64(m.ItemsProcessedTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SinkWritesTotal.WithLabelValues("file", "ok")))
	assert.Panics(t, func() { New(reg) }, "duplicate registration must fail")
}

func TestHandlerServesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.RunsTotal.WithLabelValues("ok").Inc()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `related_runs_total{status="ok"} 1`)
}
