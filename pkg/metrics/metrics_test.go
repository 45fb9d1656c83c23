package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 每个测试使用独立Registry，互不影响
func TestNew_IndependentRegistries(t *testing.T) {
	a := New(prometheus.NewRegistry())
	b := New(prometheus.NewRegistry())

	a.OrdersCreatedTotal.WithLabelValues("delivery").Inc()
	a.OrdersCreatedTotal.WithLabelValues("delivery").Inc()

	assert.Equal(t, 2.0, counterValue(t, a.OrdersCreatedTotal.WithLabelValues("delivery")))
	assert.Equal(t, 0.0, counterValue(t, b.OrdersCreatedTotal.WithLabelValues("delivery")))
}

func TestMetrics_GaugeAndHistogram(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.CircuitBreakerState.WithLabelValues("catalog").Set(1)
	m.OrderCreationDuration.Observe(0.2)
	m.OrderCreationDuration.Observe(0.4)

	var gauge dto.Metric
	require.NoError(t, m.CircuitBreakerState.WithLabelValues("catalog").Write(&gauge))
	assert.Equal(t, 1.0, gauge.GetGauge().GetValue())

	var hist dto.Metric
	require.NoError(t, m.OrderCreationDuration.Write(&hist))
	assert.Equal(t, uint64(2), hist.GetHistogram().GetSampleCount())
}

func TestMetrics_Handler(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.StatusTransitionsTotal.WithLabelValues("pending", "confirmed").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `order_status_transitions_total{from="pending",to="confirmed"} 1`))
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}
