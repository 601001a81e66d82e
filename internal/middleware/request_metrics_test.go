package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/2beens/pagebox/internal/telemetry/metrics"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestMetrics(t *testing.T) {
	metricsManager, registry := metrics.NewTestManagerAndRegistry()

	router := mux.NewRouter()
	router.HandleFunc("/api/pages/{path}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods("GET")
	router.Use(RequestMetrics(metricsManager))

	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest("GET", "/api/pages/home", nil))
		require.Equal(t, http.StatusOK, rr.Code)
	}

	assert.Equal(t, float64(3), testutil.ToFloat64(
		metricsManager.CounterRequests.WithLabelValues("GET", "200"),
	))

	count, err := testutil.GatherAndCount(registry, "backend_test_server_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// the duration histogram is labeled with the route template, not the raw path
	families, err := registry.Gather()
	require.NoError(t, err)
	var routeLabel string
	for _, family := range families {
		if family.GetName() != "backend_test_server_request_duration_seconds" {
			continue
		}
		require.Len(t, family.GetMetric(), 1)
		for _, label := range family.GetMetric()[0].GetLabel() {
			if label.GetName() == "route" {
				routeLabel = label.GetValue()
			}
		}
	}
	assert.Equal(t, "/api/pages/{path}", routeLabel)
}
