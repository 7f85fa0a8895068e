package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"callbridge/internal/httpapi"
	"callbridge/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func TestRegisterRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	registerRoutes(r, routeDeps{api: httpapi.Handlers{}, metrics: http.NotFoundHandler()})

	want := map[string]bool{
		"GET /":                      true,
		"GET /healthz":               true,
		"GET /metrics":               true,
		"GET /prefetch_data_webhook": true,
		"POST /session_data_webhook": true,
		"POST /api_input":            true,
		"POST /check_business_hours": true,
	}
	for _, ri := range r.Routes() {
		delete(want, ri.Method+" "+ri.Path)
	}
	if len(want) != 0 {
		t.Fatalf("routes not registered: %v", want)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	m.CallOutcome("talked")

	r := gin.New()
	registerRoutes(r, routeDeps{metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `callbridge_calls_total{outcome="talked"} 1`) {
		t.Fatalf("expected call outcome metric in exposition, got:\n%s", w.Body.String())
	}
}
