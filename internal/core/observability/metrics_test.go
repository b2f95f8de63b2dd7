package observability

import (
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInit_IdempotentOnSameRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Init(reg); err != nil {
		t.Fatalf("first Init: %v", err)
	}
	if err := Init(reg); err != nil {
		t.Fatalf("second Init: %v", err)
	}
}

func TestCounters_Labels(t *testing.T) {
	before := testutil.ToFloat64(layersAdded.WithLabelValues("USGS/WBD/2017/HUC02"))
	IncLayerAdded("USGS/WBD/2017/HUC02")
	if got := testutil.ToFloat64(layersAdded.WithLabelValues("USGS/WBD/2017/HUC02")); got != before+1 {
		t.Fatalf("layers_added=%v want %v", got, before+1)
	}

	fails := testutil.ToFloat64(authAttempts.WithLabelValues("initialize", "error"))
	IncAuthAttempt("initialize", errors.New("boom"))
	if got := testutil.ToFloat64(authAttempts.WithLabelValues("initialize", "error")); got != fails+1 {
		t.Fatalf("auth error attempts=%v want %v", got, fails+1)
	}
}

func TestExposition_ViaRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Init(reg); err != nil {
		t.Fatalf("Init: %v", err)
	}
	ObserveUpstream("get_feature", nil, 0.02)
	ObserveHTTP("GET", "/api/map", 200)

	expected := `
# HELP http_requests_total Total number of HTTP requests served by the interactive backend.
# TYPE http_requests_total counter
http_requests_total{method="GET",route="/api/map",status="200"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "http_requests_total"); err != nil {
		t.Fatalf("unexpected exposition: %v", err)
	}
	if n, _ := testutil.GatherAndCount(reg, "upstream_request_duration_seconds"); n == 0 {
		t.Fatal("missing upstream_request_duration_seconds")
	}
}
