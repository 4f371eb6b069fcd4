package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRegisterExposesNamespacedCollectors(t *testing.T) {
	registry := prometheus.NewRegistry()
	Register(registry)

	HTTPRequests.WithLabelValues("GET", "/api/market/tickers", "OK").Inc()
	HTTPDuration.WithLabelValues("GET", "/api/market/tickers", "OK").Observe(0.01)

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	seen := map[string]bool{}
	for _, f := range families {
		seen[f.GetName()] = true
	}
	for _, name := range []string{"coinhub_http_requests_total", "coinhub_http_request_duration_seconds"} {
		if !seen[name] {
			t.Fatalf("expected metric %s registered, got %v", name, seen)
		}
	}
}
