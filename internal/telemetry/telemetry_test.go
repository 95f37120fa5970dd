package telemetry

import (
	"net/http/httptest"
	"strings"
	"testing"

	"logforwarder/internal/forwarder"
	"logforwarder/internal/sinks"
)

func TestMetrics_ObserveAndScrape(t *testing.T) {
	m := New()
	m.Observe(forwarder.DrainStats{
		Scanned: 5,
		Sent:    map[sinks.Kind]int{sinks.KindResult: 3},
		Dropped: 1,
	})

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	for _, want := range []string{
		"logforwarder_backlog_depth 5",
		`logforwarder_batches_sent_total{kind="result"} 1`,
		`logforwarder_lines_sent_total{kind="result"} 3`,
		"logforwarder_lines_dropped_total 1",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected metrics output to contain %q, got:\n%s", want, body)
		}
	}
}

func TestMetrics_ObserveDuration(t *testing.T) {
	m := New()
	stats := m.ObserveDuration(func() forwarder.DrainStats {
		return forwarder.DrainStats{Scanned: 2}
	})
	if stats.Scanned != 2 {
		t.Fatalf("ObserveDuration did not return inner result: %+v", stats)
	}

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)
	if !strings.Contains(rec.Body.String(), "logforwarder_drain_duration_seconds") {
		t.Fatalf("expected drain duration histogram in output")
	}
}
