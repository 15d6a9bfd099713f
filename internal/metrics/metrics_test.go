package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sitemanager/core-go/internal/tree"
)

func TestHandler_nilMetrics(t *testing.T) {
	var m *Metrics
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	m.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	if got := rr.Body.String(); !strings.Contains(got, "metrics unavailable") {
		t.Fatalf("expected body to mention metrics unavailable, got %q", got)
	}

	// Recording on a nil receiver is a no-op.
	m.ObserveTreeProcess(tree.OutcomeOK, time.Millisecond)
	m.IncRefreshRun("ok")
	m.SetAlarmCounts(tree.AlarmCounts{Critical: 1})
}

func TestHandler_exposesRegisteredMetrics(t *testing.T) {
	m := New()
	m.ObserveHTTPRequest(http.MethodGet, "/readyz", http.StatusOK, 12*time.Millisecond)
	m.ObserveTreeProcess(tree.OutcomeOK, 2*time.Millisecond)
	m.ObserveTreeProcess(tree.OutcomeError, time.Millisecond)
	m.IncRefreshRun("ok")
	m.SetAlarmCounts(tree.CountAlarms(tree.DefaultTree()))

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	m.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	body := rr.Body.String()
	for _, want := range []string{
		"sitemanager_http_requests_total{method=\"GET\",path=\"/readyz\",status=\"200\"} 1",
		"sitemanager_tree_process_total{outcome=\"ok\"} 1",
		"sitemanager_tree_process_total{outcome=\"error\"} 1",
		"sitemanager_tree_process_duration_seconds_count 2",
		"sitemanager_refresh_runs_total{outcome=\"ok\"} 1",
		"sitemanager_alarm_nodes{severity=\"critical\"} 4",
		"sitemanager_alarm_nodes{severity=\"info\"} 0",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in metrics output; body=%s", want, body)
		}
	}
}
