package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sitemanager/core-go/internal/tree"
)

// Metrics exposes application metrics that are safe to scrape via Prometheus.
type Metrics struct {
	registry            *prometheus.Registry
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	treeProcessTotal    *prometheus.CounterVec
	treeProcessDuration prometheus.Histogram
	refreshRunsTotal    *prometheus.CounterVec
	alarmNodes          *prometheus.GaugeVec
}

// New creates a fresh Metrics registry with HTTP, pipeline and refresh metrics registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sitemanager",
		Name:      "http_requests_total",
		Help:      "Count of HTTP requests processed by core-go",
	}, []string{"method", "path", "status"})

	httpRequestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sitemanager",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests served by core-go",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	treeProcessTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sitemanager",
		Name:      "tree_process_total",
		Help:      "Tree pipeline runs by outcome",
	}, []string{"outcome"})

	treeProcessDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "sitemanager",
		Name:      "tree_process_duration_seconds",
		Help:      "Duration of a single tree pipeline run",
		Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
	})

	refreshRunsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sitemanager",
		Name:      "refresh_runs_total",
		Help:      "Snapshot refresh attempts by outcome",
	}, []string{"outcome"})

	alarmNodes := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "sitemanager",
		Name:      "alarm_nodes",
		Help:      "Nodes in the current snapshot carrying each severity",
	}, []string{"severity"})

	registry.MustRegister(
		httpRequests,
		httpRequestDuration,
		treeProcessTotal,
		treeProcessDuration,
		refreshRunsTotal,
		alarmNodes,
	)

	return &Metrics{
		registry:            registry,
		httpRequests:        httpRequests,
		httpRequestDuration: httpRequestDuration,
		treeProcessTotal:    treeProcessTotal,
		treeProcessDuration: treeProcessDuration,
		refreshRunsTotal:    refreshRunsTotal,
		alarmNodes:          alarmNodes,
	}
}

// ObserveHTTPRequest records a single HTTP request/response cycle.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(status),
	}
	m.httpRequests.With(labels).Inc()
	m.httpRequestDuration.With(labels).Observe(duration.Seconds())
}

// ObserveTreeProcess records one pipeline run. It satisfies tree.Observer.
func (m *Metrics) ObserveTreeProcess(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.treeProcessTotal.WithLabelValues(outcome).Inc()
	m.treeProcessDuration.Observe(duration.Seconds())
}

// IncRefreshRun counts a snapshot refresh attempt.
func (m *Metrics) IncRefreshRun(outcome string) {
	if m == nil {
		return
	}
	m.refreshRunsTotal.WithLabelValues(outcome).Inc()
}

// SetAlarmCounts publishes per-severity node counts for the current snapshot.
func (m *Metrics) SetAlarmCounts(c tree.AlarmCounts) {
	if m == nil {
		return
	}
	for _, style := range tree.SeverityStyles() {
		m.alarmNodes.WithLabelValues(strings.ToLower(style.Label)).Set(float64(c.For(style.Level)))
	}
}

// Handler exposes the Prometheus registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("metrics unavailable"))
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
