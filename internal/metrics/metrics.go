// Package metrics exposes Prometheus collectors for a sync run and ships them
// once the batch finishes.
package metrics

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Metrics owns the fetch-level collectors. A nil *Metrics is a valid no-op.
type Metrics struct {
	registry *prometheus.Registry

	fetchAttempts *prometheus.CounterVec
	fetchResults  *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	fetchBytes    *prometheus.CounterVec
	gateInFlight  prometheus.Gauge
	gatePeak      prometheus.Gauge
	providers     prometheus.Gauge
	lastSuccess   prometheus.Gauge
}

// New registers the collectors on a fresh registry.
func New() (*Metrics, error) {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		fetchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "providersync_fetch_attempts_total",
			Help: "HTTP attempts partitioned by site and outcome.",
		}, []string{"site", "outcome"}),
		fetchResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "providersync_fetch_results_total",
			Help: "Final per-URL fetch results after retries.",
		}, []string{"site", "result"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "providersync_fetch_duration_seconds",
			Help:    "Duration of single HTTP attempts.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
		}, []string{"site"}),
		fetchBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "providersync_fetch_bytes_total",
			Help: "Bytes downloaded per site.",
		}, []string{"site"}),
		gateInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "providersync_gate_in_flight",
			Help: "Fetches currently holding a gate slot.",
		}),
		gatePeak: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "providersync_gate_peak_in_flight",
			Help: "Highest number of simultaneous fetches observed.",
		}),
		providers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "providersync_providers",
			Help: "Providers held in the store after the run.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "providersync_last_success_timestamp_seconds",
			Help: "Unix time of the last run that saved the store.",
		}),
	}
	for _, c := range []prometheus.Collector{
		m.fetchAttempts,
		m.fetchResults,
		m.fetchDuration,
		m.fetchBytes,
		m.gateInFlight,
		m.gatePeak,
		m.providers,
		m.lastSuccess,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	return m, nil
}

// Registry exposes the underlying registry so other components can register on it.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// SanitizeSite extracts a lowercase hostname from a URL, or "unknown".
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// ObserveAttempt records one HTTP attempt.
func (m *Metrics) ObserveAttempt(rawURL string, err error, size int, d time.Duration) {
	if m == nil {
		return
	}
	site := SanitizeSite(rawURL)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.fetchAttempts.WithLabelValues(site, outcome).Inc()
	m.fetchDuration.WithLabelValues(site).Observe(d.Seconds())
	if size > 0 {
		m.fetchBytes.WithLabelValues(site).Add(float64(size))
	}
}

// ObserveResult records the final outcome of a URL after retries.
func (m *Metrics) ObserveResult(rawURL string, ok bool) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "exhausted"
	}
	m.fetchResults.WithLabelValues(SanitizeSite(rawURL), result).Inc()
}

// SetInFlight mirrors the gate occupancy.
func (m *Metrics) SetInFlight(current, peak int64) {
	if m == nil {
		return
	}
	m.gateInFlight.Set(float64(current))
	m.gatePeak.Set(float64(peak))
}

// SetProviders records the size of the saved store.
func (m *Metrics) SetProviders(n int) {
	if m == nil {
		return
	}
	m.providers.Set(float64(n))
}

// MarkSuccess stamps the last successful save.
func (m *Metrics) MarkSuccess(at time.Time) {
	if m == nil {
		return
	}
	m.lastSuccess.Set(float64(at.Unix()))
}

// WriteTextfile writes the registry in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// Push sends the registry to a Pushgateway under job.
func (m *Metrics) Push(gatewayURL, job string) error {
	if m == nil || gatewayURL == "" {
		return nil
	}
	if err := push.New(gatewayURL, job).Gatherer(m.registry).Push(); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
