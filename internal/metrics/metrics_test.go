package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://example.com/path", "example.com"},
		{"standard https", "https://Embed.ly/provider/x", "embed.ly"},
		{"no scheme", "example.com/path", "example.com"},
		{"host with port", "example.com:8080", "example.com"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeSite(tc.input); got != tc.expected {
				t.Errorf("SanitizeSite(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestObserveCollectors(t *testing.T) {
	t.Parallel()

	m, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	m.ObserveAttempt("https://embed.ly/providers", nil, 512, 10*time.Millisecond)
	m.ObserveAttempt("https://embed.ly/providers", errors.New("boom"), 0, time.Millisecond)
	m.ObserveResult("https://embed.ly/providers", true)
	m.ObserveResult("https://embed.ly/provider/x", false)
	m.SetInFlight(3, 7)
	m.SetProviders(42)

	if got := testutil.ToFloat64(m.fetchAttempts.WithLabelValues("embed.ly", "ok")); got != 1 {
		t.Fatalf("expected 1 ok attempt, got %v", got)
	}
	if got := testutil.ToFloat64(m.fetchAttempts.WithLabelValues("embed.ly", "error")); got != 1 {
		t.Fatalf("expected 1 failed attempt, got %v", got)
	}
	if got := testutil.ToFloat64(m.fetchBytes.WithLabelValues("embed.ly")); got != 512 {
		t.Fatalf("expected 512 bytes, got %v", got)
	}
	if got := testutil.ToFloat64(m.fetchResults.WithLabelValues("embed.ly", "exhausted")); got != 1 {
		t.Fatalf("expected 1 exhausted result, got %v", got)
	}
	if got := testutil.ToFloat64(m.gatePeak); got != 7 {
		t.Fatalf("expected peak 7, got %v", got)
	}
	if got := testutil.ToFloat64(m.providers); got != 42 {
		t.Fatalf("expected 42 providers, got %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.ObserveAttempt("x", nil, 1, time.Second)
	m.ObserveResult("x", true)
	m.SetInFlight(1, 1)
	m.SetProviders(1)
	m.MarkSuccess(time.Now())
	if err := m.WriteTextfile("ignored"); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if err := m.Push("http://ignored", "job"); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if m.Registry() != nil {
		t.Fatal("expected nil registry")
	}
}

func TestWriteTextfile(t *testing.T) {
	t.Parallel()

	m, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	m.SetProviders(5)
	path := filepath.Join(t.TempDir(), "providersync.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}
	data, err := os.ReadFile(path) // #nosec G304 -- test reads from the controlled temp directory.
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(data), "providersync_providers 5") {
		t.Fatalf("expected providers gauge in textfile, got:\n%s", data)
	}
}

func TestPush(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/metrics/job/providersync") {
			hits.Add(1)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := m.Push(srv.URL, "providersync"); err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected one push, got %d", hits.Load())
	}
}
