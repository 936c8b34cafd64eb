package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/embed-provider-sync/internal/progress"
)

// PrometheusSink turns progress events into run-level collectors.
type PrometheusSink struct {
	runsStarted   prometheus.Counter
	runsCompleted *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	listed        prometheus.Gauge
	processed     *prometheus.CounterVec
	completion    prometheus.Gauge
}

// NewPrometheusSink registers the collectors on reg.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		runsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "providersync_runs_started_total",
			Help: "Sync runs started.",
		}),
		runsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "providersync_runs_completed_total",
			Help: "Sync runs finished, by result.",
		}, []string{"result"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "providersync_run_duration_seconds",
			Help:    "Wall time per sync run.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"result"}),
		listed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "providersync_listed_providers",
			Help: "Provider ids found on the listing page in the latest run.",
		}),
		processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "providersync_providers_processed_total",
			Help: "Provider detail pages processed, by result.",
		}, []string{"result"}),
		completion: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "providersync_detail_completion_ratio",
			Help: "Fraction of listed providers whose detail fetch has finished.",
		}),
	}
	for _, c := range []prometheus.Collector{
		s.runsStarted, s.runsCompleted, s.runDuration, s.listed, s.processed, s.completion,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors from batch.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		switch evt.Stage {
		case progress.StageRunStart:
			s.runsStarted.Inc()
			s.completion.Set(0)
		case progress.StageListingDone:
			s.listed.Set(float64(evt.Total))
		case progress.StageProviderDone:
			s.processed.WithLabelValues("updated").Inc()
			s.setCompletion(evt)
		case progress.StageProviderFail:
			s.processed.WithLabelValues("failed").Inc()
			s.setCompletion(evt)
		case progress.StageRunDone:
			s.finish(evt, "success")
		case progress.StageRunError:
			s.finish(evt, "error")
		}
	}
	return nil
}

func (s *PrometheusSink) setCompletion(evt progress.Event) {
	if evt.Total > 0 {
		s.completion.Set(float64(evt.Done) / float64(evt.Total))
	}
}

func (s *PrometheusSink) finish(evt progress.Event, result string) {
	s.runsCompleted.WithLabelValues(result).Inc()
	if evt.Dur > 0 {
		s.runDuration.WithLabelValues(result).Observe(evt.Dur.Seconds())
	}
}

// Close implements progress.Sink.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
