package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/embed-provider-sync/internal/progress"
)

func TestPrometheusSinkRecordsRun(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	run := progress.UUIDToBytes(uuid.New())
	now := time.Now()
	batch := []progress.Event{
		{RunID: run, TS: now, Stage: progress.StageRunStart},
		{RunID: run, TS: now, Stage: progress.StageListingDone, Total: 4},
		{RunID: run, TS: now, Stage: progress.StageProviderDone, ProviderID: "a", Done: 1, Total: 4},
		{RunID: run, TS: now, Stage: progress.StageProviderFail, ProviderID: "b", Done: 2, Total: 4},
		{RunID: run, TS: now, Stage: progress.StageRunDone, Dur: 3 * time.Second},
	}
	require.NoError(t, sink.Consume(context.Background(), batch))

	assert.InDelta(t, 1.0, testutil.ToFloat64(sink.runsStarted), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(sink.runsCompleted.WithLabelValues("success")), 1e-9)
	assert.InDelta(t, 0.0, testutil.ToFloat64(sink.runsCompleted.WithLabelValues("error")), 1e-9)
	assert.InDelta(t, 4.0, testutil.ToFloat64(sink.listed), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(sink.processed.WithLabelValues("updated")), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(sink.processed.WithLabelValues("failed")), 1e-9)
	assert.InDelta(t, 0.5, testutil.ToFloat64(sink.completion), 1e-9)
	assert.Equal(t, 1, testutil.CollectAndCount(sink.runDuration, "providersync_run_duration_seconds"))
}

func TestPrometheusSinkDoubleRegisterFails(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := NewPrometheusSink(reg)
	require.NoError(t, err)
	_, err = NewPrometheusSink(reg)
	require.Error(t, err)
}
