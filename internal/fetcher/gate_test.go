package fetcher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateAcquireRelease(t *testing.T) {
	t.Parallel()

	var last [2]int64
	gate := NewGate(2, func(current, peak int64) { last = [2]int64{current, peak} })
	assert.Equal(t, 2, gate.Capacity())

	require.NoError(t, gate.Acquire(context.Background()))
	require.NoError(t, gate.Acquire(context.Background()))
	assert.Equal(t, int64(2), gate.InFlight())
	assert.Equal(t, [2]int64{2, 2}, last)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.Error(t, gate.Acquire(ctx), "third holder must wait for a slot")

	gate.Release()
	assert.Equal(t, [2]int64{1, 2}, last)
	require.NoError(t, gate.Acquire(context.Background()))
	gate.Release()
	gate.Release()
	assert.Zero(t, gate.InFlight())
	assert.Equal(t, int64(2), gate.Peak())
}

func TestGateNonPositiveCapacity(t *testing.T) {
	t.Parallel()

	gate := NewGate(0, nil)
	assert.Equal(t, 1, gate.Capacity())
}
