// Package fetcher performs bounded, retried HTTP GETs of directory pages.
package fetcher

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Gate is a FIFO counting semaphore that records its occupancy.
type Gate struct {
	sem      *semaphore.Weighted
	capacity int64
	inFlight atomic.Int64
	peak     atomic.Int64
	observe  func(current, peak int64)
}

// NewGate builds a gate admitting at most capacity holders. observe, when set,
// is called with the occupancy after every change.
func NewGate(capacity int, observe func(current, peak int64)) *Gate {
	if capacity <= 0 {
		capacity = 1
	}
	return &Gate{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: int64(capacity),
		observe:  observe,
	}
}

// Acquire blocks until a slot is free or ctx is done.
func (g *Gate) Acquire(ctx context.Context) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire fetch slot: %w", err)
	}
	current := g.inFlight.Add(1)
	for {
		peak := g.peak.Load()
		if current <= peak || g.peak.CompareAndSwap(peak, current) {
			break
		}
	}
	g.notify(current)
	return nil
}

// Release frees a slot taken by Acquire.
func (g *Gate) Release() {
	current := g.inFlight.Add(-1)
	g.sem.Release(1)
	g.notify(current)
}

// Capacity is the configured ceiling.
func (g *Gate) Capacity() int { return int(g.capacity) }

// InFlight is the number of current holders.
func (g *Gate) InFlight() int64 { return g.inFlight.Load() }

// Peak is the highest number of simultaneous holders seen.
func (g *Gate) Peak() int64 { return g.peak.Load() }

func (g *Gate) notify(current int64) {
	if g.observe != nil {
		g.observe(current, g.peak.Load())
	}
}
