// Package memgov implements the MemoryGovernor (spec §4.5): a background
// heap sampler that the IndexGenerator consults to size its fetch batches,
// and that also exposes a should-spill signal (the generator itself spills
// every processed partition without consulting it), following the
// teacher's runtime.MemStats-driven stat sampling (see
// fenghaojiang-erigon-lib/state/aggregator_v3.go's "[Snapshots] History
// Stat" logging for the pattern this generalizes).
package memgov

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/fredrikaaa/chronoidx/internal/mathutil"
	"github.com/fredrikaaa/chronoidx/internal/xlog"
)

const (
	// MinBatchSize and MaxBatchSize bound recommended_batch_size (spec §4.5).
	MinBatchSize = 1000
	MaxBatchSize = 100000

	defaultStartBatchSize = 10000
)

// Governor samples heap usage on an interval and exposes
// RecommendedBatchSize and ShouldSpill to callers without blocking on a
// lock, per spec §4.5/§5 ("lock-free").
type Governor struct {
	log            xlog.Logger
	thresholdRatio float64 // T in spec §4.5, default 0.75
	limitBytes     uint64  // configured memory ceiling

	heapAlloc   atomic.Uint64
	batchSize   atomic.Uint64
	spillSignal atomic.Bool

	cancel context.CancelFunc
	done   chan struct{}
}

// Options configures a Governor.
type Options struct {
	// LimitBytes is the configured memory ceiling (config.MemoryLimit).
	LimitBytes uint64
	// ThresholdRatio is T: the heap/limit ratio above which batch size
	// halves and spilling is recommended. Zero uses the spec default 0.75.
	ThresholdRatio float64
	// SampleInterval controls how often heap stats are refreshed. Zero
	// uses a 500ms default.
	SampleInterval time.Duration
}

// Start launches a Governor with a background sampling goroutine. Callers
// must call Stop to release it.
func Start(ctx context.Context, log xlog.Logger, opts Options) *Governor {
	ratio := opts.ThresholdRatio
	if ratio <= 0 {
		ratio = 0.75
	}
	interval := opts.SampleInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	g := &Governor{log: log, thresholdRatio: ratio, limitBytes: opts.LimitBytes, done: make(chan struct{})}
	g.batchSize.Store(defaultStartBatchSize)

	sampleCtx, cancel := context.WithCancel(ctx)
	g.cancel = cancel
	go g.sampleLoop(sampleCtx, interval)
	return g
}

func (g *Governor) sampleLoop(ctx context.Context, interval time.Duration) {
	defer close(g.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.sampleOnce()
		}
	}
}

func (g *Governor) sampleOnce() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	g.heapAlloc.Store(m.HeapAlloc)

	if g.limitBytes == 0 {
		return
	}
	ratio := float64(m.HeapAlloc) / float64(g.limitBytes)
	cur := g.batchSize.Load()
	switch {
	case ratio >= g.thresholdRatio:
		next := mathutil.Clamp(int(cur/2), MinBatchSize, MaxBatchSize)
		g.batchSize.Store(uint64(next))
		g.spillSignal.Store(true)
	case ratio < g.thresholdRatio/2:
		next := mathutil.Clamp(int(cur*2), MinBatchSize, MaxBatchSize)
		g.batchSize.Store(uint64(next))
		g.spillSignal.Store(false)
	default:
		g.spillSignal.Store(false)
	}
}

// RecommendedBatchSize returns the current batch size recommendation,
// clamped to [MinBatchSize, MaxBatchSize].
func (g *Governor) RecommendedBatchSize() int {
	return int(g.batchSize.Load())
}

// ShouldSpill reports whether the caller should spill its current
// in-memory partition state to a RunFile before continuing.
func (g *Governor) ShouldSpill() bool {
	return g.spillSignal.Load()
}

// HeapAllocBytes returns the last-sampled heap allocation, for metrics.
func (g *Governor) HeapAllocBytes() uint64 {
	return g.heapAlloc.Load()
}

// Stop halts the sampling goroutine and waits for it to exit.
func (g *Governor) Stop() {
	g.cancel()
	<-g.done
}
