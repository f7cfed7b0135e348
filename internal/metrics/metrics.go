// Package metrics implements the Metrics component (spec §4, component
// 10): a JSON event log of batch_complete / indexing_metrics events with
// sampling, plus Prometheus counters/gauges as additive observability
// (the JSON log remains the spec-required artifact).
package metrics

import (
	"encoding/json"
	"io"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/fredrikaaa/chronoidx/internal/xlog"
)

// Event is one line of the JSON event log.
type Event struct {
	RunID     string                 `json:"run_id"`
	Type      string                 `json:"type"`
	IndexType string                 `json:"index_type"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Collector is a Metrics instance scoped to one index build; it is
// constructed explicitly (no package-level singleton, per DESIGN NOTES)
// and carries its own run id so concurrent or sequential builds of the
// same index type are distinguishable in the log.
type Collector struct {
	runID     string
	indexType string
	sampleN   uint64 // emit every Nth batch_complete event; 1 = no sampling
	log       xlog.Logger

	mu  sync.Mutex
	enc *json.Encoder

	batchCount atomic.Uint64

	rowsFetched      prometheus.Counter
	positionsEmitted prometheus.Counter
	spillFiles       prometheus.Counter
	mergeDuration    prometheus.Histogram
}

// Options configures a Collector.
type Options struct {
	// SampleEvery emits one batch_complete JSON event for every N
	// completed batches. Zero or one means every batch is logged.
	SampleEvery uint64
	// Registerer is the Prometheus registry to register counters against.
	// Defaults to prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer
}

// New constructs a Collector writing its JSON event log to w.
func New(w io.Writer, indexType string, log xlog.Logger, opts Options) *Collector {
	sampleN := opts.SampleEvery
	if sampleN == 0 {
		sampleN = 1
	}
	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	c := &Collector{
		runID:     uuid.New().String(),
		indexType: indexType,
		sampleN:   sampleN,
		log:       log,
		enc:       json.NewEncoder(w),
		rowsFetched: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   "chronoidx",
			Name:        "rows_fetched_total",
			Help:        "Annotation rows fetched from the annotation store.",
			ConstLabels: prometheus.Labels{"index_type": indexType},
		}),
		positionsEmitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   "chronoidx",
			Name:        "positions_emitted_total",
			Help:        "Positions appended to a posting list.",
			ConstLabels: prometheus.Labels{"index_type": indexType},
		}),
		spillFiles: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   "chronoidx",
			Name:        "spill_files_total",
			Help:        "RunFiles written during partition processing.",
			ConstLabels: prometheus.Labels{"index_type": indexType},
		}),
		mergeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "chronoidx",
			Name:        "merge_duration_seconds",
			Help:        "Wall-clock duration of the ExternalMerger pass.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: prometheus.Labels{"index_type": indexType},
		}),
	}
	return c
}

// RunID returns this build's run identifier, also stamped into the
// manifest.
func (c *Collector) RunID() string { return c.runID }

// RecordBatchComplete logs one fetch-batch completion, sampled per
// Options.SampleEvery, and updates the rows_fetched counter
// unconditionally.
func (c *Collector) RecordBatchComplete(rowsFetched, rowsSkipped int) {
	c.rowsFetched.Add(float64(rowsFetched))
	n := c.batchCount.Add(1)
	if n%c.sampleN != 0 {
		return
	}
	c.emit(Event{
		RunID:     c.runID,
		Type:      "batch_complete",
		IndexType: c.indexType,
		Fields: map[string]interface{}{
			"rows_fetched": rowsFetched,
			"rows_skipped": rowsSkipped,
			"batch_number": n,
		},
	})
}

// RecordPositionsEmitted updates the positions_emitted counter.
func (c *Collector) RecordPositionsEmitted(n int) {
	c.positionsEmitted.Add(float64(n))
}

// RecordSpillFile updates the spill_files counter.
func (c *Collector) RecordSpillFile() {
	c.spillFiles.Add(1)
}

// RecordMergeDuration observes the ExternalMerger pass duration and emits
// an unconditional (unsampled) indexing_metrics summary event.
func (c *Collector) RecordMergeDuration(seconds float64, mergedKeys int, recordCount int) {
	c.mergeDuration.Observe(seconds)
	c.emit(Event{
		RunID:     c.runID,
		Type:      "indexing_metrics",
		IndexType: c.indexType,
		Fields: map[string]interface{}{
			"merge_duration_seconds": seconds,
			"merged_keys":            mergedKeys,
			"record_count":           recordCount,
		},
	})
}

func (c *Collector) emit(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enc.Encode(e); err != nil {
		// The event log is best-effort observability; a write failure here
		// must not abort an otherwise successful index build.
		c.log.Warn("metrics: failed to write event", "error", err)
	}
}
