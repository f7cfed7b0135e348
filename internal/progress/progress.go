// Package progress implements the ProgressTracker (spec §4, component 9):
// thread-safe counters an external renderer polls, updated lock-free per
// DESIGN NOTES ("no process-wide singletons", CONCURRENCY §5 "lock-free
// atomic counters").
package progress

import "sync/atomic"

// Phase mirrors the IndexGenerator state machine (spec §4.6) for display.
type Phase int

const (
	PhaseCreated Phase = iota
	PhaseFetching
	PhaseProcessing
	PhaseFlushing
	PhaseMerging
	PhaseWriting
	PhaseDone
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseCreated:
		return "created"
	case PhaseFetching:
		return "fetching"
	case PhaseProcessing:
		return "processing"
	case PhaseFlushing:
		return "flushing"
	case PhaseMerging:
		return "merging"
	case PhaseWriting:
		return "writing"
	case PhaseDone:
		return "done"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Tracker exposes a snapshot of an IndexGenerator's progress for an
// external renderer (a progress bar, a log tailer) to poll.
type Tracker struct {
	phase           atomic.Int32
	rowsFetched     atomic.Uint64
	rowsSkipped     atomic.Uint64
	positionsEmitted atomic.Uint64
	spillFiles      atomic.Uint64
	mergedKeys      atomic.Uint64
}

// New returns a Tracker in PhaseCreated.
func New() *Tracker { return &Tracker{} }

func (t *Tracker) SetPhase(p Phase)          { t.phase.Store(int32(p)) }
func (t *Tracker) Phase() Phase              { return Phase(t.phase.Load()) }
func (t *Tracker) AddRowsFetched(n uint64)   { t.rowsFetched.Add(n) }
func (t *Tracker) AddRowsSkipped(n uint64)   { t.rowsSkipped.Add(n) }
func (t *Tracker) AddPositionsEmitted(n uint64) { t.positionsEmitted.Add(n) }
func (t *Tracker) AddSpillFile()             { t.spillFiles.Add(1) }
func (t *Tracker) AddMergedKeys(n uint64)    { t.mergedKeys.Add(n) }

// Snapshot is an immutable copy of the counters at one instant.
type Snapshot struct {
	Phase            Phase
	RowsFetched      uint64
	RowsSkipped      uint64
	PositionsEmitted uint64
	SpillFiles       uint64
	MergedKeys       uint64
}

// Snapshot reads every counter without locking.
func (t *Tracker) Snapshot() Snapshot {
	return Snapshot{
		Phase:            t.Phase(),
		RowsFetched:      t.rowsFetched.Load(),
		RowsSkipped:      t.rowsSkipped.Load(),
		PositionsEmitted: t.positionsEmitted.Load(),
		SpillFiles:       t.spillFiles.Load(),
		MergedKeys:       t.mergedKeys.Load(),
	}
}
