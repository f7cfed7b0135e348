package generator

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/fredrikaaa/chronoidx/internal/kvstore"
	"github.com/fredrikaaa/chronoidx/internal/memgov"
	"github.com/fredrikaaa/chronoidx/internal/metrics"
	"github.com/fredrikaaa/chronoidx/internal/position"
	"github.com/fredrikaaa/chronoidx/internal/posting"
	"github.com/fredrikaaa/chronoidx/internal/progress"
	"github.com/fredrikaaa/chronoidx/internal/textnorm"
	"github.com/fredrikaaa/chronoidx/internal/xlog"
)

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }

func newTestRegisterer() prometheus.Registerer { return prometheus.NewRegistry() }

// fixtureRows returns a small, deterministic in-memory "annotation store"
// used to drive a full generator.Run without needing a real sqlite file.
func fixtureRows() []Row {
	var rows []Row
	for doc := uint32(0); doc < 3; doc++ {
		for sent := uint32(0); sent < 2; sent++ {
			for tok := uint32(0); tok < 4; tok++ {
				rows = append(rows, Row{
					DocumentID: doc,
					SentenceID: sent,
					BeginChar:  tok * 10,
					EndChar:    tok*10 + 5,
					Token:      "word",
					HasToken:   true,
				})
			}
		}
	}
	return rows
}

func unigramSpec(rows []Row) Spec {
	return Spec{
		Name: "UNIGRAM",
		Fetch: func(offset, limit int) ([]Row, error) {
			if offset >= len(rows) {
				return nil, nil
			}
			end := offset + limit
			if end > len(rows) {
				end = len(rows)
			}
			return rows[offset:end], nil
		},
		DeriveKeys: func(in []Row, sc *SpecContext) ([]KeyEntry, int, error) {
			var entries []KeyEntry
			for _, r := range in {
				entries = append(entries, KeyEntry{
					Key: textnorm.Normalize(r.Token),
					Pos: position.Position{
						DocumentID: r.DocumentID,
						SentenceID: r.SentenceID,
						BeginChar:  r.BeginChar,
						EndChar:    r.EndChar,
						Timestamp:  r.Timestamp,
					},
				})
			}
			return entries, 0, nil
		},
	}
}

func TestRunProducesQueryableIndex(t *testing.T) {
	dir := t.TempDir()
	rows := fixtureRows()
	spec := unigramSpec(rows)

	ctx := context.Background()
	gov := memgov.Start(ctx, xlog.Nop(), memgov.Options{})
	defer gov.Stop()

	opts := Options{
		IndexDir:    dir,
		WorkerCount: 2,
		MergeFanIn:  2,
		Memory:      gov,
		Tracker:     progress.New(),
		Metrics:     metrics.New(noopWriter{}, spec.Name, xlog.Nop(), metrics.Options{Registerer: newTestRegisterer()}),
		Log:         xlog.Nop(),
		Context:     &SpecContext{Stopwords: textnorm.Empty(), Log: xlog.Nop()},
	}

	err := Run(ctx, spec, opts)
	require.NoError(t, err)
	require.Equal(t, progress.PhaseDone, opts.Tracker.Snapshot().Phase)

	kvPath := filepath.Join(dir, spec.Name, "kv", "data.db")
	store, err := kvstore.Open(kvPath, kvstore.Options{})
	require.NoError(t, err)
	defer store.Close()

	raw, ok, err := store.Get(spec.Name, "word")
	require.NoError(t, err)
	require.True(t, ok)
	list, err := posting.Deserialize(raw)
	require.NoError(t, err)
	require.Equal(t, len(rows), list.Len())
}
