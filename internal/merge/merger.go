package merge

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fredrikaaa/chronoidx/internal/xerr"
)

// DefaultFanInMax is the maximum number of RunFiles merged in a single
// pass before cascading, per spec §4.6.1.
const DefaultFanInMax = 64

// CombineFunc merges the values attached to the same key across multiple
// runs (e.g. posting.MergeMany after deserializing each value).
type CombineFunc func(key string, values [][]byte) ([]byte, error)

// Merger performs the ExternalMerger's multi-way merge of sorted RunFiles.
type Merger struct {
	fanInMax int
	workDir  string
}

// New returns a Merger that cascades through at most fanInMax runs per
// pass, using workDir for intermediate cascade files.
func New(fanInMax int, workDir string) *Merger {
	if fanInMax <= 0 {
		fanInMax = DefaultFanInMax
	}
	return &Merger{fanInMax: fanInMax, workDir: workDir}
}

type headEntry struct {
	key   string
	value []byte
	idx   int
}

// MergeInto performs a single merge pass over readers (already opened, one
// per RunFile), passing each key's values through combine and handing the
// merged, deduplicated stream to emit. Context cancellation is polled once
// per output record
// (spec §4.6 cancellation granularity).
func MergeInto(ctx context.Context, readers []*RunReader, combine CombineFunc, emit func(key string, value []byte) error) error {
	heads := make([]*headEntry, len(readers))
	for i, r := range readers {
		k, v, err := r.Next()
		if err == io.EOF {
			heads[i] = nil
			continue
		}
		if err != nil {
			return xerr.New(xerr.KindSpillIO, "merge.MergeInto", err)
		}
		heads[i] = &headEntry{key: k, value: v, idx: i}
	}

	for {
		select {
		case <-ctx.Done():
			return xerr.New(xerr.KindCancelled, "merge.MergeInto", ctx.Err())
		default:
		}

		minIdx := -1
		for i, h := range heads {
			if h == nil {
				continue
			}
			if minIdx == -1 || h.key < heads[minIdx].key {
				minIdx = i
			}
		}
		if minIdx == -1 {
			return nil
		}
		minKey := heads[minIdx].key

		var values [][]byte
		for i, h := range heads {
			if h == nil || h.key != minKey {
				continue
			}
			values = append(values, h.value)
			k, v, err := readers[i].Next()
			if err == io.EOF {
				heads[i] = nil
				continue
			}
			if err != nil {
				return xerr.New(xerr.KindSpillIO, "merge.MergeInto", err)
			}
			heads[i] = &headEntry{key: k, value: v, idx: i}
		}

		merged, err := combine(minKey, values)
		if err != nil {
			return fmt.Errorf("merge: combine key %q: %w", minKey, err)
		}
		if err := emit(minKey, merged); err != nil {
			return err
		}
	}
}

// MergeRunFiles cascades paths down to a single sorted run at outPath,
// fanning in at most m.fanInMax files per pass. It returns the paths of any
// intermediate cascade files it created, which the caller should remove
// once outPath is durably written.
func (m *Merger) MergeRunFiles(ctx context.Context, paths []string, outPath string, combine CombineFunc) ([]string, error) {
	var intermediates []string
	cur := paths
	pass := 0
	for len(cur) > m.fanInMax {
		var next []string
		for batchStart := 0; batchStart < len(cur); batchStart += m.fanInMax {
			end := batchStart + m.fanInMax
			if end > len(cur) {
				end = len(cur)
			}
			batch := cur[batchStart:end]
			tmpPath := filepath.Join(m.workDir, fmt.Sprintf("cascade-%d-%d.run", pass, batchStart))
			if err := m.mergeBatch(ctx, batch, tmpPath, combine); err != nil {
				return intermediates, err
			}
			next = append(next, tmpPath)
			intermediates = append(intermediates, tmpPath)
		}
		cur = next
		pass++
	}
	if err := m.mergeBatch(ctx, cur, outPath, combine); err != nil {
		return intermediates, err
	}
	return intermediates, nil
}

func (m *Merger) mergeBatch(ctx context.Context, paths []string, outPath string, combine CombineFunc) error {
	readers := make([]*RunReader, 0, len(paths))
	defer func() {
		for _, r := range readers {
			r.Close()
		}
	}()
	for _, p := range paths {
		r, err := OpenRunReader(p)
		if err != nil {
			return xerr.New(xerr.KindSpillIO, "merge.mergeBatch", err)
		}
		readers = append(readers, r)
	}

	w, err := CreateRunWriter(outPath)
	if err != nil {
		return xerr.New(xerr.KindSpillIO, "merge.mergeBatch", err)
	}
	mergeErr := MergeInto(ctx, readers, combine, func(key string, value []byte) error {
		return w.WriteEntry(key, value)
	})
	closeErr := w.Close()
	if mergeErr != nil {
		os.Remove(outPath)
		return mergeErr
	}
	if closeErr != nil {
		return xerr.New(xerr.KindSpillIO, "merge.mergeBatch", closeErr)
	}
	return nil
}
