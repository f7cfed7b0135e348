package generator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fredrikaaa/chronoidx/internal/kvstore"
	"github.com/fredrikaaa/chronoidx/internal/manifest"
	"github.com/fredrikaaa/chronoidx/internal/memgov"
	"github.com/fredrikaaa/chronoidx/internal/merge"
	"github.com/fredrikaaa/chronoidx/internal/metrics"
	"github.com/fredrikaaa/chronoidx/internal/posting"
	"github.com/fredrikaaa/chronoidx/internal/progress"
	"github.com/fredrikaaa/chronoidx/internal/xerr"
	"github.com/fredrikaaa/chronoidx/internal/xlog"
)

const maxFetchRetries = 3

// Options bundles the per-build collaborators an IndexGenerator run needs,
// threaded in by cmd/chronoidx after config.Resolve.
type Options struct {
	IndexDir    string
	WorkerCount int
	MergeFanIn  int

	Memory   *memgov.Governor
	Tracker  *progress.Tracker
	Metrics  *metrics.Collector
	Log      xlog.Logger
	Context  *SpecContext
}

// Run drives one index variant's full build (spec §4.6): prepare the
// directory, fetch-partition-process-spill in a loop until the fetch is
// exhausted, external-merge every spilled run, and write the result into
// the KVStore, finishing with a manifest. It implements the
// CREATED->FETCHING<->PROCESSING->MERGING->WRITING->DONE state machine,
// with a FAILED branch on any error. Each partition is spilled to its
// RunFile as part of PROCESSING, so the tracker never reports
// progress.PhaseFlushing.
func Run(ctx context.Context, spec Spec, opts Options) (err error) {
	tracker := opts.Tracker
	tracker.SetPhase(progress.PhaseCreated)
	defer func() {
		if err != nil {
			tracker.SetPhase(progress.PhaseFailed)
		}
	}()

	runDir := filepath.Join(opts.IndexDir, spec.Name)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return xerr.New(xerr.KindConfig, "generator.Run", err)
	}
	spillDir := filepath.Join(runDir, "spill")
	if err := os.MkdirAll(spillDir, 0o755); err != nil {
		return xerr.New(xerr.KindConfig, "generator.Run", err)
	}
	defer os.RemoveAll(spillDir)

	runPaths, recordCount, skipped, err := fetchAndSpill(ctx, spec, opts, spillDir)
	if err != nil {
		return err
	}

	tracker.SetPhase(progress.PhaseMerging)
	mergeStart := time.Now()
	kvPath := filepath.Join(runDir, "kv", "data.db")
	tmpKVPath := kvPath + ".tmp"
	if err := os.MkdirAll(filepath.Dir(kvPath), 0o755); err != nil {
		return xerr.New(xerr.KindStoreWrite, "generator.Run", err)
	}
	os.Remove(tmpKVPath)

	mergedKeys, err := mergeAndWrite(ctx, spec, opts, runPaths, spillDir, tmpKVPath)
	if err != nil {
		os.Remove(tmpKVPath)
		return err
	}
	opts.Metrics.RecordMergeDuration(time.Since(mergeStart).Seconds(), mergedKeys, recordCount)

	tracker.SetPhase(progress.PhaseWriting)
	if err := os.Rename(tmpKVPath, kvPath); err != nil {
		os.Remove(tmpKVPath)
		return xerr.New(xerr.KindStoreWrite, "generator.Run", fmt.Errorf("commit kv store: %w", err))
	}

	if spec.UsesSynonyms {
		if err := opts.Context.Synonyms.Flush(); err != nil {
			return xerr.New(xerr.KindStoreWrite, "generator.Run", fmt.Errorf("flush synonym table: %w", err))
		}
	}

	if err := writeManifest(runDir, spec, opts, mergedKeys); err != nil {
		return err
	}
	tracker.AddRowsSkipped(uint64(skipped))
	tracker.SetPhase(progress.PhaseDone)
	return nil
}

// fetchAndSpill implements the FETCHING<->PROCESSING->FLUSHING loop (spec
// §4.6 steps 1-3): pull one page at a time, partition it document-atomically,
// process partitions concurrently, and spill each partition's posting lists
// to a sorted RunFile. It returns the RunFile paths produced.
func fetchAndSpill(ctx context.Context, spec Spec, opts Options, spillDir string) (runPaths []string, recordCount, totalSkipped int, err error) {
	tracker := opts.Tracker
	offset := 0
	batchNum := 0

	for {
		select {
		case <-ctx.Done():
			return nil, 0, 0, xerr.New(xerr.KindCancelled, "generator.fetchAndSpill", ctx.Err())
		default:
		}

		tracker.SetPhase(progress.PhaseFetching)
		batchSize := opts.Memory.RecommendedBatchSize()

		var rows []Row
		var fetchErr error
		for attempt := 0; attempt <= maxFetchRetries; attempt++ {
			rows, fetchErr = spec.Fetch(offset, batchSize)
			if fetchErr == nil {
				break
			}
			opts.Log.Warn("fetch failed, retrying", "attempt", attempt+1, "error", fetchErr)
		}
		if fetchErr != nil {
			return nil, 0, 0, xerr.New(xerr.KindStoreRead, "generator.fetchAndSpill", fmt.Errorf("fetch exhausted retries: %w", fetchErr))
		}
		if len(rows) == 0 {
			return runPaths, recordCount, totalSkipped, nil
		}

		tracker.SetPhase(progress.PhaseProcessing)
		partitions := PartitionBatch(rows, opts.WorkerCount)

		paths, batchRecords, batchSkipped, err := processPartitionsConcurrently(ctx, spec, opts, partitions, spillDir, batchNum)
		if err != nil {
			return nil, 0, 0, err
		}
		runPaths = append(runPaths, paths...)
		recordCount += batchRecords
		totalSkipped += batchSkipped

		tracker.AddRowsFetched(uint64(len(rows)))
		opts.Metrics.RecordBatchComplete(len(rows), batchSkipped)

		offset += len(rows)
		batchNum++
		if len(rows) < batchSize {
			return runPaths, recordCount, totalSkipped, nil
		}
	}
}

// processPartitionsConcurrently runs ProcessPartition over every partition
// of one fetch batch in parallel (errgroup, mirroring the teacher's
// goroutine-per-shard stage pattern), spilling each partition's result to
// its own RunFile so partitions never share mutable state.
func processPartitionsConcurrently(ctx context.Context, spec Spec, opts Options, partitions []Partition, spillDir string, batchNum int) ([]string, int, int, error) {
	paths := make([]string, len(partitions))
	records := make([]int, len(partitions))
	skips := make([]int, len(partitions))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range partitions {
		i, p := i, p
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return xerr.New(xerr.KindCancelled, "generator.processPartitionsConcurrently", gctx.Err())
			default:
			}

			lists, stitchLists, skipped, err := ProcessPartition(p, spec, opts.Context)
			if err != nil {
				return err
			}
			skips[i] = skipped

			path := filepath.Join(spillDir, fmt.Sprintf("batch%d-part%d.run", batchNum, i))
			n, err := spillPartition(spec, lists, stitchLists, path)
			if err != nil {
				return err
			}
			records[i] = n
			paths[i] = path
			opts.Metrics.RecordSpillFile()
			opts.Metrics.RecordPositionsEmitted(n)
			opts.Tracker.AddSpillFile()
			opts.Tracker.AddPositionsEmitted(uint64(n))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, 0, err
	}

	var totalRecords, totalSkipped int
	var out []string
	for i := range partitions {
		if paths[i] != "" {
			out = append(out, paths[i])
		}
		totalRecords += records[i]
		totalSkipped += skips[i]
	}
	return out, totalRecords, totalSkipped, nil
}

// spillPartition serializes every key's posting (or stitch) list in sorted
// key order into a new RunFile, the unit the ExternalMerger later fans in.
func spillPartition(spec Spec, lists map[string]*posting.List, stitchLists map[string]*posting.StitchList, path string) (int, error) {
	w, err := merge.CreateRunWriter(path)
	if err != nil {
		return 0, xerr.New(xerr.KindSpillIO, "generator.spillPartition", err)
	}

	var n int
	if spec.IsStitch {
		for _, k := range SortedStitchKeys(stitchLists) {
			data, err := posting.SerializeStitch(stitchLists[k])
			if err != nil {
				w.Close()
				return 0, xerr.New(xerr.KindSpillIO, "generator.spillPartition", err)
			}
			if err := w.WriteEntry(k, data); err != nil {
				w.Close()
				return 0, xerr.New(xerr.KindSpillIO, "generator.spillPartition", err)
			}
			n += stitchLists[k].Len()
		}
	} else {
		for _, k := range SortedKeys(lists) {
			data, err := posting.Serialize(lists[k])
			if err != nil {
				w.Close()
				return 0, xerr.New(xerr.KindSpillIO, "generator.spillPartition", err)
			}
			if err := w.WriteEntry(k, data); err != nil {
				w.Close()
				return 0, xerr.New(xerr.KindSpillIO, "generator.spillPartition", err)
			}
			n += lists[k].Len()
		}
	}
	if err := w.Close(); err != nil {
		return 0, xerr.New(xerr.KindSpillIO, "generator.spillPartition", err)
	}
	return n, nil
}

// mergeAndWrite implements spec §4.6 steps 4-5: k-way merge every spilled
// RunFile across the entire build (not just one batch) down to a single
// sorted stream per key, then stream that stream into a fresh KVStore file.
func mergeAndWrite(ctx context.Context, spec Spec, opts Options, runPaths []string, workDir string, tmpKVPath string) (int, error) {
	if len(runPaths) == 0 {
		store, err := kvstore.Open(tmpKVPath, kvstore.Options{})
		if err != nil {
			return 0, err
		}
		defer store.Close()
		if err := store.EnsureBucket(spec.Name); err != nil {
			return 0, err
		}
		return 0, nil
	}

	store, err := kvstore.Open(tmpKVPath, kvstore.Options{ReadCacheSize: 0})
	if err != nil {
		return 0, err
	}
	defer store.Close()
	if err := store.EnsureBucket(spec.Name); err != nil {
		return 0, err
	}
	store.BeginBulkLoad()
	defer store.EndBulkLoad()

	combine := combineFunc(spec)
	var mergedKeys int
	writeBatch := make(map[string][]byte, 1000)

	flush := func() error {
		if len(writeBatch) == 0 {
			return nil
		}
		if err := store.WriteBatch(spec.Name, writeBatch); err != nil {
			return err
		}
		for k := range writeBatch {
			delete(writeBatch, k)
		}
		return nil
	}

	mrg := merge.New(opts.MergeFanIn, workDir)
	finalRunPath := filepath.Join(workDir, "final.run")
	intermediates, err := mrg.MergeRunFiles(ctx, runPaths, finalRunPath, combine)
	defer func() {
		for _, p := range intermediates {
			os.Remove(p)
		}
		os.Remove(finalRunPath)
	}()
	if err != nil {
		return 0, err
	}

	reader, err := merge.OpenRunReader(finalRunPath)
	if err != nil {
		return 0, xerr.New(xerr.KindSpillIO, "generator.mergeAndWrite", err)
	}
	defer reader.Close()

	for {
		select {
		case <-ctx.Done():
			return 0, xerr.New(xerr.KindCancelled, "generator.mergeAndWrite", ctx.Err())
		default:
		}
		k, v, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, xerr.New(xerr.KindSpillIO, "generator.mergeAndWrite", err)
		}
		writeBatch[k] = v
		mergedKeys++
		opts.Tracker.AddMergedKeys(1)
		if len(writeBatch) >= 1000 {
			if err := flush(); err != nil {
				return 0, err
			}
		}
	}
	if err := flush(); err != nil {
		return 0, err
	}
	return mergedKeys, nil
}

// writeManifest stamps manifest.json (spec §6) once a build has fully
// committed its KVStore file. The checksum is a digest of the identifying
// build metadata rather than the (multi-gigabyte) KV file's contents, since
// the manifest's role is cross-version sanity-checking, not a full fsck.
func writeManifest(runDir string, spec Spec, opts Options, recordCount int) error {
	kvPath := filepath.Join(runDir, "kv", "data.db")
	info, err := os.Stat(kvPath)
	if err != nil {
		return xerr.New(xerr.KindStoreWrite, "generator.writeManifest", err)
	}

	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%d|%d", spec.Name, recordCount, info.Size(), info.ModTime().UnixNano())))
	m := manifest.Manifest{
		Type:          spec.Name,
		CreatedAtUnix: info.ModTime().Unix(),
		RecordCount:   recordCount,
		Checksum:      hex.EncodeToString(sum[:]),
		KVEngine:      "bbolt",
		Compression:   "snappy+zstd",
		RunID:         opts.Metrics.RunID(),
	}
	if err := manifest.Write(runDir, m); err != nil {
		return xerr.New(xerr.KindStoreWrite, "generator.writeManifest", err)
	}
	return nil
}

func combineFunc(spec Spec) merge.CombineFunc {
	if spec.IsStitch {
		return func(key string, values [][]byte) ([]byte, error) {
			lists := make([]*posting.StitchList, 0, len(values))
			for _, v := range values {
				l, err := posting.DeserializeStitch(v)
				if err != nil {
					return nil, err
				}
				lists = append(lists, l)
			}
			merged := posting.MergeManyStitch(lists)
			return posting.SerializeStitch(merged)
		}
	}
	return func(key string, values [][]byte) ([]byte, error) {
		lists := make([]*posting.List, 0, len(values))
		for _, v := range values {
			l, err := posting.Deserialize(v)
			if err != nil {
				return nil, err
			}
			lists = append(lists, l)
		}
		merged := posting.MergeMany(lists)
		return posting.Serialize(merged)
	}
}
