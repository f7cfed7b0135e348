package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/fredrikaaa/chronoidx/internal/annstore"
	"github.com/fredrikaaa/chronoidx/internal/config"
	"github.com/fredrikaaa/chronoidx/internal/generator"
	"github.com/fredrikaaa/chronoidx/internal/memgov"
	"github.com/fredrikaaa/chronoidx/internal/metrics"
	"github.com/fredrikaaa/chronoidx/internal/progress"
	"github.com/fredrikaaa/chronoidx/internal/synonym"
	"github.com/fredrikaaa/chronoidx/internal/textnorm"
	"github.com/fredrikaaa/chronoidx/internal/variants"
	"github.com/fredrikaaa/chronoidx/internal/xlog"
)

var (
	annotationStorePath string
	batchSize           uint32
	workerCount         uint32
	mergeFanIn          uint32
	memoryThreshold     float64
	memoryLimitStr      string
	stopwordsPath       string
	preserveExisting    bool
	sizeThresholdStr    string
	assumeDeleteOK      bool
	indexTypesFlag      []string
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build one or more index variants from the annotation store",
	RunE:  runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&annotationStorePath, "annotation-store", "", "path to the SQLite annotation store (required)")
	buildCmd.Flags().Uint32Var(&batchSize, "batch-size", 0, "batch size setting, validated only (default 1000); fetch batches are sized by the MemoryGovernor, starting at 10000 rows")
	buildCmd.Flags().Uint32Var(&workerCount, "worker-count", 0, "number of parallel partition workers (default min(CPU, 8))")
	buildCmd.Flags().Uint32Var(&mergeFanIn, "merge-fan-in", 0, "ExternalMerger fan-in per cascade pass (default 64)")
	buildCmd.Flags().Float64Var(&memoryThreshold, "memory-threshold", 0, "heap/limit ratio the MemoryGovernor spills at (default 0.75)")
	buildCmd.Flags().StringVar(&memoryLimitStr, "memory-limit", "", "heap ceiling, e.g. 2GB (default 2GB)")
	buildCmd.Flags().StringVar(&stopwordsPath, "stopwords-path", "", "path to a newline-delimited stopword list")
	buildCmd.Flags().BoolVar(&preserveExisting, "preserve-existing-index", false, "keep an existing index directory's files instead of clearing it before the build (the build still replaces kv/data.db and manifest.json)")
	buildCmd.Flags().StringVar(&sizeThresholdStr, "size-threshold-for-delete-confirmation", "", "size above which deleting an existing index directory requires confirmation (default 500MB)")
	buildCmd.Flags().BoolVar(&assumeDeleteOK, "yes", false, "skip the interactive confirmation before deleting a large existing index directory")
	buildCmd.Flags().StringSliceVar(&indexTypesFlag, "index-types", nil, "index variants to build (default: all)")
}

func runBuild(cmd *cobra.Command, args []string) error {
	if annotationStorePath == "" {
		return fmt.Errorf("--annotation-store is required")
	}

	cfg := config.Config{
		IndexDir:              indexDir,
		BatchSize:             batchSize,
		WorkerCount:           workerCount,
		MergeFanIn:            mergeFanIn,
		MemoryThreshold:       memoryThreshold,
		StopwordsPath:         stopwordsPath,
		PreserveExistingIndex: preserveExisting,
	}
	if memoryLimitStr != "" {
		if err := cfg.MemoryLimit.UnmarshalText([]byte(memoryLimitStr)); err != nil {
			return fmt.Errorf("parse --memory-limit: %w", err)
		}
	}
	if sizeThresholdStr != "" {
		if err := cfg.SizeThresholdForDeleteConfirmation.UnmarshalText([]byte(sizeThresholdStr)); err != nil {
			return fmt.Errorf("parse --size-threshold-for-delete-confirmation: %w", err)
		}
	}
	for _, t := range indexTypesFlag {
		cfg.IndexTypes = append(cfg.IndexTypes, config.IndexType(strings.ToUpper(t)))
	}

	cfg, err := config.Resolve(cfg)
	if err != nil {
		return err
	}

	log := xlog.New("chronoidx")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sig:
			log.Warn("received interrupt, cancelling build")
			cancel()
		case <-ctx.Done():
		}
	}()

	store, err := annstore.Open(annotationStorePath)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Ensure(ctx); err != nil {
		return err
	}

	stopwords := textnorm.Empty()
	if cfg.StopwordsPath != "" {
		stopwords, err = textnorm.LoadStopwords(cfg.StopwordsPath)
		if err != nil {
			return err
		}
	}

	allSpecs := variants.All(ctx, store)
	wanted := make(map[string]bool, len(cfg.IndexTypes))
	for _, t := range cfg.IndexTypes {
		wanted[string(t)] = true
	}

	var failed []string
	for _, spec := range allSpecs {
		if !wanted[spec.Name] {
			continue
		}
		if err := buildOne(ctx, spec, cfg, stopwords, log); err != nil {
			log.Warn("index build failed, continuing with remaining types", "index_type", spec.Name, "error", err)
			failed = append(failed, fmt.Sprintf("%s: %v", spec.Name, err))
			continue
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d index type(s) failed: %s", len(failed), strings.Join(failed, "; "))
	}
	return nil
}

// buildOne drives the directory preparation, SynonymTable, governor and
// metrics wiring for a single index variant, then runs the generator.
func buildOne(ctx context.Context, spec generator.Spec, cfg config.Config, stopwords *textnorm.Stopwords, log xlog.Logger) error {
	runDir := filepath.Join(cfg.IndexDir, spec.Name)

	var confirm generator.ConfirmDeleteFunc
	if assumeDeleteOK {
		confirm = func(string, uint64) bool { return true }
	}
	lock, err := generator.PrepareDir(runDir, cfg.PreserveExistingIndex, uint64(cfg.SizeThresholdForDeleteConfirmation), confirm)
	if err != nil {
		return err
	}
	defer lock.Unlock()

	specLog := log.With("index_type", spec.Name)
	sc := &generator.SpecContext{Stopwords: stopwords, Log: specLog}
	if spec.UsesSynonyms {
		tbl, err := synonym.Open(filepath.Join(runDir, "synonyms"), specLog)
		if err != nil {
			return err
		}
		defer tbl.Close()
		sc.Synonyms = tbl
	}

	gov := memgov.Start(ctx, specLog, memgov.Options{
		LimitBytes:     uint64(cfg.MemoryLimit),
		ThresholdRatio: cfg.MemoryThreshold,
	})
	defer gov.Stop()

	eventsPath := filepath.Join(runDir, "events.jsonl")
	eventsFile, err := os.Create(eventsPath)
	if err != nil {
		return fmt.Errorf("create events log: %w", err)
	}
	defer eventsFile.Close()

	collector := metrics.New(eventsFile, spec.Name, specLog, metrics.Options{Registerer: prometheus.NewRegistry()})

	opts := generator.Options{
		IndexDir:    cfg.IndexDir,
		WorkerCount: int(cfg.WorkerCount),
		MergeFanIn:  int(cfg.MergeFanIn),
		Memory:      gov,
		Tracker:     progress.New(),
		Metrics:     collector,
		Log:         specLog,
		Context:     sc,
	}
	return generator.Run(ctx, spec, opts)
}
