// Package config defines the Configuration surface (spec §6) exposed to
// callers, using the corpus's withDefaults()-then-Validate() shape (see
// the searchkit worker's SearchkitOptions.withDefaults) rather than a
// struct tag/viper-driven loader.
package config

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/c2h5oh/datasize"

	"github.com/fredrikaaa/chronoidx/internal/xerr"
)

// IndexType tags the nine index variants (spec §3).
type IndexType string

const (
	Unigram    IndexType = "UNIGRAM"
	Bigram     IndexType = "BIGRAM"
	Trigram    IndexType = "TRIGRAM"
	POS        IndexType = "POS"
	NER        IndexType = "NER"
	NERDate    IndexType = "NER_DATE"
	Dependency IndexType = "DEPENDENCY"
	Hypernym   IndexType = "HYPERNYM"
	Stitch     IndexType = "STITCH"
)

// All lists every known index type, the expansion of the "all" sentinel
// accepted by Config.IndexTypes.
var All = []IndexType{Unigram, Bigram, Trigram, POS, NER, NERDate, Dependency, Hypernym, Stitch}

func validIndexType(t IndexType) bool {
	for _, v := range All {
		if v == t {
			return true
		}
	}
	return false
}

// Config is the Configuration surface of spec §6.
type Config struct {
	IndexDir    string
	BatchSize   uint32
	WorkerCount uint32
	MergeFanIn  uint32
	// MemoryThreshold is T, the heap/limit ratio the MemoryGovernor spills
	// at (spec §4.5), in (0, 1].
	MemoryThreshold float64
	// MemoryLimit is the heap ceiling MemoryThreshold is a ratio of.
	// Accepts human-readable sizes ("2GB") via c2h5oh/datasize.
	MemoryLimit datasize.ByteSize
	StopwordsPath string
	PreserveExistingIndex bool
	// SizeThresholdForDeleteConfirmation gates interactive confirmation
	// before a non-preserving run deletes an existing index directory
	// larger than this size.
	SizeThresholdForDeleteConfirmation datasize.ByteSize
	// IndexTypes is the set to build. Empty means "all" (spec §6).
	IndexTypes []IndexType
}

// withDefaults fills in every zero-valued field per spec §6's defaults,
// following the corpus's value-receiver withDefaults() convention.
func (c Config) withDefaults() Config {
	out := c
	if out.BatchSize == 0 {
		out.BatchSize = 1000
	}
	if out.WorkerCount == 0 {
		n := runtime.NumCPU()
		if n > 8 {
			n = 8
		}
		out.WorkerCount = uint32(n)
	}
	if out.MergeFanIn == 0 {
		out.MergeFanIn = 64
	}
	if out.MemoryThreshold == 0 {
		out.MemoryThreshold = 0.75
	}
	if out.MemoryLimit == 0 {
		out.MemoryLimit = 2 * datasize.GB
	}
	if out.SizeThresholdForDeleteConfirmation == 0 {
		out.SizeThresholdForDeleteConfirmation = 500 * datasize.MB
	}
	if len(out.IndexTypes) == 0 {
		out.IndexTypes = All
	}
	return out
}

// Resolve applies defaults and validates the result, returning a
// xerr.KindConfig error on the first problem found.
func Resolve(c Config) (Config, error) {
	cfg := c.withDefaults()

	if strings.TrimSpace(cfg.IndexDir) == "" {
		return cfg, xerr.New(xerr.KindConfig, "config.Resolve", fmt.Errorf("index_dir is required"))
	}
	if !filepath.IsAbs(cfg.IndexDir) {
		abs, err := filepath.Abs(cfg.IndexDir)
		if err != nil {
			return cfg, xerr.New(xerr.KindConfig, "config.Resolve", fmt.Errorf("resolve index_dir: %w", err))
		}
		cfg.IndexDir = abs
	}
	if cfg.MemoryThreshold <= 0 || cfg.MemoryThreshold > 1 {
		return cfg, xerr.New(xerr.KindConfig, "config.Resolve", fmt.Errorf("memory_threshold must be in (0, 1], got %v", cfg.MemoryThreshold))
	}
	if cfg.BatchSize == 0 {
		return cfg, xerr.New(xerr.KindConfig, "config.Resolve", fmt.Errorf("batch_size must be positive"))
	}
	if cfg.MergeFanIn < 2 {
		return cfg, xerr.New(xerr.KindConfig, "config.Resolve", fmt.Errorf("merge_fan_in must be at least 2"))
	}
	seen := make(map[IndexType]bool, len(cfg.IndexTypes))
	for _, t := range cfg.IndexTypes {
		if !validIndexType(t) {
			return cfg, xerr.New(xerr.KindConfig, "config.Resolve", fmt.Errorf("unknown index type %q", t))
		}
		if seen[t] {
			return cfg, xerr.New(xerr.KindConfig, "config.Resolve", fmt.Errorf("duplicate index type %q", t))
		}
		seen[t] = true
	}
	return cfg, nil
}
