package config

import (
	"testing"

	"github.com/c2h5oh/datasize"
	"github.com/stretchr/testify/require"

	"github.com/fredrikaaa/chronoidx/internal/xerr"
)

func TestResolveAppliesDefaults(t *testing.T) {
	cfg, err := Resolve(Config{IndexDir: "idx"})
	require.NoError(t, err)
	require.Equal(t, uint32(1000), cfg.BatchSize)
	require.Equal(t, uint32(64), cfg.MergeFanIn)
	require.InDelta(t, 0.75, cfg.MemoryThreshold, 1e-9)
	require.Equal(t, All, cfg.IndexTypes)
	require.True(t, len(cfg.IndexDir) > 0 && cfg.IndexDir[0] == '/')
}

func TestResolveRejectsMissingIndexDir(t *testing.T) {
	_, err := Resolve(Config{})
	require.Error(t, err)
	var xe *xerr.Error
	require.ErrorAs(t, err, &xe)
	require.Equal(t, xerr.KindConfig, xe.Kind)
}

func TestResolveRejectsBadMemoryThreshold(t *testing.T) {
	_, err := Resolve(Config{IndexDir: "idx", MemoryThreshold: 1.5})
	require.Error(t, err)
}

func TestResolveRejectsUnknownIndexType(t *testing.T) {
	_, err := Resolve(Config{IndexDir: "idx", IndexTypes: []IndexType{"BOGUS"}})
	require.Error(t, err)
}

func TestResolveRejectsDuplicateIndexType(t *testing.T) {
	_, err := Resolve(Config{IndexDir: "idx", IndexTypes: []IndexType{Unigram, Unigram}})
	require.Error(t, err)
}

func TestResolvePreservesExplicitSizes(t *testing.T) {
	cfg, err := Resolve(Config{IndexDir: "idx", SizeThresholdForDeleteConfirmation: 10 * datasize.MB})
	require.NoError(t, err)
	require.Equal(t, 10*datasize.MB, cfg.SizeThresholdForDeleteConfirmation)
}
