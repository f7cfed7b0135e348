package memgov

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fredrikaaa/chronoidx/internal/xlog"
)

func TestRecommendedBatchSizeBounds(t *testing.T) {
	g := Start(context.Background(), xlog.Nop(), Options{})
	defer g.Stop()

	size := g.RecommendedBatchSize()
	require.GreaterOrEqual(t, size, MinBatchSize)
	require.LessOrEqual(t, size, MaxBatchSize)
}

func TestShouldSpillUnderPressure(t *testing.T) {
	g := Start(context.Background(), xlog.Nop(), Options{
		LimitBytes:     1, // any nonzero HeapAlloc exceeds this, forcing pressure
		ThresholdRatio: 0.75,
		SampleInterval: 5 * time.Millisecond,
	})
	defer g.Stop()

	require.Eventually(t, func() bool {
		return g.ShouldSpill()
	}, time.Second, 5*time.Millisecond)
	// Each sample under pressure halves the batch size once, so reaching
	// the floor takes several samples after the first spill signal.
	require.Eventually(t, func() bool {
		return g.RecommendedBatchSize() == MinBatchSize
	}, time.Second, 5*time.Millisecond)
}
