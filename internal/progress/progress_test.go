package progress

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConcurrentCounters(t *testing.T) {
	tr := New()
	tr.SetPhase(PhaseProcessing)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.AddRowsFetched(1)
			tr.AddPositionsEmitted(2)
		}()
	}
	wg.Wait()

	snap := tr.Snapshot()
	require.Equal(t, PhaseProcessing, snap.Phase)
	require.Equal(t, uint64(100), snap.RowsFetched)
	require.Equal(t, uint64(200), snap.PositionsEmitted)
}
