package metrics

import (
	"bufio"
	"bytes"
	"encoding/json"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/fredrikaaa/chronoidx/internal/xlog"
)

func TestRecordBatchCompleteUnsampled(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf, "UNIGRAM", xlog.Nop(), Options{Registerer: prometheus.NewRegistry()})
	require.NotEmpty(t, c.RunID())

	c.RecordBatchComplete(100, 2)
	c.RecordBatchComplete(50, 0)

	lines := collectLines(t, &buf)
	require.Len(t, lines, 2)
	require.Equal(t, "batch_complete", lines[0].Type)
	require.Equal(t, c.RunID(), lines[0].RunID)
}

func TestRecordBatchCompleteSampled(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf, "BIGRAM", xlog.Nop(), Options{Registerer: prometheus.NewRegistry(), SampleEvery: 3})

	for i := 0; i < 7; i++ {
		c.RecordBatchComplete(10, 0)
	}

	lines := collectLines(t, &buf)
	require.Len(t, lines, 2) // batches 3 and 6
}

func TestRecordMergeDurationAlwaysEmits(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf, "TRIGRAM", xlog.Nop(), Options{Registerer: prometheus.NewRegistry(), SampleEvery: 1000})
	c.RecordMergeDuration(1.5, 42, 100)

	lines := collectLines(t, &buf)
	require.Len(t, lines, 1)
	require.Equal(t, "indexing_metrics", lines[0].Type)
}

func collectLines(t *testing.T, buf *bytes.Buffer) []Event {
	t.Helper()
	var out []Event
	scanner := bufio.NewScanner(buf)
	for scanner.Scan() {
		var e Event
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		out = append(out, e)
	}
	return out
}
