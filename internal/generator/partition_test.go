package generator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPartitionBatchIsDocumentAtomicAndBalanced(t *testing.T) {
	var batch []Row
	for doc := uint32(0); doc < 6; doc++ {
		for sent := uint32(0); sent < 3; sent++ {
			batch = append(batch, Row{DocumentID: doc, SentenceID: sent})
		}
	}

	partitions := PartitionBatch(batch, 3)
	require.Len(t, partitions, 3)

	seen := make(map[uint32]int)
	total := 0
	for _, p := range partitions {
		docs := make(map[uint32]bool)
		for _, r := range p.Rows {
			docs[r.DocumentID] = true
		}
		require.Len(t, docs, int(p.DocumentIDs.GetCardinality()))
		for d := range docs {
			seen[d]++
		}
		total += len(p.Rows)
		require.LessOrEqual(t, len(p.Rows), 2*len(batch)/len(partitions), "partition exceeds 2x the average size")
	}
	require.Equal(t, len(batch), total)
	for doc, count := range seen {
		require.Equal(t, 1, count, "document %d split across partitions", doc)
	}
}

func TestPartitionBatchClampsWorkerCountToDocumentCount(t *testing.T) {
	batch := []Row{{DocumentID: 1}, {DocumentID: 1}, {DocumentID: 2}}
	partitions := PartitionBatch(batch, 8)
	require.Len(t, partitions, 2)
}

func TestPartitionBatchEmpty(t *testing.T) {
	require.Nil(t, PartitionBatch(nil, 4))
}
