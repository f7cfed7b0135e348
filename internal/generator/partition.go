package generator

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/fredrikaaa/chronoidx/internal/mathutil"
)

// Partition is one document-atomic slice of a fetch batch (spec §4.6.1).
// DocumentIDs is a roaring bitmap of the document ids it owns, cheap to
// test for intersection when verifying partition soundness in tests.
type Partition struct {
	Rows        []Row
	DocumentIDs *roaring.Bitmap
}

// PartitionBatch splits batch into at most workerCount document-atomic
// partitions (spec §4.6.1):
//   - document-atomicity: every row of a document_id lands in one partition.
//   - count: min(workerCount, distinct_document_count).
//   - stability: a document's rows keep their batch order.
//
// Balance (|partition| <= 2*avg) is pursued via greedy lightest-partition
// assignment of whole documents in first-appearance order; a single
// disproportionately large document can still violate it alone, which
// spec §4.6.1 explicitly permits ("larger documents may be placed alone").
func PartitionBatch(batch []Row, workerCount int) []Partition {
	if len(batch) == 0 {
		return nil
	}

	var docOrder []uint32
	docRows := make(map[uint32][]Row)
	for _, r := range batch {
		if _, ok := docRows[r.DocumentID]; !ok {
			docOrder = append(docOrder, r.DocumentID)
		}
		docRows[r.DocumentID] = append(docRows[r.DocumentID], r)
	}

	n := mathutil.Clamp(workerCount, 1, len(docOrder))

	// avgRows sizes each partition's Rows slice up front, avoiding the
	// repeated reallocation the greedy lightest-partition assignment below
	// would otherwise cause.
	avgRows := mathutil.CeilDiv(len(batch), n)
	partitions := make([]Partition, n)
	for i := range partitions {
		partitions[i].DocumentIDs = roaring.New()
		partitions[i].Rows = make([]Row, 0, avgRows)
	}

	for _, doc := range docOrder {
		minIdx := 0
		for i := 1; i < n; i++ {
			if len(partitions[i].Rows) < len(partitions[minIdx].Rows) {
				minIdx = i
			}
		}
		partitions[minIdx].Rows = append(partitions[minIdx].Rows, docRows[doc]...)
		partitions[minIdx].DocumentIDs.Add(doc)
	}

	return partitions
}
