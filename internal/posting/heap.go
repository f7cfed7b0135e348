package posting

import "github.com/fredrikaaa/chronoidx/internal/position"

// mergeHeapItem is one input stream to the k-way merge: the remaining
// (still-sorted) positions from a single source list, plus the list's
// original index so ties break by input order for determinism.
type mergeHeapItem struct {
	list     []position.Position
	srcIndex int
}

// mergeHeap is a small binary min-heap ordered on each item's head Position,
// tie-broken by srcIndex. It backs PostingList.MergeMany (spec §4.1); the
// ExternalMerger's multi-way run merge does not use it. A hand-rolled heap
// is used instead of container/heap's interface-based API to avoid the
// boxing overhead on the hot merge path; the algorithm itself is the
// standard binary-heap sift-up/sift-down.
type mergeHeap []mergeHeapItem

func (h mergeHeap) less(i, j int) bool {
	c := position.Compare(h[i].list[0], h[j].list[0])
	if c != 0 {
		return c < 0
	}
	return h[i].srcIndex < h[j].srcIndex
}

func (h mergeHeap) Len() int { return len(h) }

func (h *mergeHeap) init() {
	n := h.Len()
	for i := n/2 - 1; i >= 0; i-- {
		h.siftDown(i, n)
	}
}

func (h *mergeHeap) pushBack(item mergeHeapItem) {
	*h = append(*h, item)
	h.siftUp(h.Len() - 1)
}

func (h *mergeHeap) popMin() mergeHeapItem {
	n := h.Len() - 1
	(*h)[0], (*h)[n] = (*h)[n], (*h)[0]
	min := (*h)[n]
	*h = (*h)[:n]
	if n > 0 {
		h.siftDown(0, n)
	}
	return min
}

func (h *mergeHeap) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !h.less(i, parent) {
			return
		}
		(*h)[i], (*h)[parent] = (*h)[parent], (*h)[i]
		i = parent
	}
}

func (h *mergeHeap) siftDown(i, n int) {
	for {
		left := 2*i + 1
		if left >= n {
			return
		}
		smallest := left
		if right := left + 1; right < n && h.less(right, left) {
			smallest = right
		}
		if !h.less(smallest, i) {
			return
		}
		(*h)[i], (*h)[smallest] = (*h)[smallest], (*h)[i]
		i = smallest
	}
}
