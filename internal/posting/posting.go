// Package posting implements PostingList: a sorted, duplicate-preserving
// sequence of Positions for a single index key (spec §3, §4.1).
package posting

import (
	"sort"

	"github.com/fredrikaaa/chronoidx/internal/position"
)

// List is a sorted set of Positions for one key. Duplicates are preserved:
// this is posting-list semantics, not set semantics (spec §3).
type List struct {
	positions []position.Position
}

// NewList returns an empty List, optionally pre-sized.
func NewList(capacityHint int) *List {
	return &List{positions: make([]position.Position, 0, capacityHint)}
}

// FromSorted wraps an already-sorted slice without copying or re-sorting.
// Callers must guarantee the slice is sorted in the spec §3 total order.
func FromSorted(positions []position.Position) *List {
	return &List{positions: positions}
}

// Push appends a Position without re-sorting, per spec §4.1
// (PostingList::push).
func (l *List) Push(p position.Position) {
	l.positions = append(l.positions, p)
}

// Len returns the number of Positions, including duplicates.
func (l *List) Len() int { return len(l.positions) }

// Positions returns the underlying slice. Callers must not mutate it after
// the List has been sorted unless they call Sort again.
func (l *List) Positions() []position.Position { return l.positions }

// Sort performs a stable sort in the spec §3 total order (PostingList::sort).
func (l *List) Sort() {
	sort.SliceStable(l.positions, func(i, j int) bool {
		return position.Less(l.positions[i], l.positions[j])
	})
}

// Merge merges two already-sorted Lists in O(n+m), preserving duplicates
// (spec §4.1, PostingList::merge). Both receiver and other must already be
// sorted; Merge does not sort its inputs.
func (l *List) Merge(other *List) *List {
	return FromSorted(mergeTwo(l.positions, other.positions))
}

func mergeTwo(a, b []position.Position) []position.Position {
	out := make([]position.Position, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if position.Less(b[j], a[i]) {
			out = append(out, b[j])
			j++
		} else {
			out = append(out, a[i])
			i++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

// MergeMany performs a k-way merge of already-sorted Lists via a min-heap
// keyed on each input's current head Position (spec §4.1, merge_many).
// Equal heads are emitted in input order, so the merge is stable.
func MergeMany(lists []*List) *List {
	lists = nonEmpty(lists)
	switch len(lists) {
	case 0:
		return NewList(0)
	case 1:
		return FromSorted(append([]position.Position(nil), lists[0].positions...))
	}

	total := 0
	for _, l := range lists {
		total += l.Len()
	}

	h := make(mergeHeap, 0, len(lists))
	for idx, l := range lists {
		h = append(h, mergeHeapItem{list: l.positions, srcIndex: idx})
	}
	h.init()

	out := make([]position.Position, 0, total)
	for h.Len() > 0 {
		item := h.popMin()
		out = append(out, item.list[0])
		item.list = item.list[1:]
		if len(item.list) > 0 {
			h.pushBack(item)
		}
	}
	return FromSorted(out)
}

func nonEmpty(lists []*List) []*List {
	out := make([]*List, 0, len(lists))
	for _, l := range lists {
		if l != nil && l.Len() > 0 {
			out = append(out, l)
		}
	}
	return out
}
