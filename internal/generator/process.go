package generator

import (
	"sort"

	"github.com/fredrikaaa/chronoidx/internal/position"
	"github.com/fredrikaaa/chronoidx/internal/posting"
)

// ProcessPartition implements spec §4.6.2: run spec.DeriveKeys over the
// partition's rows (which already performs the filter, key derivation,
// and Position construction), then group the resulting entries by key
// into a sorted PostingList or StitchList per key.
func ProcessPartition(p Partition, spec Spec, sc *SpecContext) (lists map[string]*posting.List, stitchLists map[string]*posting.StitchList, skipped int, err error) {
	entries, skippedCount, err := spec.DeriveKeys(p.Rows, sc)
	if err != nil {
		return nil, nil, skippedCount, err
	}

	if spec.IsStitch {
		stitchLists = make(map[string]*posting.StitchList)
		for _, e := range entries {
			l, ok := stitchLists[e.Key]
			if !ok {
				l = posting.NewStitchList(0)
				stitchLists[e.Key] = l
			}
			l.Push(toStitch(e))
		}
		for _, l := range stitchLists {
			l.Sort()
		}
		return nil, stitchLists, skippedCount, nil
	}

	lists = make(map[string]*posting.List)
	for _, e := range entries {
		l, ok := lists[e.Key]
		if !ok {
			l = posting.NewList(0)
			lists[e.Key] = l
		}
		l.Push(e.Pos)
	}
	for _, l := range lists {
		l.Sort()
	}
	return lists, nil, skippedCount, nil
}

func toStitch(e KeyEntry) position.Stitch {
	return position.Stitch{Position: e.Pos, SynonymID: e.SynonymID, AnnotationType: e.AnnType}
}

// SortedKeys returns the keys of a map[string]*posting.List in sorted
// order, the order RunFile entries must be written in.
func SortedKeys(lists map[string]*posting.List) []string {
	keys := make([]string, 0, len(lists))
	for k := range lists {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SortedStitchKeys is SortedKeys for stitch-list maps.
func SortedStitchKeys(lists map[string]*posting.StitchList) []string {
	keys := make([]string, 0, len(lists))
	for k := range lists {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
