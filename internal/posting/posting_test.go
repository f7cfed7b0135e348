package posting

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fredrikaaa/chronoidx/internal/position"
)

func mustPos(t *testing.T, doc, sent, begin, end uint32, date string) position.Position {
	t.Helper()
	p, err := position.New(doc, sent, begin, end, position.MustParseDate(date))
	require.NoError(t, err)
	return p
}

func TestRoundTrip(t *testing.T) {
	l := NewList(0)
	l.Push(mustPos(t, 1, 0, 0, 5, "2024-01-01"))
	l.Push(mustPos(t, 1, 1, 10, 14, "2024-01-01"))
	l.Push(mustPos(t, 2, 0, 0, 5, "2024-01-02"))
	l.Push(mustPos(t, 2, 0, 0, 5, "2024-01-02")) // duplicate, must be preserved
	l.Sort()

	data, err := Serialize(l)
	require.NoError(t, err)

	got, err := Deserialize(data)
	require.NoError(t, err)
	require.Equal(t, l.Positions(), got.Positions())
}

func TestRoundTripEmpty(t *testing.T) {
	l := NewList(0)
	data, err := Serialize(l)
	require.NoError(t, err)
	got, err := Deserialize(data)
	require.NoError(t, err)
	require.Equal(t, 0, got.Len())
}

func TestDeserializeCorrupt(t *testing.T) {
	_, err := Deserialize([]byte{1, 2})
	require.Error(t, err)

	_, err = Deserialize([]byte{1, 0, 0, 0, 0xff})
	require.Error(t, err)
}

func TestMergeCommutative(t *testing.T) {
	a := NewList(0)
	a.Push(mustPos(t, 1, 0, 0, 5, "2024-01-01"))
	a.Push(mustPos(t, 3, 0, 0, 5, "2024-01-01"))

	b := NewList(0)
	b.Push(mustPos(t, 2, 0, 0, 5, "2024-01-01"))
	b.Push(mustPos(t, 3, 0, 0, 5, "2024-01-01")) // duplicate of a's doc 3 entry

	ab := a.Merge(b)
	ba := b.Merge(a)
	require.Equal(t, ab.Positions(), ba.Positions())
	require.Len(t, ab.Positions(), 4)
}

func TestMergeManyMatchesPairwise(t *testing.T) {
	lists := make([]*List, 0, 4)
	for i := uint32(0); i < 4; i++ {
		l := NewList(0)
		l.Push(mustPos(t, i, 0, 0, 5, "2024-01-01"))
		l.Push(mustPos(t, i+10, 0, 0, 5, "2024-01-01"))
		lists = append(lists, l)
	}
	merged := MergeMany(lists)
	require.Len(t, merged.Positions(), 8)
	for i := 1; i < merged.Len(); i++ {
		require.False(t, position.Less(merged.Positions()[i], merged.Positions()[i-1]))
	}
	pairwise := lists[0].Merge(lists[1]).Merge(lists[2]).Merge(lists[3])
	require.Equal(t, pairwise.Positions(), merged.Positions())
}

func TestMergeManyEmpty(t *testing.T) {
	merged := MergeMany(nil)
	require.Equal(t, 0, merged.Len())
}

func TestStitchRoundTrip(t *testing.T) {
	l := NewStitchList(0)
	base := mustPos(t, 1, 0, 0, 5, "2024-01-01")
	l.Push(position.Stitch{Position: base, SynonymID: 7, AnnotationType: position.AnnotationNER})
	l.Push(position.Stitch{Position: mustPos(t, 1, 0, 6, 9, "2024-01-01"), SynonymID: 2, AnnotationType: position.AnnotationDate})
	l.Sort()

	data, err := SerializeStitch(l)
	require.NoError(t, err)
	got, err := DeserializeStitch(data)
	require.NoError(t, err)
	require.Equal(t, l.Positions(), got.Positions())
}
