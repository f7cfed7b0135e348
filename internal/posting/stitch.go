package posting

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/fredrikaaa/chronoidx/internal/position"
	"github.com/fredrikaaa/chronoidx/internal/xerr"
)

// StitchList is the STITCH index's posting list: Stitch positions ordered
// per spec §3 (Position order, tie-broken by annotation_type then
// synonym_id).
type StitchList struct {
	positions []position.Stitch
}

// NewStitchList returns an empty StitchList.
func NewStitchList(capacityHint int) *StitchList {
	return &StitchList{positions: make([]position.Stitch, 0, capacityHint)}
}

// Push appends without re-sorting.
func (l *StitchList) Push(p position.Stitch) { l.positions = append(l.positions, p) }

// Len returns the number of entries.
func (l *StitchList) Len() int { return len(l.positions) }

// Positions returns the underlying slice.
func (l *StitchList) Positions() []position.Stitch { return l.positions }

// Sort performs a stable sort in the StitchPosition total order.
func (l *StitchList) Sort() {
	sort.SliceStable(l.positions, func(i, j int) bool {
		return position.LessStitch(l.positions[i], l.positions[j])
	})
}

// Merge merges two already-sorted StitchLists in O(n+m), preserving
// duplicates, mirroring List.Merge.
func (l *StitchList) Merge(other *StitchList) *StitchList {
	return &StitchList{positions: mergeTwoStitch(l.positions, other.positions)}
}

func mergeTwoStitch(a, b []position.Stitch) []position.Stitch {
	out := make([]position.Stitch, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if position.LessStitch(b[j], a[i]) {
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

// MergeManyStitch performs a k-way merge of already-sorted StitchLists,
// mirroring MergeMany. Inputs are small enough in practice (fan-in capped
// at merge_fan_in) that a pairwise-reduce is used rather than a second
// heap implementation.
func MergeManyStitch(lists []*StitchList) *StitchList {
	var nonEmpty []*StitchList
	for _, l := range lists {
		if l != nil && l.Len() > 0 {
			nonEmpty = append(nonEmpty, l)
		}
	}
	switch len(nonEmpty) {
	case 0:
		return NewStitchList(0)
	case 1:
		return &StitchList{positions: append([]position.Stitch(nil), nonEmpty[0].positions...)}
	}
	merged := nonEmpty[0]
	for _, l := range nonEmpty[1:] {
		merged = merged.Merge(l)
	}
	return merged
}

// SerializeStitch encodes a StitchList: the Position fields exactly as
// Serialize does, plus a trailing varint annotation_type and varint
// synonym_id per record.
func SerializeStitch(l *StitchList) ([]byte, error) {
	buf := make([]byte, 4, 4+l.Len()*14)
	binary.LittleEndian.PutUint32(buf, uint32(l.Len()))

	var prevDoc, prevSent, prevBegin uint32
	var scratch [binary.MaxVarintLen64]byte
	for i, sp := range l.positions {
		p := sp.Position
		span := p.EndChar - p.BeginChar
		if span > math.MaxUint16 {
			return nil, fmt.Errorf("posting: stitch span %d exceeds u16 at index %d", span, i)
		}
		sameDoc := i > 0 && p.DocumentID == prevDoc
		sameDocSent := sameDoc && p.SentenceID == prevSent

		buf = appendUvarint(buf, scratch[:], uint64(p.DocumentID-prevDoc))
		sentField := p.SentenceID
		if sameDoc {
			sentField = p.SentenceID - prevSent
		}
		buf = appendUvarint(buf, scratch[:], uint64(sentField))
		beginField := p.BeginChar
		if sameDocSent {
			beginField = p.BeginChar - prevBegin
		}
		buf = appendUvarint(buf, scratch[:], uint64(beginField))
		buf = binary.LittleEndian.AppendUint16(buf, uint16(span))
		buf = binary.LittleEndian.AppendUint32(buf, uint32(int32(p.Timestamp)))
		buf = appendUvarint(buf, scratch[:], uint64(sp.AnnotationType))
		buf = appendUvarint(buf, scratch[:], uint64(sp.SynonymID))

		prevDoc, prevSent, prevBegin = p.DocumentID, p.SentenceID, p.BeginChar
	}
	return buf, nil
}

// DeserializeStitch decodes SerializeStitch's format.
func DeserializeStitch(data []byte) (*StitchList, error) {
	if len(data) < 4 {
		return nil, xerr.New(xerr.KindCorruptPosting, "posting.DeserializeStitch", fmt.Errorf("buffer too short: %d bytes", len(data)))
	}
	count := binary.LittleEndian.Uint32(data)
	rest := data[4:]

	out := make([]position.Stitch, 0, count)
	var prevDoc, prevSent, prevBegin uint32
	for i := uint32(0); i < count; i++ {
		docDelta, n, err := readUvarint(rest)
		if err != nil {
			return nil, xerr.New(xerr.KindCorruptPosting, "posting.DeserializeStitch", err)
		}
		rest = rest[n:]
		sentField, n, err := readUvarint(rest)
		if err != nil {
			return nil, xerr.New(xerr.KindCorruptPosting, "posting.DeserializeStitch", err)
		}
		rest = rest[n:]
		beginField, n, err := readUvarint(rest)
		if err != nil {
			return nil, xerr.New(xerr.KindCorruptPosting, "posting.DeserializeStitch", err)
		}
		rest = rest[n:]
		if len(rest) < 6 {
			return nil, xerr.New(xerr.KindCorruptPosting, "posting.DeserializeStitch", fmt.Errorf("truncated tail at record %d", i))
		}
		length := binary.LittleEndian.Uint16(rest)
		days := int32(binary.LittleEndian.Uint32(rest[2:]))
		rest = rest[6:]
		annType, n, err := readUvarint(rest)
		if err != nil {
			return nil, xerr.New(xerr.KindCorruptPosting, "posting.DeserializeStitch", err)
		}
		rest = rest[n:]
		synID, n, err := readUvarint(rest)
		if err != nil {
			return nil, xerr.New(xerr.KindCorruptPosting, "posting.DeserializeStitch", err)
		}
		rest = rest[n:]

		doc := prevDoc + uint32(docDelta)
		sameDoc := i > 0 && doc == prevDoc
		var sent uint32
		if sameDoc {
			sent = prevSent + uint32(sentField)
		} else {
			sent = uint32(sentField)
		}
		sameDocSent := sameDoc && sent == prevSent
		var begin uint32
		if sameDocSent {
			begin = prevBegin + uint32(beginField)
		} else {
			begin = uint32(beginField)
		}
		end := begin + uint32(length)

		out = append(out, position.Stitch{
			Position: position.Position{
				DocumentID: doc,
				SentenceID: sent,
				BeginChar:  begin,
				EndChar:    end,
				Timestamp:  position.Date(days),
			},
			AnnotationType: position.AnnotationType(annType),
			SynonymID:      uint32(synID),
		})
		prevDoc, prevSent, prevBegin = doc, sent, begin
	}
	if len(rest) != 0 {
		return nil, xerr.New(xerr.KindCorruptPosting, "posting.DeserializeStitch", fmt.Errorf("%d trailing bytes", len(rest)))
	}
	return &StitchList{positions: out}, nil
}
