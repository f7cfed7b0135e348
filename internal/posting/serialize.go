package posting

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/fredrikaaa/chronoidx/internal/position"
	"github.com/fredrikaaa/chronoidx/internal/xerr"
)

// Serialize encodes a List per spec §4.1: a u32 count followed by, for each
// Position, a varint doc_id_delta, a varint sent_id (reset per document), a
// varint begin_delta (reset per document+sentence), a u16 span length
// (end-begin), and a little-endian i32 days-since-epoch timestamp.
//
// The guarantee is bit-exact round-trip (Deserialize(Serialize(x)) == x);
// the exact varint/delta scheme is this implementation's choice, as the
// spec permits any lossless encoding.
func Serialize(l *List) ([]byte, error) {
	buf := make([]byte, 4, 4+l.Len()*12)
	binary.LittleEndian.PutUint32(buf, uint32(l.Len()))

	var prevDoc, prevSent, prevBegin uint32
	var varintScratch [binary.MaxVarintLen64]byte
	for i, p := range l.positions {
		span := p.EndChar - p.BeginChar
		if span > math.MaxUint16 {
			return nil, fmt.Errorf("posting: span %d exceeds u16 at index %d", span, i)
		}

		sameDoc := i > 0 && p.DocumentID == prevDoc
		sameDocSent := sameDoc && p.SentenceID == prevSent

		docDelta := p.DocumentID - prevDoc
		buf = appendUvarint(buf, varintScratch[:], uint64(docDelta))

		sentField := p.SentenceID
		if sameDoc {
			sentField = p.SentenceID - prevSent
		}
		buf = appendUvarint(buf, varintScratch[:], uint64(sentField))

		beginField := p.BeginChar
		if sameDocSent {
			beginField = p.BeginChar - prevBegin
		}
		buf = appendUvarint(buf, varintScratch[:], uint64(beginField))

		buf = binary.LittleEndian.AppendUint16(buf, uint16(span))
		buf = binary.LittleEndian.AppendUint32(buf, uint32(int32(p.Timestamp)))

		prevDoc, prevSent, prevBegin = p.DocumentID, p.SentenceID, p.BeginChar
	}
	return buf, nil
}

func appendUvarint(buf []byte, scratch []byte, v uint64) []byte {
	n := binary.PutUvarint(scratch, v)
	return append(buf, scratch[:n]...)
}

// Deserialize decodes a List from Serialize's format. Malformed input
// (truncated buffer, trailing garbage) yields xerr.KindCorruptPosting.
func Deserialize(data []byte) (*List, error) {
	if len(data) < 4 {
		return nil, xerr.New(xerr.KindCorruptPosting, "posting.Deserialize", fmt.Errorf("buffer too short: %d bytes", len(data)))
	}
	count := binary.LittleEndian.Uint32(data)
	rest := data[4:]

	positions := make([]position.Position, 0, count)
	var prevDoc, prevSent, prevBegin uint32
	for i := uint32(0); i < count; i++ {
		docDelta, n, err := readUvarint(rest)
		if err != nil {
			return nil, xerr.New(xerr.KindCorruptPosting, "posting.Deserialize", fmt.Errorf("doc delta at record %d: %w", i, err))
		}
		rest = rest[n:]

		sentField, n, err := readUvarint(rest)
		if err != nil {
			return nil, xerr.New(xerr.KindCorruptPosting, "posting.Deserialize", fmt.Errorf("sent field at record %d: %w", i, err))
		}
		rest = rest[n:]

		beginField, n, err := readUvarint(rest)
		if err != nil {
			return nil, xerr.New(xerr.KindCorruptPosting, "posting.Deserialize", fmt.Errorf("begin field at record %d: %w", i, err))
		}
		rest = rest[n:]

		if len(rest) < 6 {
			return nil, xerr.New(xerr.KindCorruptPosting, "posting.Deserialize", fmt.Errorf("truncated tail at record %d", i))
		}
		length := binary.LittleEndian.Uint16(rest)
		days := int32(binary.LittleEndian.Uint32(rest[2:]))
		rest = rest[6:]

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

		positions = append(positions, position.Position{
			DocumentID: doc,
			SentenceID: sent,
			BeginChar:  begin,
			EndChar:    end,
			Timestamp:  position.Date(days),
		})
		prevDoc, prevSent, prevBegin = doc, sent, begin
	}
	if len(rest) != 0 {
		return nil, xerr.New(xerr.KindCorruptPosting, "posting.Deserialize", fmt.Errorf("%d trailing bytes", len(rest)))
	}
	return FromSorted(positions), nil
}

func readUvarint(buf []byte) (uint64, int, error) {
	v, n := binary.Uvarint(buf)
	if n <= 0 {
		return 0, 0, fmt.Errorf("malformed varint")
	}
	return v, n, nil
}
