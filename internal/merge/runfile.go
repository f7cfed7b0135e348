// Package merge implements RunFile spill I/O and the ExternalMerger (spec
// §4.6): every processed partition's posting lists are spilled to a sorted,
// compressed RunFile on disk; once every partition has produced its runs,
// the ExternalMerger performs a
// k-way merge to produce the final sorted stream per index key.
//
// A RunFile is a sorted sequence of (key, serialized PostingList) records
// grouped into fixed-size blocks, each snappy-compressed independently
// (golang/snappy, the same block codec the KVStore uses for its values),
// followed by a zstd-compressed footer of (first key, block offset) pairs
// enabling random seek into the file without a full linear scan, and a
// fixed 8-byte trailer pointing at the footer. zstd is used for the
// footer, not the data blocks: the footer is read once per merge pass
// (favoring zstd's ratio), while data blocks are the hot path during the
// merge's linear scan (favoring snappy's speed).
package merge

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
)

// blockRecords bounds how many entries accumulate in memory before a
// block is flushed, trading seek granularity for compression overhead.
const blockRecords = 256

// footerEntry records a block's first key and its byte offset in the
// RunFile, the unit the seek index is built from.
type footerEntry struct {
	key    string
	offset int64
}

// RunWriter appends sorted (key, value) entries to a new RunFile.
type RunWriter struct {
	f       *os.File
	bw      *bufio.Writer
	offset  int64
	count   uint64
	lastKey string

	block       bytes.Buffer
	blockCount  int
	blockStart  string
	footer      []footerEntry
	scratch     [binary.MaxVarintLen64]byte
}

// CreateRunWriter creates (truncating if present) a RunFile at path.
func CreateRunWriter(path string) (*RunWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("merge: create run file %s: %w", path, err)
	}
	return &RunWriter{f: f, bw: bufio.NewWriter(f)}, nil
}

// WriteEntry appends one (key, value) pair. Keys must be supplied in
// strictly non-decreasing order; violating this corrupts the merge
// invariant silently, so WriteEntry checks it explicitly.
func (w *RunWriter) WriteEntry(key string, value []byte) error {
	if w.count > 0 && key < w.lastKey {
		return fmt.Errorf("merge: out-of-order key %q after %q", key, w.lastKey)
	}
	if w.blockCount == 0 {
		w.blockStart = key
	}

	writeUvarint(&w.block, uint64(len(key)))
	w.block.WriteString(key)
	writeUvarint(&w.block, uint64(len(value)))
	w.block.Write(value)

	w.lastKey = key
	w.count++
	w.blockCount++

	if w.blockCount >= blockRecords {
		return w.flushBlock()
	}
	return nil
}

func writeUvarint(buf *bytes.Buffer, v uint64) {
	var scratch [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(scratch[:], v)
	buf.Write(scratch[:n])
}

// flushBlock snappy-compresses the pending block and writes it as
// (uvarint compressedLen, compressed bytes), recording its offset and
// first key in the in-memory footer index.
func (w *RunWriter) flushBlock() error {
	if w.blockCount == 0 {
		return nil
	}
	compressed := snappy.Encode(nil, w.block.Bytes())

	n := binary.PutUvarint(w.scratch[:], uint64(len(compressed)))
	if _, err := w.bw.Write(w.scratch[:n]); err != nil {
		return fmt.Errorf("merge: write block length: %w", err)
	}
	if _, err := w.bw.Write(compressed); err != nil {
		return fmt.Errorf("merge: write block: %w", err)
	}

	w.footer = append(w.footer, footerEntry{key: w.blockStart, offset: w.offset})
	w.offset += int64(n) + int64(len(compressed))

	w.block.Reset()
	w.blockCount = 0
	return nil
}

// Count returns the number of entries written so far.
func (w *RunWriter) Count() uint64 { return w.count }

// Close flushes the final block, writes the zstd-compressed footer and
// trailer, and closes the underlying file.
func (w *RunWriter) Close() error {
	if err := w.flushBlock(); err != nil {
		w.f.Close()
		return err
	}

	footerOffset := w.offset
	var raw bytes.Buffer
	writeUvarint(&raw, uint64(len(w.footer)))
	for _, e := range w.footer {
		writeUvarint(&raw, uint64(len(e.key)))
		raw.WriteString(e.key)
		var off [8]byte
		binary.BigEndian.PutUint64(off[:], uint64(e.offset))
		raw.Write(off[:])
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		w.f.Close()
		return fmt.Errorf("merge: new zstd encoder: %w", err)
	}
	compressedFooter := enc.EncodeAll(raw.Bytes(), nil)
	enc.Close()

	if _, err := w.bw.Write(compressedFooter); err != nil {
		w.f.Close()
		return fmt.Errorf("merge: write footer: %w", err)
	}

	var trailer [8]byte
	binary.BigEndian.PutUint64(trailer[:], uint64(footerOffset))
	if _, err := w.bw.Write(trailer[:]); err != nil {
		w.f.Close()
		return fmt.Errorf("merge: write trailer: %w", err)
	}

	if err := w.bw.Flush(); err != nil {
		w.f.Close()
		return fmt.Errorf("merge: flush: %w", err)
	}
	return w.f.Close()
}

// RunReader streams (key, value) entries back out of a RunFile in the
// order WriteEntry produced them, and supports seeking directly to the
// block covering a given key via the footer's (key, offset) index.
type RunReader struct {
	f      *os.File
	footer []footerEntry

	br      *bufio.Reader
	block   *bytes.Reader
	dataEnd int64
}

// OpenRunReader opens an existing RunFile, reading and decompressing its
// footer up front so Seek can binary-search it without further I/O.
func OpenRunReader(path string) (*RunReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("merge: open run file %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("merge: stat run file %s: %w", path, err)
	}
	size := info.Size()
	if size < 8 {
		f.Close()
		return nil, fmt.Errorf("merge: run file %s too small to contain a trailer", path)
	}

	var trailer [8]byte
	if _, err := f.ReadAt(trailer[:], size-8); err != nil {
		f.Close()
		return nil, fmt.Errorf("merge: read trailer: %w", err)
	}
	footerOffset := int64(binary.BigEndian.Uint64(trailer[:]))

	footerBytes := make([]byte, size-8-footerOffset)
	if _, err := f.ReadAt(footerBytes, footerOffset); err != nil {
		f.Close()
		return nil, fmt.Errorf("merge: read footer: %w", err)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("merge: new zstd decoder: %w", err)
	}
	raw, err := dec.DecodeAll(footerBytes, nil)
	dec.Close()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("merge: decode footer: %w", err)
	}

	footer, err := parseFooter(raw)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("merge: parse footer: %w", err)
	}

	r := &RunReader{f: f, footer: footer, dataEnd: footerOffset}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, fmt.Errorf("merge: seek start: %w", err)
	}
	r.br = bufio.NewReader(io.NewSectionReader(f, 0, footerOffset))
	return r, nil
}

func parseFooter(raw []byte) ([]footerEntry, error) {
	br := bytes.NewReader(raw)
	n, err := binary.ReadUvarint(br)
	if err != nil {
		return nil, fmt.Errorf("read entry count: %w", err)
	}
	entries := make([]footerEntry, 0, n)
	for i := uint64(0); i < n; i++ {
		keyLen, err := binary.ReadUvarint(br)
		if err != nil {
			return nil, fmt.Errorf("read key length: %w", err)
		}
		keyBuf := make([]byte, keyLen)
		if _, err := io.ReadFull(br, keyBuf); err != nil {
			return nil, fmt.Errorf("read key: %w", err)
		}
		var off [8]byte
		if _, err := io.ReadFull(br, off[:]); err != nil {
			return nil, fmt.Errorf("read offset: %w", err)
		}
		entries = append(entries, footerEntry{key: string(keyBuf), offset: int64(binary.BigEndian.Uint64(off[:]))})
	}
	return entries, nil
}

// Next returns the next (key, value) pair, or io.EOF once exhausted,
// decompressing one block at a time as the current block is consumed.
func (r *RunReader) Next() (string, []byte, error) {
	if r.block == nil || r.block.Len() == 0 {
		if err := r.nextBlock(); err != nil {
			return "", nil, err
		}
	}
	return readEntry(r.block)
}

func (r *RunReader) nextBlock() error {
	compressedLen, err := binary.ReadUvarint(r.br)
	if err == io.EOF {
		return io.EOF
	}
	if err != nil {
		return fmt.Errorf("merge: read block length: %w", err)
	}
	compressed := make([]byte, compressedLen)
	if _, err := io.ReadFull(r.br, compressed); err != nil {
		return fmt.Errorf("merge: read block: %w", err)
	}
	raw, err := snappy.Decode(nil, compressed)
	if err != nil {
		return fmt.Errorf("merge: decompress block: %w", err)
	}
	r.block = bytes.NewReader(raw)
	return nil
}

func readEntry(br *bytes.Reader) (string, []byte, error) {
	keyLen, err := binary.ReadUvarint(br)
	if err != nil {
		return "", nil, fmt.Errorf("merge: read key length: %w", err)
	}
	keyBuf := make([]byte, keyLen)
	if _, err := io.ReadFull(br, keyBuf); err != nil {
		return "", nil, fmt.Errorf("merge: read key: %w", err)
	}
	valLen, err := binary.ReadUvarint(br)
	if err != nil {
		return "", nil, fmt.Errorf("merge: read value length: %w", err)
	}
	valBuf := make([]byte, valLen)
	if _, err := io.ReadFull(br, valBuf); err != nil {
		return "", nil, fmt.Errorf("merge: read value: %w", err)
	}
	return string(keyBuf), valBuf, nil
}

// Seek repositions the reader at the start of the block that may contain
// key (the last block whose first key is <= key), so a subsequent Next
// sequence finds key without scanning blocks before it. It is a random
// lookup, not a guarantee key is present.
func (r *RunReader) Seek(key string) error {
	if len(r.footer) == 0 {
		return fmt.Errorf("merge: run file has no blocks")
	}
	idx := sort.Search(len(r.footer), func(i int) bool { return r.footer[i].key > key })
	if idx == 0 {
		idx = 1
	}
	target := r.footer[idx-1]

	end := r.dataEnd
	r.br = bufio.NewReader(io.NewSectionReader(r.f, target.offset, end-target.offset))
	r.block = nil
	return nil
}

// Close releases the file.
func (r *RunReader) Close() error {
	return r.f.Close()
}
