package synonym

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// backend persists one namespace's (value, id) assignments as an
// append-only log: varint-length-prefixed UTF-8 bytes followed by a
// little-endian uint32 id, repeated. Replaying the whole file on open
// reconstructs the namespace's forward/reverse maps and next id.
type backend interface {
	load() (*snapshot, uint32, error)
	append(records []record) error
	close() error
}

type fileBackend struct {
	f *os.File
}

func openFileBackend(dir string, ns Namespace) (backend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	path := filepath.Join(dir, ns.fileName())
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &fileBackend{f: f}, nil
}

func (b *fileBackend) load() (*snapshot, uint32, error) {
	if _, err := b.f.Seek(0, io.SeekStart); err != nil {
		return nil, 0, err
	}
	snap := emptySnapshot()
	var nextID uint32
	r := bufio.NewReader(b.f)
	var lenBuf [binary.MaxVarintLen64]byte
	for {
		strLen, err := binary.ReadUvarint(r)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read length prefix: %w", err)
		}
		_ = lenBuf
		valBytes := make([]byte, strLen)
		if _, err := io.ReadFull(r, valBytes); err != nil {
			return nil, 0, fmt.Errorf("read value: %w", err)
		}
		var idBytes [4]byte
		if _, err := io.ReadFull(r, idBytes[:]); err != nil {
			return nil, 0, fmt.Errorf("read id: %w", err)
		}
		id := binary.LittleEndian.Uint32(idBytes[:])
		value := string(valBytes)
		snap.forward[value] = id
		snap.reverse[id] = value
		if id > nextID {
			nextID = id
		}
	}
	if _, err := b.f.Seek(0, io.SeekEnd); err != nil {
		return nil, 0, err
	}
	return snap, nextID, nil
}

func (b *fileBackend) append(records []record) error {
	if len(records) == 0 {
		return nil
	}
	var scratch [binary.MaxVarintLen64]byte
	buf := make([]byte, 0, len(records)*16)
	for _, rec := range records {
		n := binary.PutUvarint(scratch[:], uint64(len(rec.value)))
		buf = append(buf, scratch[:n]...)
		buf = append(buf, rec.value...)
		buf = binary.LittleEndian.AppendUint32(buf, rec.id)
	}
	if _, err := b.f.Write(buf); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return b.f.Sync()
}

func (b *fileBackend) close() error {
	return b.f.Close()
}
