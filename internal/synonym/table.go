// Package synonym implements SynonymTable (spec §4.2): a persistent,
// bidirectional (namespace, string) <-> int32 mapping used to shrink
// repeated date/NER/POS/dependency strings into small surrogate ids for the
// STITCH index.
//
// IDs are assigned via a read-mostly, copy-on-write snapshot per namespace
// so get_or_create is lock-free on the hit path and only takes the
// namespace's insert lock when a new id must be minted (spec §4.2, §5:
// "lock-free on the read path, locked on the insert path").
package synonym

import (
	"fmt"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/fredrikaaa/chronoidx/internal/position"
	"github.com/fredrikaaa/chronoidx/internal/xerr"
	"github.com/fredrikaaa/chronoidx/internal/xlog"
)

// Reserved is the id meaning "absent". Real ids are assigned starting at 1
// and are never reused.
const Reserved uint32 = 0

type snapshot struct {
	forward map[string]uint32
	reverse map[uint32]string
}

func emptySnapshot() *snapshot {
	return &snapshot{forward: make(map[string]uint32), reverse: make(map[uint32]string)}
}

func (s *snapshot) clone() *snapshot {
	out := &snapshot{
		forward: make(map[string]uint32, len(s.forward)+1),
		reverse: make(map[uint32]string, len(s.reverse)+1),
	}
	for k, v := range s.forward {
		out.forward[k] = v
	}
	for k, v := range s.reverse {
		out.reverse[k] = v
	}
	return out
}

type nsState struct {
	snap      atomic.Pointer[snapshot]
	mu        sync.Mutex // guards inserts and the dirty/nextID below
	nextID    uint32
	dirty     []record
	hotCache  *lru.Cache[string, uint32]
	backend   backend
}

type record struct {
	value string
	id    uint32
}

// Table is the SynonymTable: one isolated id space per Namespace.
type Table struct {
	log xlog.Logger
	ns  [int(namespaceCount)]*nsState
}

// Open loads (or creates) a SynonymTable rooted at dir (the index
// directory's "synonyms/" subdirectory). Every namespace file present is
// replayed to rebuild the in-memory snapshot; entries written after the
// last flush() before a crash are, by construction, absent from the file
// and so are rolled back (spec §4.2 invariant).
func Open(dir string, log xlog.Logger) (*Table, error) {
	t := &Table{log: log}
	for i := 0; i < int(namespaceCount); i++ {
		ns := Namespace(i)
		b, err := openFileBackend(dir, ns)
		if err != nil {
			return nil, fmt.Errorf("synonym: open namespace %s: %w", ns, err)
		}
		st := &nsState{backend: b}
		snap, nextID, err := b.load()
		if err != nil {
			return nil, fmt.Errorf("synonym: load namespace %s: %w", ns, err)
		}
		st.snap.Store(snap)
		st.nextID = nextID
		cache, _ := lru.New[string, uint32](4096)
		st.hotCache = cache
		t.ns[i] = st
	}
	return t, nil
}

// GetOrCreate is atomic: it returns value's existing id in namespace ns, or
// assigns and returns a new one. Date values must be a legal YYYY-MM-DD
// calendar date; other namespaces accept any non-empty string.
func (t *Table) GetOrCreate(ns Namespace, value string) (uint32, error) {
	if value == "" {
		return 0, xerr.New(xerr.KindInvalidDate, "synonym.GetOrCreate", fmt.Errorf("empty value in namespace %s", ns))
	}
	if ns == Date {
		if _, err := position.ParseDate(value); err != nil {
			return 0, xerr.New(xerr.KindInvalidDate, "synonym.GetOrCreate", err)
		}
	}

	st := t.ns[ns]

	if id, ok := st.hotCache.Get(value); ok {
		return id, nil
	}
	if snap := st.snap.Load(); snap != nil {
		if id, ok := snap.forward[value]; ok {
			st.hotCache.Add(value, id)
			return id, nil
		}
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	// Re-check under the lock: another goroutine may have inserted value
	// while we waited.
	cur := st.snap.Load()
	if cur == nil {
		cur = emptySnapshot()
	}
	if id, ok := cur.forward[value]; ok {
		return id, nil
	}

	st.nextID++
	id := st.nextID
	next := cur.clone()
	next.forward[value] = id
	next.reverse[id] = value
	st.snap.Store(next)
	st.dirty = append(st.dirty, record{value: value, id: id})
	st.hotCache.Add(value, id)
	return id, nil
}

// Lookup returns the string assigned to id in namespace ns, if any.
func (t *Table) Lookup(ns Namespace, id uint32) (string, bool) {
	snap := t.ns[ns].snap.Load()
	if snap == nil {
		return "", false
	}
	v, ok := snap.reverse[id]
	return v, ok
}

// Flush persists every namespace's pending inserts to disk. Only flushed
// ids survive a crash-restart.
func (t *Table) Flush() error {
	for i := 0; i < int(namespaceCount); i++ {
		st := t.ns[i]
		st.mu.Lock()
		pending := st.dirty
		st.dirty = nil
		err := st.backend.append(pending)
		st.mu.Unlock()
		if err != nil {
			return fmt.Errorf("synonym: flush namespace %s: %w", Namespace(i), err)
		}
	}
	return nil
}

// Close releases the underlying files without flushing pending inserts.
func (t *Table) Close() error {
	var firstErr error
	for i := 0; i < int(namespaceCount); i++ {
		if err := t.ns[i].backend.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
