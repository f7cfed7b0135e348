package synonym

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fredrikaaa/chronoidx/internal/xlog"
)

func TestGetOrCreateDeterministic(t *testing.T) {
	tbl, err := Open(t.TempDir(), xlog.Nop())
	require.NoError(t, err)
	defer tbl.Close()

	id1, err := tbl.GetOrCreate(NER, "Barack Obama")
	require.NoError(t, err)
	id2, err := tbl.GetOrCreate(NER, "Barack Obama")
	require.NoError(t, err)
	require.Equal(t, id1, id2)

	id3, err := tbl.GetOrCreate(NER, "Hillary Clinton")
	require.NoError(t, err)
	require.NotEqual(t, id1, id3)
}

func TestNamespaceIsolation(t *testing.T) {
	tbl, err := Open(t.TempDir(), xlog.Nop())
	require.NoError(t, err)
	defer tbl.Close()

	nerID, err := tbl.GetOrCreate(NER, "VBD")
	require.NoError(t, err)
	posID, err := tbl.GetOrCreate(POS, "VBD")
	require.NoError(t, err)
	require.NotEqual(t, nerID, posID, "same string in different namespaces must not collide")

	v, ok := tbl.Lookup(NER, nerID)
	require.True(t, ok)
	require.Equal(t, "VBD", v)
	v, ok = tbl.Lookup(POS, posID)
	require.True(t, ok)
	require.Equal(t, "VBD", v)
}

func TestDateNamespaceValidation(t *testing.T) {
	tbl, err := Open(t.TempDir(), xlog.Nop())
	require.NoError(t, err)
	defer tbl.Close()

	id, err := tbl.GetOrCreate(Date, "2024-03-14")
	require.NoError(t, err)
	require.NotZero(t, id)

	_, err = tbl.GetOrCreate(Date, "not-a-date")
	require.Error(t, err)

	_, err = tbl.GetOrCreate(Date, "2024-13-40")
	require.Error(t, err)
}

func TestFlushAndCrashRollback(t *testing.T) {
	dir := t.TempDir()
	tbl, err := Open(dir, xlog.Nop())
	require.NoError(t, err)

	flushedID, err := tbl.GetOrCreate(Dependency, "nsubj")
	require.NoError(t, err)
	require.NoError(t, tbl.Flush())

	unflushedID, err := tbl.GetOrCreate(Dependency, "dobj")
	require.NoError(t, err)
	require.NotEqual(t, flushedID, unflushedID)
	require.NoError(t, tbl.Close())

	// Reopen without ever flushing "dobj": it must be gone, and the id
	// space must not have skipped ahead for it.
	reopened, err := Open(dir, xlog.Nop())
	require.NoError(t, err)
	defer reopened.Close()

	_, ok := reopened.Lookup(Dependency, unflushedID)
	require.False(t, ok, "unflushed record must not survive restart")

	id, err := reopened.GetOrCreate(Dependency, "nsubj")
	require.NoError(t, err)
	require.Equal(t, flushedID, id, "flushed record must survive restart with the same id")

	newID, err := reopened.GetOrCreate(Dependency, "dobj")
	require.NoError(t, err)
	require.Equal(t, unflushedID, newID, "id is reassigned deterministically since nextID replays from the flushed log")
}
