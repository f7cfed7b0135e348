package kvstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.db")
	s, err := Open(path, Options{ReadCacheSize: 64})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.EnsureBucket("UNIGRAM"))
	return s
}

func TestPutGetRoundTrip(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Put("UNIGRAM", "obama", []byte("payload-bytes")))

	v, ok, err := s.Get("UNIGRAM", "obama")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("payload-bytes"), v)

	_, ok, err = s.Get("UNIGRAM", "missing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestWriteBatchAndRangeScan(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.WriteBatch("UNIGRAM", map[string][]byte{
		"apple":  []byte("a"),
		"apply":  []byte("b"),
		"banana": []byte("c"),
	}))

	var keys []string
	err := s.RangeScan("UNIGRAM", []byte("app"), func(key string, value []byte) error {
		keys = append(keys, key)
		return nil
	})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"apple", "apply"}, keys)

	n, err := s.RecordCount("UNIGRAM")
	require.NoError(t, err)
	require.Equal(t, 3, n)
}

func TestBulkLoadMode(t *testing.T) {
	s := openTestStore(t)
	s.BeginBulkLoad()
	require.NoError(t, s.Put("UNIGRAM", "a", []byte("1")))
	s.EndBulkLoad()

	v, ok, err := s.Get("UNIGRAM", "a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("1"), v)
}
