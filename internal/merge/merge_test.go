package merge

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeRun(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	w, err := CreateRunWriter(path)
	require.NoError(t, err)
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	// RunWriter requires keys in sorted order; map iteration order is random.
	sort.Strings(keys)
	for _, k := range keys {
		require.NoError(t, w.WriteEntry(k, []byte(entries[k])))
	}
	require.NoError(t, w.Close())
}

func concatCombine(key string, values [][]byte) ([]byte, error) {
	return bytes.Join(values, []byte("|")), nil
}

func TestRunFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.run")
	w, err := CreateRunWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.WriteEntry("apple", []byte("1")))
	require.NoError(t, w.WriteEntry("banana", []byte("2")))
	require.NoError(t, w.Close())

	r, err := OpenRunReader(path)
	require.NoError(t, err)
	defer r.Close()

	k, v, err := r.Next()
	require.NoError(t, err)
	require.Equal(t, "apple", k)
	require.Equal(t, []byte("1"), v)

	k, v, err = r.Next()
	require.NoError(t, err)
	require.Equal(t, "banana", k)
	require.Equal(t, []byte("2"), v)

	_, _, err = r.Next()
	require.Error(t, err)
}

func TestRunFileSeekFindsCoveringBlock(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "many.run")
	w, err := CreateRunWriter(path)
	require.NoError(t, err)

	const n = blockRecords*3 + 17 // force several blocks
	keys := make([]string, n)
	for i := 0; i < n; i++ {
		keys[i] = fmt.Sprintf("k%05d", i)
		require.NoError(t, w.WriteEntry(keys[i], []byte(keys[i])))
	}
	require.NoError(t, w.Close())

	r, err := OpenRunReader(path)
	require.NoError(t, err)
	defer r.Close()

	target := keys[2*blockRecords+3]
	require.NoError(t, r.Seek(target))

	var found bool
	for {
		k, v, err := r.Next()
		if err != nil {
			break
		}
		if k == target {
			require.Equal(t, target, string(v))
			found = true
			break
		}
	}
	require.True(t, found, "Seek(%q) should land at or before its block so a forward scan finds it", target)
}

func TestMergeIntoTwoWay(t *testing.T) {
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a.run")
	pathB := filepath.Join(dir, "b.run")

	wa, err := CreateRunWriter(pathA)
	require.NoError(t, err)
	require.NoError(t, wa.WriteEntry("apple", []byte("a1")))
	require.NoError(t, wa.WriteEntry("cherry", []byte("a2")))
	require.NoError(t, wa.Close())

	wb, err := CreateRunWriter(pathB)
	require.NoError(t, err)
	require.NoError(t, wb.WriteEntry("apple", []byte("b1")))
	require.NoError(t, wb.WriteEntry("banana", []byte("b2")))
	require.NoError(t, wb.Close())

	ra, err := OpenRunReader(pathA)
	require.NoError(t, err)
	rb, err := OpenRunReader(pathB)
	require.NoError(t, err)

	var gotKeys []string
	var gotVals []string
	err = MergeInto(context.Background(), []*RunReader{ra, rb}, concatCombine, func(key string, value []byte) error {
		gotKeys = append(gotKeys, key)
		gotVals = append(gotVals, string(value))
		return nil
	})
	require.NoError(t, err)
	ra.Close()
	rb.Close()

	require.Equal(t, []string{"apple", "banana", "cherry"}, gotKeys)
	require.Equal(t, []string{"a1|b1", "b2", "a2"}, gotVals)
}

func TestMergeRunFilesCascades(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	letters := []string{"a", "b", "c", "d", "e"}
	for i, l := range letters {
		p := filepath.Join(dir, l+".run")
		w, err := CreateRunWriter(p)
		require.NoError(t, err)
		require.NoError(t, w.WriteEntry(l, []byte{byte(i)}))
		require.NoError(t, w.Close())
		paths = append(paths, p)
	}

	m := New(2, dir) // force cascading with a tiny fan-in
	outPath := filepath.Join(dir, "final.run")
	intermediates, err := m.MergeRunFiles(context.Background(), paths, outPath, concatCombine)
	require.NoError(t, err)
	require.NotEmpty(t, intermediates)

	r, err := OpenRunReader(outPath)
	require.NoError(t, err)
	defer r.Close()
	var keys []string
	for {
		k, _, err := r.Next()
		if err != nil {
			break
		}
		keys = append(keys, k)
	}
	require.Equal(t, letters, keys)
}
