package textnorm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeLowercasesAndTrims(t *testing.T) {
	require.Equal(t, "hello", Normalize("  HELLO  "))
	require.Equal(t, "café", Normalize("CAFÉ"))
}

func TestJoin(t *testing.T) {
	require.Equal(t, "quick\x00brown\x00fox", Join("quick", "brown", "fox"))
}

func TestLoadStopwords(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stop.txt")
	require.NoError(t, os.WriteFile(path, []byte("# comment\nThe\n\nAnd\n"), 0o644))

	sw, err := LoadStopwords(path)
	require.NoError(t, err)
	require.True(t, sw.Contains("the"))
	require.True(t, sw.Contains("and"))
	require.False(t, sw.Contains("quick"))
}

func TestEmptyStopwordsContainsNothing(t *testing.T) {
	sw := Empty()
	require.False(t, sw.Contains("the"))
}
