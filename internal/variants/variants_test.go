package variants

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fredrikaaa/chronoidx/internal/generator"
	"github.com/fredrikaaa/chronoidx/internal/position"
	"github.com/fredrikaaa/chronoidx/internal/synonym"
	"github.com/fredrikaaa/chronoidx/internal/textnorm"
	"github.com/fredrikaaa/chronoidx/internal/xlog"
)

func newTestContext(t *testing.T) *generator.SpecContext {
	t.Helper()
	tbl, err := synonym.Open(t.TempDir(), xlog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { tbl.Close() })
	return &generator.SpecContext{Stopwords: textnorm.Empty(), Synonyms: tbl, Log: xlog.Nop()}
}

func TestUnigramFiltersStopwords(t *testing.T) {
	spec := NewUnigramSpec(nil, nil)
	stopwords, err := writeStopwords(t, "the")
	require.NoError(t, err)
	sc := &generator.SpecContext{Stopwords: stopwords}

	rows := []generator.Row{
		{DocumentID: 1, SentenceID: 0, BeginChar: 0, EndChar: 3, Lemma: "the", HasLemma: true},
		{DocumentID: 1, SentenceID: 0, BeginChar: 4, EndChar: 8, Lemma: "Cat", HasLemma: true},
	}
	entries, skipped, err := spec.DeriveKeys(rows, sc)
	require.NoError(t, err)
	require.Equal(t, 1, skipped)
	require.Len(t, entries, 1)
	require.Equal(t, "cat", entries[0].Key)
}

func writeStopwords(t *testing.T, words ...string) (*textnorm.Stopwords, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stopwords.txt")
	content := ""
	for _, w := range words {
		content += w + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return textnorm.LoadStopwords(path)
}

func TestBigramNeverCrossesSentenceBoundary(t *testing.T) {
	spec := NewBigramSpec(nil, nil)
	sc := &generator.SpecContext{Stopwords: textnorm.Empty()}

	rows := []generator.Row{
		{DocumentID: 1, SentenceID: 0, BeginChar: 0, EndChar: 3, Token: "a", HasToken: true, Lemma: "a", HasLemma: true},
		{DocumentID: 1, SentenceID: 1, BeginChar: 0, EndChar: 3, Token: "b", HasToken: true, Lemma: "b", HasLemma: true},
	}
	entries, _, err := spec.DeriveKeys(rows, sc)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestNERMergesAdjacentMentionTokens(t *testing.T) {
	spec := NewNERSpec(nil, nil)
	sc := &generator.SpecContext{Stopwords: textnorm.Empty()}

	rows := []generator.Row{
		{DocumentID: 1, SentenceID: 0, BeginChar: 0, EndChar: 3, Token: "New", HasToken: true, NER: "GPE", HasNER: true},
		{DocumentID: 1, SentenceID: 0, BeginChar: 4, EndChar: 8, Token: "York", HasToken: true, NER: "GPE", HasNER: true},
	}
	entries, skipped, err := spec.DeriveKeys(rows, sc)
	require.NoError(t, err)
	require.Equal(t, 0, skipped)
	require.Len(t, entries, 1)
	require.Equal(t, textnorm.Join("GPE", "new york"), entries[0].Key)
	require.Equal(t, uint32(0), entries[0].Pos.BeginChar)
	require.Equal(t, uint32(8), entries[0].Pos.EndChar)
}

func TestStitchPairsLemmaWithCoOccurringPOS(t *testing.T) {
	spec := NewStitchSpec(nil, nil)
	sc := newTestContext(t)

	rows := []generator.Row{
		{DocumentID: 1, SentenceID: 0, BeginChar: 0, EndChar: 3, Lemma: "run", HasLemma: true, POS: "VERB", HasPOS: true},
	}
	entries, skipped, err := spec.DeriveKeys(rows, sc)
	require.NoError(t, err)
	require.Equal(t, 0, skipped)
	require.Len(t, entries, 1)
	require.Equal(t, textnorm.Join("run", position.AnnotationPOS.String()), entries[0].Key)
	require.True(t, entries[0].IsStitch)
	require.NotEqual(t, synonym.Reserved, entries[0].SynonymID)
}

func TestStitchPairsLemmaWithBothNERAndPOSOnSameRow(t *testing.T) {
	spec := NewStitchSpec(nil, nil)
	sc := newTestContext(t)

	rows := []generator.Row{
		{DocumentID: 1, SentenceID: 0, BeginChar: 0, EndChar: 3, Lemma: "paris", HasLemma: true,
			POS: "PROPN", HasPOS: true, NER: "GPE", HasNER: true},
	}
	entries, skipped, err := spec.DeriveKeys(rows, sc)
	require.NoError(t, err)
	require.Equal(t, 0, skipped)
	require.Len(t, entries, 2)

	var keys []string
	for _, e := range entries {
		keys = append(keys, e.Key)
		require.True(t, e.IsStitch)
		require.NotEqual(t, synonym.Reserved, e.SynonymID)
	}
	require.ElementsMatch(t, []string{
		textnorm.Join("paris", position.AnnotationNER.String()),
		textnorm.Join("paris", position.AnnotationPOS.String()),
	}, keys)
}
