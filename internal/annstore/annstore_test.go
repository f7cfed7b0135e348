package annstore

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fredrikaaa/chronoidx/internal/position"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "ann.db"))
	require.NoError(t, err)
	require.NoError(t, s.Ensure(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func TestFetchAnnotationsOrderedAndPaginated(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	ts := position.MustParseDate("2024-01-01")
	require.NoError(t, s.InsertDocument(ctx, 1, ts))
	require.NoError(t, s.InsertAnnotation(ctx, AnnotationRow{DocumentID: 1, SentenceID: 0, BeginChar: 10, EndChar: 15, Lemma: sql.NullString{String: "second", Valid: true}}))
	require.NoError(t, s.InsertAnnotation(ctx, AnnotationRow{DocumentID: 1, SentenceID: 0, BeginChar: 0, EndChar: 5, Lemma: sql.NullString{String: "first", Valid: true}}))

	rows, err := s.FetchAnnotations(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "first", rows[0].Lemma.String)
	require.Equal(t, "second", rows[1].Lemma.String)
	require.Equal(t, ts, rows[0].Timestamp)

	page, err := s.FetchAnnotations(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, "second", page[0].Lemma.String)
}

func TestFetchDependencies(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	ts := position.MustParseDate("2024-06-01")
	require.NoError(t, s.InsertDocument(ctx, 1, ts))
	require.NoError(t, s.InsertDependency(ctx, DependencyRow{
		DocumentID: 1, SentenceID: 0, BeginChar: 0, EndChar: 5,
		HeadToken: "ran", DependentToken: "dog", Relation: "nsubj",
	}))

	rows, err := s.FetchDependencies(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "nsubj", rows[0].Relation)
	require.Equal(t, ts, rows[0].Timestamp)
}
