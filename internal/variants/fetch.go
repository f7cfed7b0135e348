// Package variants implements the nine IndexSpec factories (spec §4.7):
// the filter/key-derivation rule for UNIGRAM, BIGRAM, TRIGRAM, POS, NER,
// NER_DATE, DEPENDENCY, HYPERNYM and STITCH, each wired to a
// generator.FetchFunc reading from the annotation store.
package variants

import (
	"context"

	"github.com/fredrikaaa/chronoidx/internal/annstore"
	"github.com/fredrikaaa/chronoidx/internal/generator"
)

// annotationRowToGeneric flattens an annstore.AnnotationRow into a
// generator.Row, carrying forward each nullable field's Has* flag.
func annotationRowToGeneric(r annstore.AnnotationRow) generator.Row {
	return generator.Row{
		DocumentID:       r.DocumentID,
		SentenceID:       r.SentenceID,
		BeginChar:        r.BeginChar,
		EndChar:          r.EndChar,
		Timestamp:        r.Timestamp,
		Token:            r.Token.String,
		HasToken:         r.Token.Valid,
		Lemma:            r.Lemma.String,
		HasLemma:         r.Lemma.Valid,
		POS:              r.POS.String,
		HasPOS:           r.POS.Valid,
		NER:              r.NER.String,
		HasNER:           r.NER.Valid,
		NormalizedNER:    r.NormalizedNER.String,
		HasNormalizedNER: r.NormalizedNER.Valid,
	}
}

// dependencyRowToGeneric flattens an annstore.DependencyRow into a
// generator.Row. head_token/dependent_token/relation are NOT NULL in the
// dependencies table, so no Has* flags are needed for them.
func dependencyRowToGeneric(r annstore.DependencyRow) generator.Row {
	return generator.Row{
		DocumentID:     r.DocumentID,
		SentenceID:     r.SentenceID,
		BeginChar:      r.BeginChar,
		EndChar:        r.EndChar,
		Timestamp:      r.Timestamp,
		HeadToken:      r.HeadToken,
		DependentToken: r.DependentToken,
		Relation:       r.Relation,
	}
}

// annotationFetch adapts annstore.Store.FetchAnnotations to a
// generator.FetchFunc, fixing the context at construction time (the fetch
// loop's cancellation is checked around the call, not inside it).
func annotationFetch(ctx context.Context, store *annstore.Store) generator.FetchFunc {
	return func(offset, limit int) ([]generator.Row, error) {
		rows, err := store.FetchAnnotations(ctx, offset, limit)
		if err != nil {
			return nil, err
		}
		out := make([]generator.Row, len(rows))
		for i, r := range rows {
			out[i] = annotationRowToGeneric(r)
		}
		return out, nil
	}
}

// dependencyFetch adapts annstore.Store.FetchDependencies to a
// generator.FetchFunc.
func dependencyFetch(ctx context.Context, store *annstore.Store) generator.FetchFunc {
	return func(offset, limit int) ([]generator.Row, error) {
		rows, err := store.FetchDependencies(ctx, offset, limit)
		if err != nil {
			return nil, err
		}
		out := make([]generator.Row, len(rows))
		for i, r := range rows {
			out[i] = dependencyRowToGeneric(r)
		}
		return out, nil
	}
}
