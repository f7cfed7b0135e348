package variants

import (
	"context"

	"github.com/fredrikaaa/chronoidx/internal/annstore"
	"github.com/fredrikaaa/chronoidx/internal/config"
	"github.com/fredrikaaa/chronoidx/internal/generator"
	"github.com/fredrikaaa/chronoidx/internal/position"
	"github.com/fredrikaaa/chronoidx/internal/textnorm"
)

// NewBigramSpec implements the BIGRAM row (spec §4.7): two consecutive
// tokens in the same (document_id, sentence_id), both non-null, stopwords
// kept. The key joins both lemmas; the Position spans begin of the first
// token to end of the second.
func NewBigramSpec(ctx context.Context, store *annstore.Store) generator.Spec {
	return generator.Spec{
		Name:  string(config.Bigram),
		Fetch: annotationFetch(ctx, store),
		DeriveKeys: func(rows []generator.Row, sc *generator.SpecContext) ([]generator.KeyEntry, int, error) {
			var entries []generator.KeyEntry
			var skipped int
			for i := 0; i+1 < len(rows); i++ {
				a, b := rows[i], rows[i+1]
				if !sameSentence(a, b) {
					continue
				}
				if !a.HasToken || !a.HasLemma || !b.HasToken || !b.HasLemma {
					skipped++
					continue
				}
				key := textnorm.Join(textnorm.Normalize(a.Lemma), textnorm.Normalize(b.Lemma))
				pos, err := position.New(a.DocumentID, a.SentenceID, a.BeginChar, b.EndChar, a.Timestamp)
				if err != nil {
					skipped++
					continue
				}
				entries = append(entries, generator.KeyEntry{Key: key, Pos: pos})
			}
			return entries, skipped, nil
		},
	}
}

// sameSentence reports whether a and b belong to the same
// (document_id, sentence_id), the boundary bigram/trigram windows must
// never cross (spec §4.7 "Bigram/Trigram boundary rule").
func sameSentence(a, b generator.Row) bool {
	return a.DocumentID == b.DocumentID && a.SentenceID == b.SentenceID
}
