package variants

import (
	"context"

	"github.com/fredrikaaa/chronoidx/internal/annstore"
	"github.com/fredrikaaa/chronoidx/internal/config"
	"github.com/fredrikaaa/chronoidx/internal/generator"
	"github.com/fredrikaaa/chronoidx/internal/position"
	"github.com/fredrikaaa/chronoidx/internal/textnorm"
)

// NewUnigramSpec implements the UNIGRAM row (spec §4.7): filter on a
// non-null lemma that is not a stopword, keyed by the lemma itself.
func NewUnigramSpec(ctx context.Context, store *annstore.Store) generator.Spec {
	return generator.Spec{
		Name:  string(config.Unigram),
		Fetch: annotationFetch(ctx, store),
		DeriveKeys: func(rows []generator.Row, sc *generator.SpecContext) ([]generator.KeyEntry, int, error) {
			var entries []generator.KeyEntry
			var skipped int
			for _, r := range rows {
				if !r.HasLemma {
					skipped++
					continue
				}
				lemma := textnorm.Normalize(r.Lemma)
				if sc.Stopwords.Contains(lemma) {
					skipped++
					continue
				}
				pos, err := position.New(r.DocumentID, r.SentenceID, r.BeginChar, r.EndChar, r.Timestamp)
				if err != nil {
					skipped++
					continue
				}
				entries = append(entries, generator.KeyEntry{Key: lemma, Pos: pos})
			}
			return entries, skipped, nil
		},
	}
}
