package variants

import (
	"context"

	"github.com/fredrikaaa/chronoidx/internal/annstore"
	"github.com/fredrikaaa/chronoidx/internal/config"
	"github.com/fredrikaaa/chronoidx/internal/generator"
	"github.com/fredrikaaa/chronoidx/internal/position"
	"github.com/fredrikaaa/chronoidx/internal/textnorm"
)

// NewTrigramSpec implements the TRIGRAM row (spec §4.7): three consecutive
// tokens in the same (document_id, sentence_id).
func NewTrigramSpec(ctx context.Context, store *annstore.Store) generator.Spec {
	return generator.Spec{
		Name:  string(config.Trigram),
		Fetch: annotationFetch(ctx, store),
		DeriveKeys: func(rows []generator.Row, sc *generator.SpecContext) ([]generator.KeyEntry, int, error) {
			var entries []generator.KeyEntry
			var skipped int
			for i := 0; i+2 < len(rows); i++ {
				a, b, c := rows[i], rows[i+1], rows[i+2]
				if !sameSentence(a, b) || !sameSentence(b, c) {
					continue
				}
				if !a.HasLemma || !b.HasLemma || !c.HasLemma {
					skipped++
					continue
				}
				key := textnorm.Join(textnorm.Normalize(a.Lemma), textnorm.Normalize(b.Lemma), textnorm.Normalize(c.Lemma))
				pos, err := position.New(a.DocumentID, a.SentenceID, a.BeginChar, c.EndChar, a.Timestamp)
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
