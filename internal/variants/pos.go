package variants

import (
	"context"

	"github.com/fredrikaaa/chronoidx/internal/annstore"
	"github.com/fredrikaaa/chronoidx/internal/config"
	"github.com/fredrikaaa/chronoidx/internal/generator"
	"github.com/fredrikaaa/chronoidx/internal/position"
	"github.com/fredrikaaa/chronoidx/internal/textnorm"
)

// NewPOSSpec implements the POS row (spec §4.7): filter on a non-null,
// non-blank part-of-speech tag, keyed by its lowercased form.
func NewPOSSpec(ctx context.Context, store *annstore.Store) generator.Spec {
	return generator.Spec{
		Name:  string(config.POS),
		Fetch: annotationFetch(ctx, store),
		DeriveKeys: func(rows []generator.Row, sc *generator.SpecContext) ([]generator.KeyEntry, int, error) {
			var entries []generator.KeyEntry
			var skipped int
			for _, r := range rows {
				if !r.HasPOS {
					skipped++
					continue
				}
				tag := textnorm.Normalize(r.POS)
				if tag == "" {
					skipped++
					continue
				}
				pos, err := position.New(r.DocumentID, r.SentenceID, r.BeginChar, r.EndChar, r.Timestamp)
				if err != nil {
					skipped++
					continue
				}
				entries = append(entries, generator.KeyEntry{Key: tag, Pos: pos})
			}
			return entries, skipped, nil
		},
	}
}
