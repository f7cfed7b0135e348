package variants

import (
	"context"

	"github.com/fredrikaaa/chronoidx/internal/annstore"
	"github.com/fredrikaaa/chronoidx/internal/config"
	"github.com/fredrikaaa/chronoidx/internal/generator"
	"github.com/fredrikaaa/chronoidx/internal/position"
)

// NewNERDateSpec implements the NER_DATE row (spec §4.7): rows tagged
// ner=DATE whose normalized_ner parses as a legal calendar date, keyed by
// its yyyyMMdd rendering.
func NewNERDateSpec(ctx context.Context, store *annstore.Store) generator.Spec {
	return generator.Spec{
		Name:  string(config.NERDate),
		Fetch: annotationFetch(ctx, store),
		DeriveKeys: func(rows []generator.Row, sc *generator.SpecContext) ([]generator.KeyEntry, int, error) {
			var entries []generator.KeyEntry
			var skipped int
			for _, r := range rows {
				if !r.HasNER || r.NER != "DATE" || !r.HasNormalizedNER {
					skipped++
					continue
				}
				d, err := position.ParseDate(r.NormalizedNER)
				if err != nil {
					skipped++
					continue
				}
				pos, err := position.New(r.DocumentID, r.SentenceID, r.BeginChar, r.EndChar, r.Timestamp)
				if err != nil {
					skipped++
					continue
				}
				entries = append(entries, generator.KeyEntry{Key: d.YYYYMMDD(), Pos: pos})
			}
			return entries, skipped, nil
		},
	}
}
