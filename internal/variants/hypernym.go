package variants

import (
	"context"
	"strings"

	"github.com/fredrikaaa/chronoidx/internal/annstore"
	"github.com/fredrikaaa/chronoidx/internal/config"
	"github.com/fredrikaaa/chronoidx/internal/generator"
	"github.com/fredrikaaa/chronoidx/internal/position"
	"github.com/fredrikaaa/chronoidx/internal/textnorm"
)

// hypernymRelationPrefixes are the relation labels marking a hypernym
// construction (spec §4.7), e.g. "Rome, a city in Italy" ~ nmod:such_as.
var hypernymRelationPrefixes = []string{"nmod:such_as", "nmod:including"}

// NewHypernymSpec implements the HYPERNYM row (spec §4.7): dependency edges
// whose relation marks a hypernym construction, keyed by the joined
// head/dependent token pair (the dependencies table carries no separate
// lemma column, so the token itself plays that role here — see DESIGN.md).
func NewHypernymSpec(ctx context.Context, store *annstore.Store) generator.Spec {
	return generator.Spec{
		Name:  string(config.Hypernym),
		Fetch: dependencyFetch(ctx, store),
		DeriveKeys: func(rows []generator.Row, sc *generator.SpecContext) ([]generator.KeyEntry, int, error) {
			var entries []generator.KeyEntry
			var skipped int
			for _, r := range rows {
				relation := textnorm.Normalize(r.Relation)
				matched := false
				for _, prefix := range hypernymRelationPrefixes {
					if strings.HasPrefix(relation, prefix) {
						matched = true
						break
					}
				}
				if !matched {
					skipped++
					continue
				}
				pos, err := position.New(r.DocumentID, r.SentenceID, r.BeginChar, r.EndChar, r.Timestamp)
				if err != nil {
					skipped++
					continue
				}
				key := textnorm.Join(textnorm.Normalize(r.HeadToken), textnorm.Normalize(r.DependentToken))
				entries = append(entries, generator.KeyEntry{Key: key, Pos: pos})
			}
			return entries, skipped, nil
		},
	}
}
