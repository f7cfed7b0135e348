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

// NewNERSpec implements the NER row (spec §4.7): runs of consecutive,
// same-entity, adjacently-spanned tokens in one sentence are merged into a
// single mention, keyed by `ner ⊕ lower(mention_text)`.
func NewNERSpec(ctx context.Context, store *annstore.Store) generator.Spec {
	return generator.Spec{
		Name:  string(config.NER),
		Fetch: annotationFetch(ctx, store),
		DeriveKeys: func(rows []generator.Row, sc *generator.SpecContext) ([]generator.KeyEntry, int, error) {
			var entries []generator.KeyEntry
			var skipped int

			i := 0
			for i < len(rows) {
				r := rows[i]
				if !r.HasNER || r.NER == "DATE" || !r.HasToken {
					skipped++
					i++
					continue
				}

				group := []generator.Row{r}
				j := i + 1
				for j < len(rows) {
					next := rows[j]
					prev := group[len(group)-1]
					if !sameSentence(prev, next) || !next.HasNER || !next.HasToken || next.NER != r.NER {
						break
					}
					if next.BeginChar < prev.EndChar || next.BeginChar > prev.EndChar+2 {
						break
					}
					group = append(group, next)
					j++
				}

				tokens := make([]string, len(group))
				for k, g := range group {
					tokens[k] = textnorm.Normalize(g.Token)
				}
				mentionText := strings.Join(tokens, " ")
				key := textnorm.Join(r.NER, mentionText)

				first, last := group[0], group[len(group)-1]
				pos, err := position.New(first.DocumentID, first.SentenceID, first.BeginChar, last.EndChar, first.Timestamp)
				if err != nil {
					skipped++
				} else {
					entries = append(entries, generator.KeyEntry{Key: key, Pos: pos})
				}

				i = j
			}
			return entries, skipped, nil
		},
	}
}
