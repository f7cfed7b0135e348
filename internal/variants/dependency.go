package variants

import (
	"context"

	"github.com/fredrikaaa/chronoidx/internal/annstore"
	"github.com/fredrikaaa/chronoidx/internal/config"
	"github.com/fredrikaaa/chronoidx/internal/generator"
	"github.com/fredrikaaa/chronoidx/internal/position"
	"github.com/fredrikaaa/chronoidx/internal/textnorm"
)

// relationBlacklist holds the grammatical relations excluded from the
// DEPENDENCY row (spec §4.7): function-word attachments that carry no
// lexical content. HYPERNYM filters by its own relation prefixes instead.
var relationBlacklist = map[string]struct{}{
	"det": {}, "cc": {}, "case": {}, "punct": {}, "mark": {}, "aux": {}, "cop": {},
}

// NewDependencySpec implements the DEPENDENCY row (spec §4.7): relations
// outside the blacklist whose head and dependent are non-null and not
// stopwords, keyed by `head ⊕ relation ⊕ dependent`.
func NewDependencySpec(ctx context.Context, store *annstore.Store) generator.Spec {
	return generator.Spec{
		Name:  string(config.Dependency),
		Fetch: dependencyFetch(ctx, store),
		DeriveKeys: func(rows []generator.Row, sc *generator.SpecContext) ([]generator.KeyEntry, int, error) {
			var entries []generator.KeyEntry
			var skipped int
			for _, r := range rows {
				relation := textnorm.Normalize(r.Relation)
				if _, blacklisted := relationBlacklist[relation]; blacklisted {
					skipped++
					continue
				}
				head := textnorm.Normalize(r.HeadToken)
				dep := textnorm.Normalize(r.DependentToken)
				if head == "" || dep == "" {
					skipped++
					continue
				}
				if sc.Stopwords.Contains(head) || sc.Stopwords.Contains(dep) {
					skipped++
					continue
				}
				pos, err := position.New(r.DocumentID, r.SentenceID, r.BeginChar, r.EndChar, r.Timestamp)
				if err != nil {
					skipped++
					continue
				}
				key := textnorm.Join(head, relation, dep)
				entries = append(entries, generator.KeyEntry{Key: key, Pos: pos})
			}
			return entries, skipped, nil
		},
	}
}
