package variants

import (
	"context"

	"github.com/fredrikaaa/chronoidx/internal/annstore"
	"github.com/fredrikaaa/chronoidx/internal/generator"
)

// All returns the nine IndexSpec factories (spec §3's IndexType tag set),
// each wired to read from store.
func All(ctx context.Context, store *annstore.Store) []generator.Spec {
	return []generator.Spec{
		NewUnigramSpec(ctx, store),
		NewBigramSpec(ctx, store),
		NewTrigramSpec(ctx, store),
		NewPOSSpec(ctx, store),
		NewNERSpec(ctx, store),
		NewNERDateSpec(ctx, store),
		NewDependencySpec(ctx, store),
		NewHypernymSpec(ctx, store),
		NewStitchSpec(ctx, store),
	}
}
