package variants

import (
	"context"

	"github.com/fredrikaaa/chronoidx/internal/annstore"
	"github.com/fredrikaaa/chronoidx/internal/config"
	"github.com/fredrikaaa/chronoidx/internal/generator"
	"github.com/fredrikaaa/chronoidx/internal/position"
	"github.com/fredrikaaa/chronoidx/internal/synonym"
	"github.com/fredrikaaa/chronoidx/internal/textnorm"
)

// NewStitchSpec implements the STITCH row (spec §4.7): for every lemma-
// bearing token, stitch it to each annotation co-occurring in the same
// sentence (DATE, NER, POS), keyed by `lemma ⊕ AnnotationType` with the
// co-occurring value's surrogate id from the SynonymTable.
//
// DEPENDENCY-typed stitching (annotations x dependency edges) is not
// produced here: the dependencies table is fetched independently of
// annotations and has no shared row stream to pair within one
// derive_keys pass — see DESIGN.md.
func NewStitchSpec(ctx context.Context, store *annstore.Store) generator.Spec {
	return generator.Spec{
		Name:         string(config.Stitch),
		UsesSynonyms: true,
		IsStitch:     true,
		Fetch:        annotationFetch(ctx, store),
		DeriveKeys: func(rows []generator.Row, sc *generator.SpecContext) ([]generator.KeyEntry, int, error) {
			var entries []generator.KeyEntry
			var skipped int

			i := 0
			for i < len(rows) {
				j := i
				for j < len(rows) && sameSentence(rows[i], rows[j]) {
					j++
				}
				sentence := rows[i:j]

				for _, base := range sentence {
					if !base.HasLemma {
						continue
					}
					lemma := textnorm.Normalize(base.Lemma)
					basePos, err := position.New(base.DocumentID, base.SentenceID, base.BeginChar, base.EndChar, base.Timestamp)
					if err != nil {
						skipped++
						continue
					}

					for _, assoc := range sentence {
						es, err := stitchEntries(lemma, basePos, assoc, sc.Synonyms)
						if err != nil {
							return nil, skipped, err
						}
						entries = append(entries, es...)
					}
				}
				i = j
			}
			return entries, skipped, nil
		},
	}
}

// stitchEntries builds the StitchPosition KeyEntries pairing base with
// every kind of association assoc carries. DATE/NER and POS are stamped
// on independent columns of the annotations row (spec §4.7's "DATE, NER,
// POS in same sentence"), so a single assoc row can yield both a NER (or
// DATE) entry and a POS entry — these are not mutually exclusive.
func stitchEntries(lemma string, basePos position.Position, assoc generator.Row, syn *synonym.Table) ([]generator.KeyEntry, error) {
	var entries []generator.KeyEntry

	if assoc.HasNER && assoc.NER == "DATE" && assoc.HasNormalizedNER {
		d, err := position.ParseDate(assoc.NormalizedNER)
		if err == nil {
			id, err := syn.GetOrCreate(synonym.Date, d.String())
			if err != nil {
				return nil, err
			}
			entries = append(entries, generator.KeyEntry{
				Key: textnorm.Join(lemma, position.AnnotationDate.String()), Pos: basePos,
				IsStitch: true, SynonymID: id, AnnType: position.AnnotationDate,
			})
		}
	} else if assoc.HasNER {
		id, err := syn.GetOrCreate(synonym.NER, textnorm.Normalize(assoc.NER))
		if err != nil {
			return nil, err
		}
		entries = append(entries, generator.KeyEntry{
			Key: textnorm.Join(lemma, position.AnnotationNER.String()), Pos: basePos,
			IsStitch: true, SynonymID: id, AnnType: position.AnnotationNER,
		})
	}

	if assoc.HasPOS {
		id, err := syn.GetOrCreate(synonym.POS, textnorm.Normalize(assoc.POS))
		if err != nil {
			return nil, err
		}
		entries = append(entries, generator.KeyEntry{
			Key: textnorm.Join(lemma, position.AnnotationPOS.String()), Pos: basePos,
			IsStitch: true, SynonymID: id, AnnType: position.AnnotationPOS,
		})
	}

	return entries, nil
}
