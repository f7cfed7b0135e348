// Package generator implements the IndexGenerator base (spec §4.6): one
// driver state machine plus an IndexSpec capability record per index
// variant (DESIGN NOTES: "re-express [inheritance] as one IndexGenerator
// driver + an IndexSpec capability record").
package generator

import (
	"github.com/fredrikaaa/chronoidx/internal/position"
	"github.com/fredrikaaa/chronoidx/internal/synonym"
	"github.com/fredrikaaa/chronoidx/internal/textnorm"
	"github.com/fredrikaaa/chronoidx/internal/xlog"
)

// Row is the generator's row abstraction: a flattened superset of
// AnnotationRow and DependencyRow (spec §3) wide enough for every Index
// variant's derive_keys rule to read the fields it needs and ignore the
// rest.
type Row struct {
	DocumentID uint32
	SentenceID uint32
	BeginChar  uint32
	EndChar    uint32
	Timestamp  position.Date

	// annotations-table fields
	Token         string
	HasToken      bool
	Lemma         string
	HasLemma      bool
	POS           string
	HasPOS        bool
	NER           string
	HasNER        bool
	NormalizedNER string
	HasNormalizedNER bool

	// dependencies-table fields
	HeadToken      string
	DependentToken string
	Relation       string
}

// KeyEntry is one (key, occurrence) pair a Spec's DeriveKeys emits.
type KeyEntry struct {
	Key       string
	Pos       position.Position
	IsStitch  bool
	SynonymID uint32
	AnnType   position.AnnotationType
}

// SpecContext carries the per-build collaborators a Spec's DeriveKeys may
// need: the stopword set, the SynonymTable (only used if UsesSynonyms),
// and a logger.
type SpecContext struct {
	Stopwords *textnorm.Stopwords
	Synonyms  *synonym.Table
	Log       xlog.Logger
}

// FetchFunc retrieves one page of rows already joined with their
// document's timestamp and ordered by (document_id, sentence_id,
// begin_char), spec §6's fetch-SQL contract.
type FetchFunc func(offset, limit int) ([]Row, error)

// DeriveKeysFunc implements spec §4.6.2 steps 2-4 for one partition's
// rows: filter, derive key, emit a Position (or StitchPosition). It
// returns the derived entries and a count of rows skipped by the filter.
type DeriveKeysFunc func(rows []Row, sc *SpecContext) (entries []KeyEntry, skipped int, err error)

// Spec is the IndexSpec capability record (DESIGN NOTES).
type Spec struct {
	// Name is this variant's IndexType, used for the kv/ bucket name,
	// manifest, and metrics labels.
	Name string
	// UsesSynonyms indicates DeriveKeys calls sc.Synonyms.GetOrCreate and
	// the generator must flush it at the end of a successful build.
	UsesSynonyms bool
	// IsStitch indicates entries carry (SynonymID, AnnType) and must be
	// assembled into StitchLists rather than Lists.
	IsStitch bool
	// Fetch retrieves one page of rows for this variant.
	Fetch FetchFunc
	// DeriveKeys implements the variant's filter + key-derivation rule.
	DeriveKeys DeriveKeysFunc
}
