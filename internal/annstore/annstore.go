// Package annstore implements the AnnotationStore external collaborator
// (spec §6): the relational store of documents/annotations/dependencies
// every IndexSpec's fetch SQL reads from. It is out of the core engine's
// scope per spec §1 ("the annotation store itself... external
// collaborators, with only their interfaces specified"), but a concrete,
// pure-Go implementation is needed for tests and single-machine builds, so
// this wraps modernc.org/sqlite the way the corpus's own SQLite-backed
// stores do (see go-mizu-mizu/blueprints/book/store/sqlite/store.go).
package annstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/fredrikaaa/chronoidx/internal/position"
	"github.com/fredrikaaa/chronoidx/internal/xerr"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
    document_id INTEGER PRIMARY KEY,
    timestamp   TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS annotations (
    annotation_id  INTEGER PRIMARY KEY,
    document_id    INTEGER NOT NULL REFERENCES documents(document_id),
    sentence_id    INTEGER NOT NULL,
    begin_char     INTEGER NOT NULL,
    end_char       INTEGER NOT NULL,
    token          TEXT,
    lemma          TEXT,
    pos            TEXT,
    ner            TEXT,
    normalized_ner TEXT
);
CREATE INDEX IF NOT EXISTS idx_annotations_order ON annotations(document_id, sentence_id, begin_char);
CREATE TABLE IF NOT EXISTS dependencies (
    document_id     INTEGER NOT NULL REFERENCES documents(document_id),
    sentence_id     INTEGER NOT NULL,
    begin_char      INTEGER NOT NULL,
    end_char        INTEGER NOT NULL,
    head_token      TEXT NOT NULL,
    dependent_token TEXT NOT NULL,
    relation        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_dependencies_order ON dependencies(document_id, sentence_id, begin_char);
`

// AnnotationRow is a fetched annotations-table row joined with its
// document's timestamp, spec §3.
type AnnotationRow struct {
	DocumentID    uint32
	SentenceID    uint32
	BeginChar     uint32
	EndChar       uint32
	Token         sql.NullString
	Lemma         sql.NullString
	POS           sql.NullString
	NER           sql.NullString
	NormalizedNER sql.NullString
	Timestamp     position.Date
}

// DependencyRow is a fetched dependencies-table row joined with its
// document's timestamp, spec §3.
type DependencyRow struct {
	DocumentID     uint32
	SentenceID     uint32
	BeginChar      uint32
	EndChar        uint32
	HeadToken      string
	DependentToken string
	Relation       string
	Timestamp      position.Date
}

// Store wraps the SQLite-backed annotation store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the SQLite database at path, matching
// busy-timeout/WAL pragmas and single-writer connection pooling to the
// corpus's own SQLite stores.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, xerr.New(xerr.KindStoreRead, "annstore.Open", fmt.Errorf("create dir %s: %w", dir, err))
		}
	}
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, xerr.New(xerr.KindStoreRead, "annstore.Open", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, xerr.New(xerr.KindStoreRead, "annstore.Open", err)
	}
	return &Store{db: db}, nil
}

// Ensure creates the schema if absent.
func (s *Store) Ensure(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return xerr.New(xerr.KindStoreRead, "annstore.Ensure", err)
	}
	return nil
}

// Close closes the underlying connection.
func (s *Store) Close() error { return s.db.Close() }

// FetchAnnotations returns up to limit annotations-table rows starting at
// offset, ordered by (document_id, sentence_id, begin_char) per spec §6's
// fetch-SQL contract, joined with their document's timestamp.
func (s *Store) FetchAnnotations(ctx context.Context, offset, limit int) ([]AnnotationRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.document_id, a.sentence_id, a.begin_char, a.end_char,
		       a.token, a.lemma, a.pos, a.ner, a.normalized_ner, d.timestamp
		FROM annotations a
		JOIN documents d ON d.document_id = a.document_id
		ORDER BY a.document_id, a.sentence_id, a.begin_char
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, xerr.New(xerr.KindStoreRead, "annstore.FetchAnnotations", err)
	}
	defer rows.Close()

	var out []AnnotationRow
	for rows.Next() {
		var r AnnotationRow
		var ts string
		if err := rows.Scan(&r.DocumentID, &r.SentenceID, &r.BeginChar, &r.EndChar,
			&r.Token, &r.Lemma, &r.POS, &r.NER, &r.NormalizedNER, &ts); err != nil {
			return nil, xerr.New(xerr.KindStoreRead, "annstore.FetchAnnotations", err)
		}
		d, err := position.ParseDate(ts)
		if err != nil {
			return nil, xerr.New(xerr.KindStoreRead, "annstore.FetchAnnotations", fmt.Errorf("document %d: %w", r.DocumentID, err))
		}
		r.Timestamp = d
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, xerr.New(xerr.KindStoreRead, "annstore.FetchAnnotations", err)
	}
	return out, nil
}

// FetchDependencies returns up to limit dependencies-table rows starting
// at offset, with the same ordering and pagination contract as
// FetchAnnotations.
func (s *Store) FetchDependencies(ctx context.Context, offset, limit int) ([]DependencyRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT dep.document_id, dep.sentence_id, dep.begin_char, dep.end_char,
		       dep.head_token, dep.dependent_token, dep.relation, d.timestamp
		FROM dependencies dep
		JOIN documents d ON d.document_id = dep.document_id
		ORDER BY dep.document_id, dep.sentence_id, dep.begin_char
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, xerr.New(xerr.KindStoreRead, "annstore.FetchDependencies", err)
	}
	defer rows.Close()

	var out []DependencyRow
	for rows.Next() {
		var r DependencyRow
		var ts string
		if err := rows.Scan(&r.DocumentID, &r.SentenceID, &r.BeginChar, &r.EndChar,
			&r.HeadToken, &r.DependentToken, &r.Relation, &ts); err != nil {
			return nil, xerr.New(xerr.KindStoreRead, "annstore.FetchDependencies", err)
		}
		d, err := position.ParseDate(ts)
		if err != nil {
			return nil, xerr.New(xerr.KindStoreRead, "annstore.FetchDependencies", fmt.Errorf("document %d: %w", r.DocumentID, err))
		}
		r.Timestamp = d
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, xerr.New(xerr.KindStoreRead, "annstore.FetchDependencies", err)
	}
	return out, nil
}

// InsertDocument inserts one document row, for test fixtures and small
// one-off ingest tools.
func (s *Store) InsertDocument(ctx context.Context, documentID uint32, timestamp position.Date) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO documents(document_id, timestamp) VALUES (?, ?)`, documentID, timestamp.String())
	if err != nil {
		return xerr.New(xerr.KindStoreWrite, "annstore.InsertDocument", err)
	}
	return nil
}

// InsertAnnotation inserts one annotations row.
func (s *Store) InsertAnnotation(ctx context.Context, r AnnotationRow) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO annotations(document_id, sentence_id, begin_char, end_char, token, lemma, pos, ner, normalized_ner)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.DocumentID, r.SentenceID, r.BeginChar, r.EndChar, r.Token, r.Lemma, r.POS, r.NER, r.NormalizedNER)
	if err != nil {
		return xerr.New(xerr.KindStoreWrite, "annstore.InsertAnnotation", err)
	}
	return nil
}

// InsertDependency inserts one dependencies row.
func (s *Store) InsertDependency(ctx context.Context, r DependencyRow) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO dependencies(document_id, sentence_id, begin_char, end_char, head_token, dependent_token, relation)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.DocumentID, r.SentenceID, r.BeginChar, r.EndChar, r.HeadToken, r.DependentToken, r.Relation)
	if err != nil {
		return xerr.New(xerr.KindStoreWrite, "annstore.InsertDependency", err)
	}
	return nil
}
