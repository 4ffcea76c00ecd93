// Package catalog handles SQLite storage for the document catalog.
//
// The catalog is a derived projection of the sidecar files on disk:
// documents, tags, and their associations, queryable with Unicode
// case-insensitive matching and ordering. All mutation goes through Store
// methods; each method is one short transaction.
package catalog

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/nbelyaev/libri/internal/bnf"
)

// ErrNotFound indicates the requested document is not in the catalog.
var ErrNotFound = errors.New("document not found in catalog")

// Document is one catalog row with its resolved tag set.
type Document struct {
	ID          int64
	Title       string
	Author      string
	Description string
	Lang        bnf.Lang
	SidecarPath string
	Favorite    bool
	Tags        []string
}

// Store is the catalog database handle. It is safe for concurrent use;
// writes serialize on a single underlying connection.
type Store struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for read-only advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Open opens or creates the catalog for a library rooted at libraryPath.
// The database file lives at <libraryPath>/.libri/catalog.db.
func Open(libraryPath string) (*Store, error) {
	dbDir := filepath.Join(libraryPath, ".libri")
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create .libri directory: %w", err)
	}
	return openDSN(dsnFor(filepath.Join(dbDir, "catalog.db")))
}

// OpenInMemory opens an in-memory catalog (for testing).
func OpenInMemory() (*Store, error) {
	return openDSN(dsnFor(":memory:"))
}

func dsnFor(path string) string {
	return "file:" + path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=foreign_keys(1)" +
		"&_pragma=busy_timeout(5000)"
}

func openDSN(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	// One connection: sqlite writes serialize here, and an in-memory
	// database stays a single database instead of one per pooled conn.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the catalog.
func (s *Store) Close() error {
	return s.db.Close()
}

// initialize creates the catalog schema.
func (s *Store) initialize() error {
	schema := `
		CREATE TABLE IF NOT EXISTS documents (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			author TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			lang TEXT,
			sidecar_path TEXT NOT NULL,
			favorite INTEGER NOT NULL DEFAULT 0
		);

		-- (author, title) is the document's natural identity. Exact-string,
		-- not case-folded: case folding applies only at query time.
		CREATE UNIQUE INDEX IF NOT EXISTS idx_documents_author_title
			ON documents(author, title);
		CREATE INDEX IF NOT EXISTS idx_documents_sidecar
			ON documents(sidecar_path);

		CREATE TABLE IF NOT EXISTS tags (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE
		);

		CREATE TABLE IF NOT EXISTS document_tags (
			document_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			tag_id INTEGER NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
			UNIQUE(document_id, tag_id)
		);

		CREATE INDEX IF NOT EXISTS idx_document_tags_tag
			ON document_tags(tag_id);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize catalog schema: %w", err)
	}
	return nil
}

// inClause returns a comma-separated list of "?" placeholders and the
// corresponding args. For an empty slice it returns "NULL" and no args,
// so `IN (NULL)` matches nothing.
func inClause(items []string) (placeholders string, args []any) {
	if len(items) == 0 {
		return "NULL", nil
	}
	ph := make([]byte, 0, len(items)*3)
	args = make([]any, len(items))
	for i, item := range items {
		if i > 0 {
			ph = append(ph, ", "...)
		}
		ph = append(ph, '?')
		args[i] = item
	}
	return string(ph), args
}
