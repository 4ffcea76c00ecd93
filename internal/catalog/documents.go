package catalog

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/nbelyaev/libri/internal/bnf"
)

// SortKey selects the ordering of query results.
type SortKey string

// Supported sort keys. Both order under the UNI_NOCASE collation.
const (
	SortByTitle  SortKey = "title"
	SortByAuthor SortKey = "author"
)

// QueryOptions narrows and orders a catalog query. The zero value returns
// every document sorted by title.
type QueryOptions struct {
	// Filter matches substrings of title, author, or any tag name,
	// case-insensitively.
	Filter string
	// Tags restricts to documents carrying all named tags.
	Tags []string
	// Author restricts to an exact case-insensitive author match.
	Author string
	// Sort is SortByTitle or SortByAuthor; empty means SortByTitle.
	Sort SortKey
	// FavoritesOnly restricts to favorite documents.
	FavoritesOnly bool
}

// UpsertDocument inserts or updates the document identified by the exact
// (title, author) pair and returns its id. The id is stable across updates;
// created reports whether a new row was inserted. Calling it repeatedly
// with identical input is a no-op beyond the first call.
func (s *Store) UpsertDocument(title, author, description string, lang bnf.Lang, sidecarPath string) (id int64, created bool, err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, false, err
	}
	defer tx.Rollback()

	id, found, err := findDocumentID(tx, title, author)
	if err != nil {
		return 0, false, err
	}

	if found {
		_, err = tx.Exec(`
			UPDATE documents
			SET title = ?, author = ?, description = ?, lang = ?, sidecar_path = ?
			WHERE id = ?`,
			title, author, description, nullableLang(lang), sidecarPath, id)
		if err != nil {
			return 0, false, fmt.Errorf("failed to update document: %w", err)
		}
	} else {
		res, err := tx.Exec(`
			INSERT INTO documents (title, author, description, lang, sidecar_path)
			VALUES (?, ?, ?, ?, ?)`,
			title, author, description, nullableLang(lang), sidecarPath)
		if err != nil {
			return 0, false, fmt.Errorf("failed to insert document: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return 0, false, err
		}
		created = true
	}

	if err := tx.Commit(); err != nil {
		return 0, false, err
	}
	return id, created, nil
}

// findDocumentID resolves identity by exact (title, author) equality,
// matching the unique index. Differently-cased titles are distinct
// documents.
func findDocumentID(tx *sql.Tx, title, author string) (int64, bool, error) {
	var id int64
	err := tx.QueryRow(
		"SELECT id FROM documents WHERE title = ? AND author = ?",
		title, author,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// FindByTitleAuthor returns the id of the document with the exact
// (title, author) identity, if any.
func (s *Store) FindByTitleAuthor(title, author string) (int64, bool, error) {
	var id int64
	err := s.db.QueryRow(
		"SELECT id FROM documents WHERE title = ? AND author = ?",
		title, author,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// DeleteBySidecarPath removes the document whose recorded sidecar path is
// path, cascading its tag associations. Deleting a path with no document
// is not an error.
func (s *Store) DeleteBySidecarPath(path string) error {
	_, err := s.db.Exec("DELETE FROM documents WHERE sidecar_path = ?", path)
	if err != nil {
		return fmt.Errorf("failed to delete document for %s: %w", path, err)
	}
	return nil
}

// GetDocument retrieves a document with its tags, or nil if absent.
func (s *Store) GetDocument(id int64) (*Document, error) {
	var doc Document
	var lang sql.NullString
	err := s.db.QueryRow(`
		SELECT id, title, author, description, lang, sidecar_path, favorite
		FROM documents WHERE id = ?`, id,
	).Scan(&doc.ID, &doc.Title, &doc.Author, &doc.Description, &lang, &doc.SidecarPath, &doc.Favorite)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	doc.Lang = bnf.Lang(lang.String)

	doc.Tags, err = s.TagsFor(id)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// ToggleFavorite flips the favorite flag. The flag is mutated only here,
// never by synchronization.
func (s *Store) ToggleFavorite(id int64) error {
	res, err := s.db.Exec("UPDATE documents SET favorite = 1 - favorite WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to toggle favorite: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// AllSidecarPaths returns the recorded sidecar path of every document.
// Used by the reconciliation sweep to prune entries with no backing file.
func (s *Store) AllSidecarPaths() ([]string, error) {
	rows, err := s.db.Query("SELECT sidecar_path FROM documents")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// Query returns documents matching opts, ordered by the requested sort key
// under the UNI_NOCASE collation, with tag sets attached.
func (s *Store) Query(opts QueryOptions) ([]Document, error) {
	var conds []string
	var args []any

	if opts.Filter != "" {
		pattern := "%" + fold(opts.Filter) + "%"
		conds = append(conds, `(
			UNI_LOWER(d.title) LIKE ?
			OR UNI_LOWER(d.author) LIKE ?
			OR EXISTS (
				SELECT 1 FROM document_tags dt
				JOIN tags t ON t.id = dt.tag_id
				WHERE dt.document_id = d.id AND UNI_LOWER(t.name) LIKE ?
			))`)
		args = append(args, pattern, pattern, pattern)
	}

	if len(opts.Tags) > 0 {
		folded := make([]string, len(opts.Tags))
		for i, tag := range opts.Tags {
			folded[i] = fold(tag)
		}
		ph, tagArgs := inClause(folded)
		conds = append(conds, fmt.Sprintf(`d.id IN (
			SELECT dt.document_id FROM document_tags dt
			JOIN tags t ON t.id = dt.tag_id
			WHERE UNI_LOWER(t.name) IN (%s)
			GROUP BY dt.document_id
			HAVING COUNT(DISTINCT UNI_LOWER(t.name)) = ?
		)`, ph))
		args = append(args, tagArgs...)
		args = append(args, len(folded))
	}

	if opts.Author != "" {
		conds = append(conds, "UNI_LOWER(d.author) = UNI_LOWER(?)")
		args = append(args, opts.Author)
	}

	if opts.FavoritesOnly {
		conds = append(conds, "d.favorite = 1")
	}

	query := `
		SELECT d.id, d.title, d.author, d.description, d.lang, d.sidecar_path, d.favorite
		FROM documents d`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	switch opts.Sort {
	case SortByAuthor:
		query += " ORDER BY d.author COLLATE UNI_NOCASE, d.title COLLATE UNI_NOCASE"
	default:
		query += " ORDER BY d.title COLLATE UNI_NOCASE, d.author COLLATE UNI_NOCASE"
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		var lang sql.NullString
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.Author, &doc.Description, &lang, &doc.SidecarPath, &doc.Favorite); err != nil {
			return nil, err
		}
		doc.Lang = bnf.Lang(lang.String)
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.attachTags(docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// attachTags loads the tag set for every document in docs in one query.
func (s *Store) attachTags(docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	ids := make([]string, len(docs))
	byID := make(map[int64]*Document, len(docs))
	for i := range docs {
		ids[i] = fmt.Sprintf("%d", docs[i].ID)
		byID[docs[i].ID] = &docs[i]
	}

	ph, args := inClause(ids)
	rows, err := s.db.Query(fmt.Sprintf(`
		SELECT dt.document_id, t.name
		FROM document_tags dt
		JOIN tags t ON t.id = dt.tag_id
		WHERE dt.document_id IN (%s)
		ORDER BY t.name COLLATE UNI_NOCASE`, ph), args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var docID int64
		var name string
		if err := rows.Scan(&docID, &name); err != nil {
			return err
		}
		if doc := byID[docID]; doc != nil {
			doc.Tags = append(doc.Tags, name)
		}
	}
	return rows.Err()
}

func nullableLang(lang bnf.Lang) any {
	if lang == "" {
		return nil
	}
	return string(lang)
}
