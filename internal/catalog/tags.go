package catalog

import (
	"fmt"
	"strings"
)

// TagCount is one entry in the tag listing.
type TagCount struct {
	Name      string
	Documents int
}

// SetTags reconciles the document's tag set to desired: associations for
// tags no longer wanted are removed, missing ones are added, and tags
// already present are left untouched. Tag rows themselves are never
// deleted; an orphaned tag simply keeps existing. The whole reconciliation
// runs in one transaction, so a reader never observes it half-applied.
//
// Names are trimmed and empty names discarded before diffing.
func (s *Store) SetTags(documentID int64, desired []string) error {
	want := make(map[string]bool, len(desired))
	for _, name := range desired {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		want[name] = true
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	rows, err := tx.Query(`
		SELECT t.name FROM tags t
		JOIN document_tags dt ON t.id = dt.tag_id
		WHERE dt.document_id = ?`, documentID)
	if err != nil {
		return err
	}
	current := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return err
		}
		current[name] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	var toRemove, toAdd []string
	for name := range current {
		if !want[name] {
			toRemove = append(toRemove, name)
		}
	}
	for name := range want {
		if !current[name] {
			toAdd = append(toAdd, name)
		}
	}

	if len(toRemove) > 0 {
		ph, args := inClause(toRemove)
		args = append([]any{documentID}, args...)
		_, err = tx.Exec(fmt.Sprintf(`
			DELETE FROM document_tags
			WHERE document_id = ?
			  AND tag_id IN (SELECT id FROM tags WHERE name IN (%s))`, ph), args...)
		if err != nil {
			return fmt.Errorf("failed to remove tag associations: %w", err)
		}
	}

	for _, name := range toAdd {
		if _, err := tx.Exec("INSERT OR IGNORE INTO tags (name) VALUES (?)", name); err != nil {
			return fmt.Errorf("failed to insert tag %q: %w", name, err)
		}
		var tagID int64
		if err := tx.QueryRow("SELECT id FROM tags WHERE name = ?", name).Scan(&tagID); err != nil {
			return fmt.Errorf("failed to resolve tag %q: %w", name, err)
		}
		_, err = tx.Exec(
			"INSERT OR IGNORE INTO document_tags (document_id, tag_id) VALUES (?, ?)",
			documentID, tagID)
		if err != nil {
			return fmt.Errorf("failed to associate tag %q: %w", name, err)
		}
	}

	return tx.Commit()
}

// TagsFor returns the document's tag names ordered case-insensitively.
func (s *Store) TagsFor(documentID int64) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT t.name FROM tags t
		JOIN document_tags dt ON t.id = dt.tag_id
		WHERE dt.document_id = ?
		ORDER BY t.name COLLATE UNI_NOCASE`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tags = append(tags, name)
	}
	return tags, rows.Err()
}

// ListTags returns every tag with the number of documents carrying it,
// ordered case-insensitively by name. Orphaned tags appear with a zero
// count.
func (s *Store) ListTags() ([]TagCount, error) {
	rows, err := s.db.Query(`
		SELECT t.name, COUNT(dt.document_id)
		FROM tags t
		LEFT JOIN document_tags dt ON dt.tag_id = t.id
		GROUP BY t.id
		ORDER BY t.name COLLATE UNI_NOCASE`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []TagCount
	for rows.Next() {
		var tc TagCount
		if err := rows.Scan(&tc.Name, &tc.Documents); err != nil {
			return nil, err
		}
		tags = append(tags, tc)
	}
	return tags, rows.Err()
}
