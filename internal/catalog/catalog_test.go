package catalog

import (
	"errors"
	"testing"

	"github.com/nbelyaev/libri/internal/bnf"
)

func mustOpen(t *testing.T) *Store {
	t.Helper()
	s, err := OpenInMemory()
	if err != nil {
		t.Fatalf("failed to open catalog: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustUpsert(t *testing.T, s *Store, title, author, path string) int64 {
	t.Helper()
	id, _, err := s.UpsertDocument(title, author, "", "", path)
	if err != nil {
		t.Fatalf("upsert %q failed: %v", title, err)
	}
	return id
}

func TestUpsertDocument(t *testing.T) {
	t.Run("idempotent", func(t *testing.T) {
		s := mustOpen(t)

		id1, created1, err := s.UpsertDocument("A", "Smith", "desc", bnf.LangEN, "/lib/a.bnf")
		if err != nil {
			t.Fatalf("first upsert failed: %v", err)
		}
		if !created1 {
			t.Error("first upsert should create")
		}

		id2, created2, err := s.UpsertDocument("A", "Smith", "desc", bnf.LangEN, "/lib/a.bnf")
		if err != nil {
			t.Fatalf("second upsert failed: %v", err)
		}
		if created2 {
			t.Error("second upsert should update, not create")
		}
		if id1 != id2 {
			t.Errorf("ids differ: %d vs %d", id1, id2)
		}

		docs, err := s.Query(QueryOptions{})
		if err != nil {
			t.Fatal(err)
		}
		if len(docs) != 1 {
			t.Errorf("expected exactly one row, got %d", len(docs))
		}
	})

	t.Run("update keeps id, changes fields", func(t *testing.T) {
		s := mustOpen(t)

		id1 := mustUpsert(t, s, "A", "Smith", "/lib/a.bnf")
		id2, created, err := s.UpsertDocument("A", "Smith", "new description", bnf.LangRU, "/lib/moved/a.bnf")
		if err != nil {
			t.Fatal(err)
		}
		if created || id1 != id2 {
			t.Errorf("expected in-place update of %d, got id=%d created=%v", id1, id2, created)
		}

		doc, err := s.GetDocument(id1)
		if err != nil {
			t.Fatal(err)
		}
		if doc.Description != "new description" || doc.Lang != bnf.LangRU || doc.SidecarPath != "/lib/moved/a.bnf" {
			t.Errorf("fields not updated: %+v", doc)
		}
	})

	t.Run("case-differing titles are distinct documents", func(t *testing.T) {
		s := mustOpen(t)
		mustUpsert(t, s, "dune", "Herbert", "/lib/d1.bnf")
		mustUpsert(t, s, "Dune", "Herbert", "/lib/d2.bnf")

		docs, err := s.Query(QueryOptions{})
		if err != nil {
			t.Fatal(err)
		}
		if len(docs) != 2 {
			t.Errorf("expected 2 documents, got %d", len(docs))
		}
	})
}

func TestSetTags(t *testing.T) {
	t.Run("minimal diff", func(t *testing.T) {
		s := mustOpen(t)
		id := mustUpsert(t, s, "A", "Smith", "/lib/a.bnf")

		if err := s.SetTags(id, []string{"A", "B", "C"}); err != nil {
			t.Fatal(err)
		}
		idsBefore := tagIDs(t, s)

		if err := s.SetTags(id, []string{"B", "C", "D"}); err != nil {
			t.Fatal(err)
		}

		tags, err := s.TagsFor(id)
		if err != nil {
			t.Fatal(err)
		}
		if got := len(tags); got != 3 {
			t.Fatalf("expected 3 tags, got %v", tags)
		}
		for i, want := range []string{"B", "C", "D"} {
			if tags[i] != want {
				t.Errorf("tags[%d] = %q, want %q", i, tags[i], want)
			}
		}

		// B and C kept their rows; A's row survives unassociated.
		idsAfter := tagIDs(t, s)
		for _, name := range []string{"A", "B", "C"} {
			if idsBefore[name] != idsAfter[name] {
				t.Errorf("tag %q row was recreated: %d -> %d", name, idsBefore[name], idsAfter[name])
			}
		}
	})

	t.Run("whitespace and empty names discarded", func(t *testing.T) {
		s := mustOpen(t)
		id := mustUpsert(t, s, "A", "Smith", "/lib/a.bnf")

		if err := s.SetTags(id, []string{" x ", "", "   ", "y"}); err != nil {
			t.Fatal(err)
		}
		tags, _ := s.TagsFor(id)
		if len(tags) != 2 || tags[0] != "x" || tags[1] != "y" {
			t.Errorf("tags = %v, want [x y]", tags)
		}
	})

	t.Run("repeat reconcile is a no-op", func(t *testing.T) {
		s := mustOpen(t)
		id := mustUpsert(t, s, "A", "Smith", "/lib/a.bnf")

		if err := s.SetTags(id, []string{"x", "y"}); err != nil {
			t.Fatal(err)
		}
		if err := s.SetTags(id, []string{"y", "x"}); err != nil {
			t.Fatal(err)
		}
		tags, _ := s.TagsFor(id)
		if len(tags) != 2 {
			t.Errorf("tags = %v", tags)
		}
	})

	t.Run("exact-string tag uniqueness allows case variants", func(t *testing.T) {
		s := mustOpen(t)
		id := mustUpsert(t, s, "A", "Smith", "/lib/a.bnf")

		if err := s.SetTags(id, []string{"SciFi", "scifi"}); err != nil {
			t.Fatal(err)
		}
		tags, _ := s.TagsFor(id)
		if len(tags) != 2 {
			t.Errorf("case variants should coexist, got %v", tags)
		}
	})
}

func TestCascadeDelete(t *testing.T) {
	s := mustOpen(t)

	idA := mustUpsert(t, s, "A", "Smith", "/lib/a.bnf")
	idB := mustUpsert(t, s, "B", "Jones", "/lib/b.bnf")
	if err := s.SetTags(idA, []string{"shared", "only-a"}); err != nil {
		t.Fatal(err)
	}
	if err := s.SetTags(idB, []string{"shared"}); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteBySidecarPath("/lib/a.bnf"); err != nil {
		t.Fatal(err)
	}

	doc, err := s.GetDocument(idA)
	if err != nil {
		t.Fatal(err)
	}
	if doc != nil {
		t.Error("document A should be gone")
	}

	var assocs int
	if err := s.DB().QueryRow(
		"SELECT COUNT(*) FROM document_tags WHERE document_id = ?", idA,
	).Scan(&assocs); err != nil {
		t.Fatal(err)
	}
	if assocs != 0 {
		t.Errorf("expected cascaded associations, found %d", assocs)
	}

	// Shared tag survives and B keeps it.
	tagsB, _ := s.TagsFor(idB)
	if len(tagsB) != 1 || tagsB[0] != "shared" {
		t.Errorf("B tags = %v, want [shared]", tagsB)
	}
	if _, ok := tagIDs(t, s)["only-a"]; !ok {
		t.Error("orphaned tag row should never be proactively deleted")
	}
}

func TestDeleteBySidecarPathNoop(t *testing.T) {
	s := mustOpen(t)
	if err := s.DeleteBySidecarPath("/nowhere.bnf"); err != nil {
		t.Errorf("deleting an unknown path should be a no-op, got %v", err)
	}
}

func TestToggleFavorite(t *testing.T) {
	s := mustOpen(t)
	id := mustUpsert(t, s, "A", "Smith", "/lib/a.bnf")

	if err := s.ToggleFavorite(id); err != nil {
		t.Fatal(err)
	}
	doc, _ := s.GetDocument(id)
	if !doc.Favorite {
		t.Error("favorite should be set")
	}

	if err := s.ToggleFavorite(id); err != nil {
		t.Fatal(err)
	}
	doc, _ = s.GetDocument(id)
	if doc.Favorite {
		t.Error("favorite should be cleared")
	}

	if err := s.ToggleFavorite(9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// tagIDs maps tag names to row ids for inspecting reconciliation behavior.
func tagIDs(t *testing.T, s *Store) map[string]int64 {
	t.Helper()
	rows, err := s.DB().Query("SELECT name, id FROM tags")
	if err != nil {
		t.Fatal(err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var name string
		var id int64
		if err := rows.Scan(&name, &id); err != nil {
			t.Fatal(err)
		}
		out[name] = id
	}
	return out
}
