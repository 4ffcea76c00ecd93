package syncer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nbelyaev/libri/internal/catalog"
)

func newSyncer(t *testing.T) (*Syncer, *catalog.Store) {
	t.Helper()
	store, err := catalog.OpenInMemory()
	if err != nil {
		t.Fatalf("failed to open catalog: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	s, err := New(Config{Store: store})
	if err != nil {
		t.Fatalf("failed to create syncer: %v", err)
	}
	return s, store
}

func writeSidecar(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestApply(t *testing.T) {
	t.Run("upsert then modify then delete", func(t *testing.T) {
		s, store := newSyncer(t)
		dir := t.TempDir()
		path := filepath.Join(dir, "A [Smith].bnf")

		writeSidecar(t, path, `{"title":"A","author":"Smith","tags":["x","y"]}`)
		if err := s.Apply(Task{Op: OpUpsert, Path: path}); err != nil {
			t.Fatalf("create failed: %v", err)
		}

		docs, err := store.Query(catalog.QueryOptions{})
		if err != nil {
			t.Fatal(err)
		}
		if len(docs) != 1 {
			t.Fatalf("expected 1 document, got %d", len(docs))
		}
		id := docs[0].ID
		if len(docs[0].Tags) != 2 {
			t.Errorf("tags = %v", docs[0].Tags)
		}

		// Overwrite with a new tag set: same id, tags now {y,z}.
		writeSidecar(t, path, `{"title":"A","author":"Smith","tags":["y","z"]}`)
		if err := s.Apply(Task{Op: OpUpsert, Path: path}); err != nil {
			t.Fatalf("modify failed: %v", err)
		}
		docs, _ = store.Query(catalog.QueryOptions{})
		if len(docs) != 1 || docs[0].ID != id {
			t.Fatalf("modify must keep the same document, got %+v", docs)
		}
		if len(docs[0].Tags) != 2 || docs[0].Tags[0] != "y" || docs[0].Tags[1] != "z" {
			t.Errorf("tags = %v, want [y z]", docs[0].Tags)
		}

		if err := os.Remove(path); err != nil {
			t.Fatal(err)
		}
		if err := s.Apply(Task{Op: OpDelete, Path: path}); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		docs, _ = store.Query(catalog.QueryOptions{})
		if len(docs) != 0 {
			t.Errorf("document should be gone, got %v", docs)
		}

		// Tag filter on the long-removed tag finds nothing.
		docs, _ = store.Query(catalog.QueryOptions{Tags: []string{"x"}})
		if len(docs) != 0 {
			t.Errorf("tag x should match nothing, got %v", docs)
		}
	})

	t.Run("parse failure leaves catalog unchanged", func(t *testing.T) {
		s, store := newSyncer(t)
		dir := t.TempDir()
		path := filepath.Join(dir, "bad.bnf")
		writeSidecar(t, path, "{ this is not json")

		if err := s.Apply(Task{Op: OpUpsert, Path: path}); err == nil {
			t.Fatal("expected parse error")
		}
		docs, _ := store.Query(catalog.QueryOptions{})
		if len(docs) != 0 {
			t.Errorf("catalog should be unchanged, got %v", docs)
		}
	})

	t.Run("non-sidecar paths are ignored", func(t *testing.T) {
		s, store := newSyncer(t)
		dir := t.TempDir()
		path := filepath.Join(dir, "notes.md")
		writeSidecar(t, path, "# not a sidecar")

		if err := s.Apply(Task{Op: OpUpsert, Path: path}); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if err := s.Apply(Task{Op: OpDelete, Path: path}); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		docs, _ := store.Query(catalog.QueryOptions{})
		if len(docs) != 0 {
			t.Errorf("catalog should be empty, got %v", docs)
		}
	})

	t.Run("notification hook fires", func(t *testing.T) {
		store, err := catalog.OpenInMemory()
		if err != nil {
			t.Fatal(err)
		}
		defer store.Close()

		var applied []Task
		s, err := New(Config{
			Store:     store,
			OnApplied: func(task Task, err error) { applied = append(applied, task) },
		})
		if err != nil {
			t.Fatal(err)
		}

		dir := t.TempDir()
		path := filepath.Join(dir, "a.bnf")
		writeSidecar(t, path, `{"title":"A","author":"S"}`)
		if err := s.Apply(Task{Op: OpUpsert, Path: path}); err != nil {
			t.Fatal(err)
		}
		if len(applied) != 1 || applied[0].Path != path {
			t.Errorf("applied = %v", applied)
		}
	})
}

func TestSweep(t *testing.T) {
	t.Run("imports and counts", func(t *testing.T) {
		s, store := newSyncer(t)
		root := t.TempDir()

		writeSidecar(t, filepath.Join(root, "a.bnf"), `{"title":"A","author":"S","tags":["x"]}`)
		writeSidecar(t, filepath.Join(root, "sub", "b.bnf"), `{"title":"B","author":"S"}`)
		writeSidecar(t, filepath.Join(root, "bad.bnf"), "oops")
		writeSidecar(t, filepath.Join(root, "ignored.txt"), "not a sidecar")

		report, err := s.Sweep([]string{root})
		if err != nil {
			t.Fatalf("sweep failed: %v", err)
		}
		if report.Created != 2 || report.Updated != 0 || report.Pruned != 0 || report.Skipped != 1 {
			t.Errorf("report = %+v", report)
		}

		docs, _ := store.Query(catalog.QueryOptions{})
		if len(docs) != 2 {
			t.Errorf("expected 2 documents, got %d", len(docs))
		}

		// Second sweep updates in place.
		report, err = s.Sweep([]string{root})
		if err != nil {
			t.Fatal(err)
		}
		if report.Created != 0 || report.Updated != 2 {
			t.Errorf("second sweep report = %+v", report)
		}
	})

	t.Run("prunes documents with no backing file", func(t *testing.T) {
		s, store := newSyncer(t)
		root := t.TempDir()

		pathA := filepath.Join(root, "a.bnf")
		pathB := filepath.Join(root, "b.bnf")
		writeSidecar(t, pathA, `{"title":"A","author":"S"}`)
		writeSidecar(t, pathB, `{"title":"B","author":"S"}`)

		if _, err := s.Sweep([]string{root}); err != nil {
			t.Fatal(err)
		}

		if err := os.Remove(pathB); err != nil {
			t.Fatal(err)
		}

		report, err := s.Sweep([]string{root})
		if err != nil {
			t.Fatal(err)
		}
		if report.Pruned != 1 {
			t.Errorf("pruned = %d, want 1", report.Pruned)
		}

		docs, _ := store.Query(catalog.QueryOptions{})
		if len(docs) != 1 || docs[0].Title != "A" {
			t.Errorf("got %v", docs)
		}
	})
}

func TestDispatcher(t *testing.T) {
	t.Run("coalesces per path, last write wins", func(t *testing.T) {
		s, store := newSyncer(t)
		dir := t.TempDir()
		path := filepath.Join(dir, "a.bnf")
		writeSidecar(t, path, `{"title":"A","author":"S"}`)

		d := NewDispatcher(s, DispatcherConfig{Debounce: 10 * time.Millisecond})

		// Created immediately followed by Deleted: only the delete may
		// reach the catalog.
		d.Enqueue(Task{Op: OpUpsert, Path: path})
		if err := os.Remove(path); err != nil {
			t.Fatal(err)
		}
		d.Enqueue(Task{Op: OpDelete, Path: path})

		runDispatcher(t, d, 100*time.Millisecond)

		docs, _ := store.Query(catalog.QueryOptions{})
		if len(docs) != 0 {
			t.Errorf("expected no document for %s, got %v", path, docs)
		}
	})

	t.Run("delete then recreate resolves to present", func(t *testing.T) {
		s, store := newSyncer(t)
		dir := t.TempDir()
		path := filepath.Join(dir, "a.bnf")

		d := NewDispatcher(s, DispatcherConfig{Debounce: 10 * time.Millisecond})

		d.Enqueue(Task{Op: OpDelete, Path: path})
		writeSidecar(t, path, `{"title":"A","author":"S"}`)
		d.Enqueue(Task{Op: OpUpsert, Path: path})

		runDispatcher(t, d, 100*time.Millisecond)

		docs, _ := store.Query(catalog.QueryOptions{})
		if len(docs) != 1 {
			t.Errorf("expected document present, got %v", docs)
		}
	})

	t.Run("stop drains pending work", func(t *testing.T) {
		s, store := newSyncer(t)
		dir := t.TempDir()
		path := filepath.Join(dir, "a.bnf")
		writeSidecar(t, path, `{"title":"A","author":"S"}`)

		// Long debounce: the task can only be applied by the drain.
		d := NewDispatcher(s, DispatcherConfig{Debounce: time.Hour})
		d.Enqueue(Task{Op: OpUpsert, Path: path})

		runDispatcher(t, d, 20*time.Millisecond)

		docs, _ := store.Query(catalog.QueryOptions{})
		if len(docs) != 1 {
			t.Errorf("pending task was not drained, got %v", docs)
		}
	})
}

// runDispatcher runs d for roughly the given duration and waits for the
// drain to complete.
func runDispatcher(t *testing.T, d *Dispatcher, dur time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), dur)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = d.Run(ctx)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("dispatcher did not stop")
	}
}
