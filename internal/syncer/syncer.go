// Package syncer keeps the catalog consistent with the sidecar files on
// disk. It owns the parse→resolve→upsert→reconcile pipeline that every
// synchronization task runs through, the bounded dispatcher that feeds
// watch events into it, and the reconciliation sweep that imports a whole
// tree and prunes entries with no backing file.
package syncer

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/nbelyaev/libri/internal/bnf"
	"github.com/nbelyaev/libri/internal/catalog"
)

// Op is the kind of a synchronization task.
type Op int

const (
	// OpUpsert re-reads the sidecar and updates the catalog. Used for both
	// created and modified files: the pipeline is identical.
	OpUpsert Op = iota
	// OpDelete removes the catalog entry recorded for the path.
	OpDelete
)

func (op Op) String() string {
	if op == OpDelete {
		return "delete"
	}
	return "upsert"
}

// Task is one unit of synchronization work for a single sidecar path.
type Task struct {
	Op   Op
	Path string
}

// Config holds configuration options for a Syncer.
type Config struct {
	Store *catalog.Store
	Debug bool
	// OnApplied, when set, is called after every applied task with the
	// task's outcome. Presentation layers use it as their catalog-changed
	// notification.
	OnApplied func(task Task, err error)
}

// Syncer applies synchronization tasks against a catalog store.
type Syncer struct {
	store     *catalog.Store
	debug     bool
	onApplied func(Task, error)
}

// New creates a Syncer.
func New(cfg Config) (*Syncer, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("catalog store is required")
	}
	return &Syncer{
		store:     cfg.Store,
		debug:     cfg.Debug,
		onApplied: cfg.OnApplied,
	}, nil
}

// Apply runs one task through the pipeline. Errors are returned for the
// caller to log or surface; the catalog is never left half-updated, and a
// failed task never poisons later ones.
func (s *Syncer) Apply(task Task) error {
	var err error
	switch task.Op {
	case OpDelete:
		if bnf.IsSidecar(task.Path) {
			err = s.store.DeleteBySidecarPath(task.Path)
		}
	default:
		_, err = s.upsertFromFile(task.Path)
	}

	if s.onApplied != nil {
		s.onApplied(task, err)
	}
	return err
}

// upsertFromFile reads, parses and imports one sidecar. The file read and
// parse happen before any transaction begins. Reports whether a new
// document was created.
func (s *Syncer) upsertFromFile(path string) (created bool, err error) {
	if !bnf.IsSidecar(path) {
		return false, nil
	}

	rec, err := bnf.ParseFile(path)
	if err != nil {
		return false, err
	}

	id, created, err := s.store.UpsertDocument(rec.Title, rec.Author, rec.Description, rec.Lang, path)
	if err != nil {
		return false, err
	}
	if err := s.store.SetTags(id, rec.Tags); err != nil {
		return created, err
	}
	return created, nil
}

// SweepReport summarizes one reconciliation sweep.
type SweepReport struct {
	Created int
	Updated int
	Pruned  int
	// Skipped counts sidecars dropped for parse or I/O errors.
	Skipped int
}

// Sweep walks every root, imports each sidecar found, then prunes catalog
// documents whose recorded sidecar path no longer exists on disk. A bad
// file is logged and skipped; it never halts the rest of the tree. Safe to
// run while the dispatcher is active: every store operation is its own
// transaction and sweeping the same file twice is idempotent.
func (s *Syncer) Sweep(roots []string) (SweepReport, error) {
	var report SweepReport

	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				s.debugf("sweep: skipping %s: %v", path, err)
				return nil
			}
			if d.IsDir() || !bnf.IsSidecar(path) {
				return nil
			}
			created, err := s.upsertFromFile(path)
			if err != nil {
				s.debugf("sweep: %v", err)
				report.Skipped++
				return nil
			}
			if created {
				report.Created++
			} else {
				report.Updated++
			}
			return nil
		})
		if err != nil {
			return report, fmt.Errorf("failed to sweep %s: %w", root, err)
		}
	}

	paths, err := s.store.AllSidecarPaths()
	if err != nil {
		return report, err
	}
	for _, path := range paths {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := s.store.DeleteBySidecarPath(path); err != nil {
				return report, err
			}
			report.Pruned++
		}
	}

	return report, nil
}

func (s *Syncer) debugf(format string, args ...any) {
	if s.debug {
		fmt.Fprintf(os.Stderr, "[libri-sync] "+format+"\n", args...)
	}
}
