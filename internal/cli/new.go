package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"
	"github.com/spf13/cobra"

	"github.com/nbelyaev/libri/internal/atomicfile"
	"github.com/nbelyaev/libri/internal/bnf"
	"github.com/nbelyaev/libri/internal/syncer"
	"github.com/nbelyaev/libri/internal/ui"
)

var (
	newAuthor      string
	newLang        string
	newDescription string
	newTags        []string
	newDir         string
	newFrom        string
)

var newCmd = &cobra.Command{
	Use:   "new [title]",
	Short: "Create a new sidecar file and catalog entry",
	Long: `Creates a .bnf sidecar for a document and imports it into the catalog.

Given a title, the file name is derived from it (and the author, when
given), e.g. "Война и мир" by "Толстой" becomes voina-i-mir-tolstoi.bnf.
Use --dir to place it in a subdirectory of the library.

With --from, the sidecar is created next to an existing content file and
shares its base name. Title and author are inferred from a
"Title [Author]" base name, and a .ru.md/.en.md suffix sets the
language; explicit flags and the title argument override the inference.

Examples:
  libri new "Dune" --author Herbert --lang en --tag scifi
  libri new --from "/lib/Dune [Herbert].md"`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var title string
		if len(args) == 1 {
			title = args[0]
		}

		lang := bnf.Lang(newLang)
		if !lang.Valid() {
			return fmt.Errorf("invalid lang %q (expected ru, en, or en-ru)", newLang)
		}

		author := newAuthor

		var path string
		if newFrom != "" {
			if _, err := os.Stat(newFrom); err != nil {
				return fmt.Errorf("content file not found: %w", err)
			}
			base := strings.TrimSuffix(newFrom, filepath.Ext(newFrom))
			switch {
			case strings.HasSuffix(base, ".ru"):
				base = strings.TrimSuffix(base, ".ru")
				if lang == "" {
					lang = bnf.LangRU
				}
			case strings.HasSuffix(base, ".en"):
				base = strings.TrimSuffix(base, ".en")
				if lang == "" {
					lang = bnf.LangEN
				}
			}
			path = base + bnf.Extension

			inferredTitle, inferredAuthor := bnf.InferIdentity(path)
			if title == "" {
				title = inferredTitle
			}
			if author == "" {
				author = inferredAuthor
			}
		} else {
			if title == "" {
				return fmt.Errorf("a title or --from content file is required")
			}
			base := title
			if author != "" {
				base += " " + author
			}
			name := slug.Make(base) + bnf.Extension

			dir := getLibraryPath()
			if newDir != "" {
				dir = filepath.Join(dir, newDir)
				if err := os.MkdirAll(dir, 0755); err != nil {
					return fmt.Errorf("failed to create directory: %w", err)
				}
			}
			path = filepath.Join(dir, name)
		}
		if title == "" {
			return fmt.Errorf("title must not be empty")
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("sidecar already exists: %s", path)
		}

		rec := &bnf.Record{
			Title:       title,
			Author:      author,
			Lang:        lang,
			Description: newDescription,
			Tags:        newTags,
		}
		data, err := bnf.Serialize(rec, nil)
		if err != nil {
			return err
		}
		if err := atomicfile.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("failed to write sidecar: %w", err)
		}

		// Import right away instead of waiting for a watcher or scan.
		store, err := openCatalog()
		if err != nil {
			return err
		}
		defer store.Close()
		s, err := syncer.New(syncer.Config{Store: store, Debug: debugFlag})
		if err != nil {
			return err
		}
		if err := s.Apply(syncer.Task{Op: syncer.OpUpsert, Path: path}); err != nil {
			return fmt.Errorf("sidecar written but import failed: %w", err)
		}

		fmt.Println(ui.Successf("Created %s", path))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(newCmd)
	newCmd.Flags().StringVarP(&newAuthor, "author", "a", "", "Author")
	newCmd.Flags().StringVar(&newLang, "lang", "", "Language: ru, en, or en-ru")
	newCmd.Flags().StringVarP(&newDescription, "description", "d", "", "Description")
	newCmd.Flags().StringArrayVarP(&newTags, "tag", "t", nil, "Tag (repeatable)")
	newCmd.Flags().StringVar(&newDir, "dir", "", "Subdirectory of the library")
	newCmd.Flags().StringVar(&newFrom, "from", "", "Existing content file to describe")
}
