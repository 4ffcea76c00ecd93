package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nbelyaev/libri/internal/atomicfile"
	"github.com/nbelyaev/libri/internal/bnf"
	"github.com/nbelyaev/libri/internal/syncer"
	"github.com/nbelyaev/libri/internal/ui"
)

var (
	setTitle       string
	setAuthor      string
	setLang        string
	setDescription string
	setTags        []string
)

var setCmd = &cobra.Command{
	Use:   "set <id>",
	Short: "Edit a document's sidecar fields",
	Long: `Updates fields of a document's .bnf sidecar and re-imports it.

Only the flags you pass are changed. Unknown fields that other tools may
have written into the sidecar are preserved. Passing --tag replaces the
whole tag list; pass it with an empty value to clear all tags.

Examples:
  libri set 12 --title "Dune Messiah"
  libri set 12 --tag scifi --tag desert
  libri set 12 --lang en-ru --description "Bilingual edition"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openCatalog()
		if err != nil {
			return err
		}
		defer store.Close()

		doc, err := lookupDocument(store, args[0])
		if err != nil {
			return err
		}

		existing, err := os.ReadFile(doc.SidecarPath)
		if err != nil {
			return fmt.Errorf("failed to read sidecar: %w", err)
		}
		rec, err := bnf.Parse(existing)
		if err != nil {
			return fmt.Errorf("failed to parse sidecar %s: %w", doc.SidecarPath, err)
		}

		if cmd.Flags().Changed("title") {
			if setTitle == "" {
				return fmt.Errorf("title must not be empty")
			}
			rec.Title = setTitle
		}
		if cmd.Flags().Changed("author") {
			rec.Author = setAuthor
		}
		if cmd.Flags().Changed("lang") {
			lang := bnf.Lang(setLang)
			if !lang.Valid() {
				return fmt.Errorf("invalid lang %q (expected ru, en, or en-ru)", setLang)
			}
			rec.Lang = lang
		}
		if cmd.Flags().Changed("description") {
			rec.Description = setDescription
		}
		if cmd.Flags().Changed("tag") {
			rec.Tags = setTags
		}

		data, err := bnf.Serialize(rec, existing)
		if err != nil {
			return err
		}
		if err := atomicfile.WriteFile(doc.SidecarPath, data, 0644); err != nil {
			return fmt.Errorf("failed to write sidecar: %w", err)
		}

		// A retitle changes document identity; drop the old entry so the
		// re-import does not leave both behind.
		if rec.Title != doc.Title || rec.Author != doc.Author {
			if err := store.DeleteBySidecarPath(doc.SidecarPath); err != nil {
				return err
			}
		}

		s, err := syncer.New(syncer.Config{Store: store, Debug: debugFlag})
		if err != nil {
			return err
		}
		if err := s.Apply(syncer.Task{Op: syncer.OpUpsert, Path: doc.SidecarPath}); err != nil {
			return fmt.Errorf("sidecar written but import failed: %w", err)
		}

		fmt.Println(ui.Successf("Updated %s", doc.SidecarPath))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(setCmd)
	setCmd.Flags().StringVar(&setTitle, "title", "", "New title")
	setCmd.Flags().StringVarP(&setAuthor, "author", "a", "", "New author")
	setCmd.Flags().StringVar(&setLang, "lang", "", "New language: ru, en, or en-ru")
	setCmd.Flags().StringVarP(&setDescription, "description", "d", "", "New description")
	setCmd.Flags().StringArrayVarP(&setTags, "tag", "t", nil, "Replacement tag list (repeatable)")
}
