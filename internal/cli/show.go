package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/nbelyaev/libri/internal/bnf"
	"github.com/nbelyaev/libri/internal/ui"
)

var showRead bool

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one document's details",
	Long: `Shows a document's metadata. With --read, also renders the adjacent
markdown content file in the terminal.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid document id %q", args[0])
		}

		store, err := openCatalog()
		if err != nil {
			return err
		}
		defer store.Close()

		doc, err := store.GetDocument(id)
		if err != nil {
			return err
		}
		if doc == nil {
			return fmt.Errorf("document %d not found", id)
		}

		title := doc.Title
		if doc.Favorite {
			title += " ★"
		}
		fmt.Println(ui.Header(title))
		fmt.Printf("Author:  %s\n", doc.Author)
		if doc.Lang != "" {
			fmt.Printf("Lang:    %s\n", doc.Lang)
		}
		if len(doc.Tags) > 0 {
			fmt.Printf("Tags:    %s\n", strings.Join(doc.Tags, ", "))
		}
		fmt.Printf("Sidecar: %s\n", doc.SidecarPath)
		if doc.Description != "" {
			fmt.Printf("\n%s\n", doc.Description)
		}

		if !showRead {
			return nil
		}

		contentPath := bnf.ContentPath(doc.SidecarPath, doc.Lang, doc.Lang)
		data, err := os.ReadFile(contentPath)
		if err != nil {
			return fmt.Errorf("no content file at %s: %w", contentPath, err)
		}

		fmt.Println()
		if !isatty.IsTerminal(os.Stdout.Fd()) {
			fmt.Print(string(data))
			return nil
		}
		rendered, err := ui.RenderMarkdown(string(data), ui.TermWidth())
		if err != nil {
			// Fall back to the raw markdown.
			fmt.Print(string(data))
			return nil
		}
		fmt.Print(rendered)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().BoolVarP(&showRead, "read", "r", false, "Render the content file")
}
