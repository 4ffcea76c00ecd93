package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nbelyaev/libri/internal/catalog"
	"github.com/nbelyaev/libri/internal/ui"
)

var (
	listTags      []string
	listAuthor    string
	listFavorites bool
	listSort      string
	listJSON      bool
)

var listCmd = &cobra.Command{
	Use:   "list [filter]",
	Short: "List catalog documents",
	Long: `Lists documents in the catalog, optionally narrowed by a search filter.

The filter matches titles, authors, and tag names case-insensitively
(Unicode-aware, so cyrillic matches work). Repeat --tag to require
several tags at once.

Examples:
  libri list
  libri list dune
  libri list --tag scifi --tag desert
  libri list --author herbert --favorites
  libri list --sort author`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openCatalog()
		if err != nil {
			return err
		}
		defer store.Close()

		opts := catalog.QueryOptions{
			Tags:          listTags,
			Author:        listAuthor,
			FavoritesOnly: listFavorites,
		}
		if len(args) == 1 {
			opts.Filter = args[0]
		}
		switch listSort {
		case "", "title":
			opts.Sort = catalog.SortByTitle
		case "author":
			opts.Sort = catalog.SortByAuthor
		default:
			return fmt.Errorf("unknown sort %q (expected title or author)", listSort)
		}

		docs, err := store.Query(opts)
		if err != nil {
			return fmt.Errorf("query failed: %w", err)
		}

		if listJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(docs)
		}

		if len(docs) == 0 {
			fmt.Println(ui.Info("No documents found"))
			return nil
		}

		tbl := ui.NewTable(5)
		tbl.AddRow("ID", "AUTHOR", "TITLE", "LANG", "TAGS")
		for _, d := range docs {
			title := d.Title
			if d.Favorite {
				title += " ★"
			}
			tbl.AddRow(
				strconv.FormatInt(d.ID, 10),
				d.Author,
				title,
				string(d.Lang),
				strings.Join(d.Tags, ", "),
			)
		}
		fmt.Print(tbl.String())
		fmt.Println()
		fmt.Println(ui.Count(len(docs), "document", "documents"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringArrayVarP(&listTags, "tag", "t", nil, "Require a tag (repeatable)")
	listCmd.Flags().StringVarP(&listAuthor, "author", "a", "", "Exact author (case-insensitive)")
	listCmd.Flags().BoolVarP(&listFavorites, "favorites", "f", false, "Only favorites")
	listCmd.Flags().StringVar(&listSort, "sort", "title", "Sort order: title or author")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output JSON")
}
