package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nbelyaev/libri/internal/catalog"
	"github.com/nbelyaev/libri/internal/ui"
)

var favCmd = &cobra.Command{
	Use:   "fav <id>",
	Short: "Toggle a document's favorite flag",
	Args:  cobra.ExactArgs(1),
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

		if err := store.ToggleFavorite(id); err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return fmt.Errorf("document %d not found", id)
			}
			return err
		}

		doc, err := store.GetDocument(id)
		if err != nil || doc == nil {
			return err
		}
		if doc.Favorite {
			fmt.Println(ui.Successf("Marked '%s' as favorite", doc.Title))
		} else {
			fmt.Println(ui.Successf("Unmarked '%s' as favorite", doc.Title))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(favCmd)
}
