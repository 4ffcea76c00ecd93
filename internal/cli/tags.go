package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nbelyaev/libri/internal/ui"
)

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "List all tags with document counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openCatalog()
		if err != nil {
			return err
		}
		defer store.Close()

		tags, err := store.ListTags()
		if err != nil {
			return err
		}
		if len(tags) == 0 {
			fmt.Println(ui.Info("No tags"))
			return nil
		}

		tbl := ui.NewTable(2)
		tbl.AddRow("TAG", "DOCUMENTS")
		for _, t := range tags {
			tbl.AddRow(t.Name, strconv.Itoa(t.Documents))
		}
		fmt.Print(tbl.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tagsCmd)
}
