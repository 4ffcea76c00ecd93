package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nbelyaev/libri/internal/catalog"
	"github.com/nbelyaev/libri/internal/export"
	"github.com/nbelyaev/libri/internal/ui"
)

var (
	exportFormat string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the catalog to CSV, JSON, or YAML",
	Long: `Exports every catalog document with its tags.

Examples:
  libri export --format csv --output catalog.csv
  libri export --format json > catalog.json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := export.ParseFormat(exportFormat)
		if err != nil {
			return err
		}

		store, err := openCatalog()
		if err != nil {
			return err
		}
		defer store.Close()

		docs, err := store.Query(catalog.QueryOptions{})
		if err != nil {
			return err
		}

		out := os.Stdout
		if exportOutput != "" {
			f, err := os.Create(exportOutput)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer f.Close()
			out = f
		}

		if err := export.Write(out, format, docs); err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		if exportOutput != "" {
			fmt.Println(ui.Successf("Exported %s to %s",
				ui.Count(len(docs), "document", "documents"), exportOutput))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "Output format: csv, json, or yaml")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default stdout)")
}
