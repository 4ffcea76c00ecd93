package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nbelyaev/libri/internal/syncer"
	"github.com/nbelyaev/libri/internal/ui"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Reconcile the catalog with sidecar files on disk",
	Long: `Walks the library directory, imports every .bnf sidecar file, and prunes
catalog entries whose sidecar no longer exists.

Safe to run at any time: the sidecars are the source of truth and the
catalog converges to them.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openCatalog()
		if err != nil {
			return err
		}
		defer store.Close()

		s, err := syncer.New(syncer.Config{Store: store, Debug: debugFlag})
		if err != nil {
			return err
		}

		report, err := s.Sweep([]string{getLibraryPath()})
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}

		fmt.Println(ui.Successf("Scan complete: %d created, %d updated, %d pruned",
			report.Created, report.Updated, report.Pruned))
		if report.Skipped > 0 {
			fmt.Println(ui.Infof("%s skipped; run with --debug for details",
				ui.Count(report.Skipped, "sidecar", "sidecars")))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
}
