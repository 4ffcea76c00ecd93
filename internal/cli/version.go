package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/nbelyaev/libri/internal/buildinfo"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show libri version and build information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("libri %s\n", buildinfo.Short())
		if buildinfo.Date != "" {
			fmt.Printf("built: %s\n", buildinfo.Date)
		}
		fmt.Printf("go: %s\n", runtime.Version())
		fmt.Printf("platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
