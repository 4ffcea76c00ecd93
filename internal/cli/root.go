// Package cli implements the command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nbelyaev/libri/internal/catalog"
	"github.com/nbelyaev/libri/internal/config"
)

var (
	// Global flags
	libraryName     string // Named library from config
	libraryPathFlag string // Explicit path (rare)
	configPath      string
	debugFlag       bool

	// Resolved values
	resolvedLibraryPath string
	cfg                 *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "libri",
	Short: "Libri - a sidecar-driven document catalog",
	Long: `Libri keeps a searchable catalog of documents described by .bnf sidecar
files. The sidecars are the source of truth; the catalog database is a
derived index that can always be rebuilt with 'libri scan'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip library resolution for commands that don't need it
		switch cmd.Name() {
		case "init", "completion", "help", "version":
			return nil
		}
		if cmd.Parent() != nil && cmd.Parent().Name() == "completion" {
			return nil
		}

		var err error
		cfg, err = loadGlobalConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		// Resolve library path: explicit path > named library > default
		if libraryPathFlag != "" {
			resolvedLibraryPath = libraryPathFlag
		} else {
			resolvedLibraryPath, err = cfg.GetLibraryPath(libraryName)
			if err != nil {
				return fmt.Errorf(`%w

Either:
  1. Use --library <name> (from config)
  2. Use --path /path/to/library
  3. Run 'libri init <name> /path/to/library' to register one`, err)
			}
		}

		if _, err := os.Stat(resolvedLibraryPath); os.IsNotExist(err) {
			return fmt.Errorf("library not found: %s", resolvedLibraryPath)
		}

		return nil
	},
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&libraryName, "library", "l", "", "Named library from config")
	rootCmd.PersistentFlags().StringVar(&libraryPathFlag, "path", "", "Explicit path to library directory")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Enable debug logging")
}

// getLibraryPath returns the resolved library path.
func getLibraryPath() string {
	return resolvedLibraryPath
}

// getConfig returns the loaded config.
func getConfig() *config.Config {
	return cfg
}

func loadGlobalConfig() (*config.Config, error) {
	var (
		loaded *config.Config
		err    error
	)
	if configPath != "" {
		loaded, err = config.LoadFrom(configPath)
	} else {
		loaded, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if loaded == nil {
		loaded = &config.Config{}
	}
	return loaded, nil
}

// openCatalog opens the catalog for the resolved library.
func openCatalog() (*catalog.Store, error) {
	store, err := catalog.Open(getLibraryPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	return store, nil
}
