package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nbelyaev/libri/internal/catalog"
	"github.com/nbelyaev/libri/internal/config"
	"github.com/nbelyaev/libri/internal/ui"
)

var initSetDefault bool

var initCmd = &cobra.Command{
	Use:   "init <name> <path>",
	Short: "Register a library and create its catalog",
	Long: `Registers a library directory under a name in the global config and
creates the .libri/ catalog directory inside it.

The first registered library becomes the default. Use --default to make
an additional library the default.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, path := args[0], args[1]

		absPath, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("failed to resolve path: %w", err)
		}
		if err := os.MkdirAll(absPath, 0755); err != nil {
			return fmt.Errorf("failed to create library directory: %w", err)
		}

		// Create the catalog so the directory is usable right away.
		store, err := catalog.Open(absPath)
		if err != nil {
			return fmt.Errorf("failed to create catalog: %w", err)
		}
		store.Close()

		var loaded *config.Config
		if configPath != "" {
			loaded, err = config.LoadFrom(configPath)
		} else {
			loaded, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if loaded.Libraries == nil {
			loaded.Libraries = make(map[string]string)
		}
		loaded.Libraries[name] = absPath
		if loaded.DefaultLibrary == "" || initSetDefault {
			loaded.DefaultLibrary = name
		}

		if configPath != "" {
			err = config.SaveTo(configPath, loaded)
		} else {
			err = config.Save(loaded)
		}
		if err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		fmt.Println(ui.Successf("Registered library '%s' at %s", name, absPath))
		if loaded.DefaultLibrary == name {
			fmt.Println(ui.Info("It is the default library"))
		}
		fmt.Println(ui.Hint("Run 'libri scan' to import existing sidecar files"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initSetDefault, "default", false, "Make this library the default")
}
