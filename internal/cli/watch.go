package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nbelyaev/libri/internal/syncer"
	"github.com/nbelyaev/libri/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the library and keep the catalog in sync",
	Long: `Watches the library directory for sidecar changes and applies them to
the catalog as they happen.

Runs in the foreground. An initial reconciliation sweep brings the
catalog up to date before watching starts, so changes made while the
watcher was down are not missed.

The watcher:
- Monitors all .bnf files in the library
- Debounces rapid changes (waits 100ms after last change)
- Ignores .libri/, .git/, .trash/ directories

Examples:
  # Watch the default library
  libri watch

  # Watch with debug output
  libri watch --debug`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	store, err := openCatalog()
	if err != nil {
		return err
	}
	defer store.Close()

	s, err := syncer.New(syncer.Config{
		Store: store,
		Debug: debugFlag,
		OnApplied: func(task syncer.Task, err error) {
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error syncing %s: %v\n", task.Path, err)
			} else if debugFlag {
				fmt.Printf("Synced (%s): %s\n", task.Op, task.Path)
			}
		},
	})
	if err != nil {
		return err
	}

	// Catch up before watching: events from downtime are gone.
	report, err := s.Sweep([]string{getLibraryPath()})
	if err != nil {
		return fmt.Errorf("initial sweep failed: %w", err)
	}
	fmt.Printf("Initial sweep: %d created, %d updated, %d pruned\n",
		report.Created, report.Updated, report.Pruned)

	disp := syncer.NewDispatcher(s, syncer.DispatcherConfig{})

	w, err := watcher.New(watcher.Config{
		Roots:      []string{getLibraryPath()},
		Dispatcher: disp,
		Syncer:     s,
		Debug:      debugFlag,
	})
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nShutting down watcher...")
		cancel()
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = disp.Run(ctx)
	}()

	fmt.Printf("Watching library: %s\n", getLibraryPath())
	fmt.Println("Press Ctrl+C to stop")

	err = w.Start(ctx)
	// Wait for the dispatcher to drain pending tasks before closing the store.
	<-done
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
