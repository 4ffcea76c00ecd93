package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nbelyaev/libri/internal/server"
	"github.com/nbelyaev/libri/internal/syncer"
	"github.com/nbelyaev/libri/internal/watcher"
)

var (
	serveAddr  string
	serveWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a read-only web view of the catalog",
	Long: `Starts an HTTP server with a browsable view of the catalog: search,
tag and author filters, favorites, and rendered document content.

The listen address comes from --addr, then the [serve] section of the
config, then the default ` + "`127.0.0.1:5000`" + `. With --watch, the
library is also watched so sidecar edits show up without a rescan.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := serveAddr
		if addr == "" {
			addr = getConfig().GetServeAddr()
		}

		store, err := openCatalog()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigCh
			fmt.Println("\nShutting down server...")
			cancel()
		}()

		var dispatcherDone chan struct{}
		if serveWatch {
			s, err := syncer.New(syncer.Config{Store: store, Debug: debugFlag})
			if err != nil {
				return err
			}
			if _, err := s.Sweep([]string{getLibraryPath()}); err != nil {
				return fmt.Errorf("initial sweep failed: %w", err)
			}

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

			dispatcherDone = make(chan struct{})
			go func() {
				defer close(dispatcherDone)
				_ = disp.Run(ctx)
			}()
			go func() {
				if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
					fmt.Fprintf(os.Stderr, "watcher stopped: %v\n", err)
				}
			}()
			fmt.Printf("Watching library: %s\n", getLibraryPath())
		}

		fmt.Printf("Serving catalog on http://%s\n", addr)
		fmt.Println("Press Ctrl+C to stop")

		err = server.New(store, addr).ListenAndServe(ctx)
		if dispatcherDone != nil {
			// Let the dispatcher drain before the store closes.
			<-dispatcherDone
		}
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (host:port)")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "Also watch the library for sidecar changes")
}
