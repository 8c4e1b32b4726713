package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unfoldingword/door43-client/internal/index/daemon"
	"github.com/unfoldingword/door43-client/internal/index/dashboard"
	"github.com/unfoldingword/door43-client/internal/index/sync"
	"github.com/unfoldingword/door43-client/internal/ui"
)

var daemonCmd = &cobra.Command{
	Use:         "daemon",
	GroupID:     "serve",
	Short:       "Keep the index fresh in the foreground",
	Annotations: map[string]string{serviceAnnotation: "true"},
	Long: `Run the index daemon in the foreground.

The daemon re-indexes the primary catalog and each configured auxiliary
catalog on start, every --interval, and, with --mirror, whenever catalog
JSON files under the mirror directory change. Failed refreshes are logged
and retried on the next trigger.

With --dashboard, a WebSocket dashboard on --port follows every refresh.

Stop with Ctrl+C.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		library, err := openIndex(ctx)
		if err != nil {
			return err
		}
		defer library.Close()

		var observer sync.Observer
		withDashboard, _ := cmd.Flags().GetBool("dashboard")
		if withDashboard {
			server := dashboard.NewServer(&dashboard.Config{
				Port:   cfg.Dashboard.Port,
				Index:  library,
				Logger: logs.Logger("[dashboard] "),
			})
			if err := server.Start(); err != nil {
				return fmt.Errorf("failed to start dashboard: %w", err)
			}
			defer func() {
				if err := server.Stop(); err != nil {
					logs.Logger("[dashboard] ").Printf("Error during shutdown: %v", err)
				}
			}()
			observer = dashboard.NewHandler(server, logs.Logger("[dashboard] "))
			fmt.Fprintf(cmd.OutOrStdout(), "   Dashboard: ws://%s/ws\n", server.GetAddr())
		}

		d, err := daemon.New(newClient(library, observer), &daemon.Config{
			PrimaryURL: cfg.PrimaryURL,
			Catalogs:   cfg.Daemon.Catalogs,
			Interval:   cfg.Daemon.Interval,
			MirrorDir:  cfg.Daemon.MirrorDir,
			Debounce:   cfg.Daemon.Debounce,
			Logger:     logs.Logger("[daemon] "),
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s Starting index daemon...\n", ui.RenderAccent("↻"))
		fmt.Fprintf(out, "   Index: %s\n", cfg.DB)
		fmt.Fprintf(out, "   Primary: %s\n", cfg.PrimaryURL)
		if cfg.Daemon.Interval > 0 {
			fmt.Fprintf(out, "   Interval: %v\n", cfg.Daemon.Interval)
		}
		if cfg.Daemon.MirrorDir != "" {
			fmt.Fprintf(out, "   Mirror: %s\n", cfg.Daemon.MirrorDir)
		}
		fmt.Fprintf(out, "\nPress Ctrl+C to stop\n\n")

		if err := d.Run(ctx); err != nil {
			return err
		}
		total, failed := d.Refreshes()
		fmt.Fprintf(out, "%s Daemon stopped after %d refreshes (%d failed)\n", ui.RenderPass("✓"), total, failed)
		return nil
	},
}

func init() {
	daemonCmd.Flags().String("mirror", "", "local catalog mirror to watch for changes")
	daemonCmd.Flags().Duration("interval", 0, "refresh interval, 0 keeps the configured value")
	daemonCmd.Flags().Bool("dashboard", false, "also serve the WebSocket dashboard")
	daemonCmd.Flags().IntP("port", "p", 0, "dashboard port (default from config)")
	rootCmd.AddCommand(daemonCmd)
}
