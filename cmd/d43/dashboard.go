package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unfoldingword/door43-client/internal/index/dashboard"
)

var dashboardCmd = &cobra.Command{
	Use:         "dashboard",
	GroupID:     "serve",
	Short:       "Serve the real-time WebSocket dashboard",
	Annotations: map[string]string{serviceAnnotation: "true"},
	Long: `Start a WebSocket dashboard server over the local index.

Clients receive the index stats on connect. Sync events are broadcast for
updates run in the same process, so use 'd43 daemon --dashboard' to follow
refreshes live.

WebSocket messages include:
- progress: one pipeline progress event (tag, max, completed)
- sync_started: an update began
- sync_complete: an update committed
- sync_failed: an update was rolled back (kind: transport, parse, other)
- stats: index row counts

Example usage:
  d43 dashboard                   # Start on the configured port (8080)
  d43 dashboard --port 9000       # Start on a custom port`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		library, err := openIndex(ctx)
		if err != nil {
			return err
		}
		defer library.Close()

		server := dashboard.NewServer(&dashboard.Config{
			Port:   cfg.Dashboard.Port,
			Index:  library,
			Logger: logs.Logger("[dashboard] "),
		})
		if err := server.Start(); err != nil {
			return fmt.Errorf("failed to start dashboard: %w", err)
		}

		out := cmd.OutOrStdout()
		addr := server.GetAddr()
		fmt.Fprintf(out, "Dashboard server started on http://%s\n", addr)
		fmt.Fprintf(out, "WebSocket endpoint: ws://%s/ws\n", addr)
		fmt.Fprintf(out, "Health check: http://%s/health\n", addr)
		fmt.Fprintln(out, "\nPress Ctrl+C to stop...")

		<-ctx.Done()

		fmt.Fprintln(out, "\nShutting down dashboard server...")
		if err := server.Stop(); err != nil {
			return err
		}
		fmt.Fprintln(out, "Dashboard server stopped")
		return nil
	},
}

func init() {
	dashboardCmd.Flags().IntP("port", "p", 0, "port to listen on (default from config)")
	rootCmd.AddCommand(dashboardCmd)
}
