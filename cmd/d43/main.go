// Command d43 maintains a local index of the Door43 translation catalog.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/unfoldingword/door43-client/internal/config"
	"github.com/unfoldingword/door43-client/internal/index/db"
	"github.com/unfoldingword/door43-client/internal/index/fetch"
	"github.com/unfoldingword/door43-client/internal/index/sync"
	"github.com/unfoldingword/door43-client/internal/logging"
	"github.com/unfoldingword/door43-client/internal/ui"
)

// Commands annotated as services always log to stderr.
const serviceAnnotation = "service"

var (
	cfgFile string
	verbose bool

	v    *viper.Viper
	cfg  *config.Config
	logs *logging.Sink
)

// flagKeys maps flags to the config keys they override.
var flagKeys = map[string]string{
	"db":       "db",
	"log-file": "log.file",
	"host":     "global_catalog_host",
	"port":     "dashboard.port",
	"mirror":   "daemon.mirror_dir",
	"interval": "daemon.interval",
}

var rootCmd = &cobra.Command{
	Use:   "d43",
	Short: "Door43 catalog index client",
	Long: `d43 keeps a local SQLite index of the Door43 translation catalog.

It downloads the legacy primary catalog (source languages, projects and
resources) and the global auxiliary catalogs (target languages, temporary
languages and their approvals, new-language questionnaires). Every update
is atomic: a failed download or malformed payload leaves the index as it was.

Configuration is read from d43.yaml or d43.toml in the working directory or
$HOME/.door43, from D43_* environment variables, and from flags.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		v = config.New()
		if err := config.ReadFile(v, cfgFile); err != nil {
			return err
		}
		if err := config.BindFlags(v, cmd.Flags(), flagKeys); err != nil {
			return err
		}
		c, err := config.Unmarshal(v)
		if err != nil {
			return err
		}
		cfg = c

		_, service := cmd.Annotations[serviceAnnotation]
		logs = logging.Open(logging.Options{
			File:       cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
			Compress:   cfg.Log.Compress,
			Quiet:      !verbose && !service,
			Stderr:     cmd.ErrOrStderr(),
		})
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logs != nil {
			return logs.Close()
		}
		return nil
	},
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "index", Title: "Index Commands:"},
		&cobra.Group{ID: "serve", Title: "Service Commands:"},
	)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ./d43.yaml or $HOME/.door43/d43.yaml)")
	rootCmd.PersistentFlags().String("db", "", "index database path")
	rootCmd.PersistentFlags().String("log-file", "", "also write logs to this file, rotated by size")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log pipeline activity to stderr")
}

// openIndex opens the configured index database, creating it if needed.
func openIndex(ctx context.Context) (*db.DB, error) {
	library, err := db.OpenIndex(ctx, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to open index %s: %w", cfg.DB, err)
	}
	library.SetLogger(logs.Logger("[index] "))
	return library, nil
}

// newClient builds a sync client over library from the loaded config.
func newClient(library *db.DB, observer sync.Observer) *sync.Client {
	fetcher := fetch.New(fetch.Options{
		RetryMax:  cfg.Fetch.Retries,
		Timeout:   cfg.Fetch.Timeout,
		UserAgent: cfg.Fetch.UserAgent,
		Logger:    logs.Logger("[fetch] "),
	})
	return sync.New(library, fetcher, sync.Options{
		GlobalCatalogHost: cfg.GlobalCatalogHost,
		Logger:            logs.Logger("[sync] "),
		Observer:          observer,
	})
}

// stderrIsTerminal reports whether cmd's stderr is an interactive terminal.
func stderrIsTerminal(cmd *cobra.Command) bool {
	f, ok := cmd.ErrOrStderr().(*os.File)
	return ok && ui.IsTerminal(f)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ui.RenderFail("Error:"), err)
		os.Exit(1)
	}
}
