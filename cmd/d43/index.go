package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/unfoldingword/door43-client/internal/index/sync"
	"github.com/unfoldingword/door43-client/internal/ui"
)

var indexCmd = &cobra.Command{
	Use:     "index",
	GroupID: "index",
	Short:   "Update the local catalog index",
	Long: `Download catalogs and index them into the local database.

Each update runs in one transaction. If a download fails or a payload is
malformed, nothing from that update is kept.`,
}

var indexPrimaryCmd = &cobra.Command{
	Use:   "primary [url]",
	Short: "Index the legacy primary catalog",
	Long: `Index the legacy primary catalog and everything it references.

This also registers the global auxiliary catalogs under the configured
global catalog host. The url defaults to primary_url from the config.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		url := cfg.PrimaryURL
		if len(args) == 1 {
			url = args[0]
		}
		return runUpdates(cmd, []update{primaryUpdate(url)})
	},
}

var indexCatalogCmd = &cobra.Command{
	Use:   "catalog <slug>...",
	Short: "Index registered auxiliary catalogs",
	Long: `Index one or more auxiliary catalogs by slug.

Catalogs are registered by 'd43 index primary'. Known slugs:
  langnames                 approved target languages
  temp-langnames            temporary target languages
  approved-temp-langnames   temporary to approved language links
  new-language-questions    new-language questionnaires`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		updates := make([]update, 0, len(args))
		for _, slug := range args {
			updates = append(updates, catalogUpdate(slug))
		}
		return runUpdates(cmd, updates)
	},
}

var indexAllCmd = &cobra.Command{
	Use:   "all",
	Short: "Index the primary catalog, then every global catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		updates := []update{primaryUpdate(cfg.PrimaryURL)}
		for _, slug := range sync.GlobalCatalogSlugs() {
			updates = append(updates, catalogUpdate(slug))
		}
		return runUpdates(cmd, updates)
	},
}

// update is one atomic index update.
type update struct {
	name string
	run  func(ctx context.Context, c *sync.Client, listener sync.ProgressListener) error
}

func primaryUpdate(url string) update {
	return update{
		name: "primary catalog",
		run: func(ctx context.Context, c *sync.Client, listener sync.ProgressListener) error {
			return c.UpdatePrimaryIndex(ctx, url, listener)
		},
	}
}

func catalogUpdate(slug string) update {
	return update{
		name: slug,
		run: func(ctx context.Context, c *sync.Client, listener sync.ProgressListener) error {
			return c.UpdateCatalogIndex(ctx, slug, listener)
		},
	}
}

// runUpdates runs every update in order. A failed update does not stop the
// rest; the failures are joined into the returned error.
func runUpdates(cmd *cobra.Command, updates []update) error {
	ctx := cmd.Context()
	library, err := openIndex(ctx)
	if err != nil {
		return err
	}
	defer library.Close()

	client := newClient(library, nil)
	out := cmd.OutOrStdout()
	progress := ui.NewProgress(cmd.ErrOrStderr(), stderrIsTerminal(cmd))

	var errs []error
	for _, u := range updates {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		start := time.Now()
		err := u.run(ctx, client, progress.Listener())
		progress.Done()
		elapsed := time.Since(start).Round(time.Millisecond)

		if err != nil {
			fmt.Fprintf(out, "%s %s failed after %v: %s\n", ui.RenderFail("✗"), u.name, elapsed, describe(err))
			errs = append(errs, fmt.Errorf("%s: %w", u.name, err))
			continue
		}
		fmt.Fprintf(out, "%s %s indexed in %v\n", ui.RenderPass("✓"), u.name, elapsed)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%d of %d updates failed: %w", len(errs), len(updates), errors.Join(errs...))
	}

	stats, err := library.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "   %s\n", ui.RenderMuted(fmt.Sprintf(
		"%d source languages, %d projects, %d resources, %d target languages",
		stats.SourceLanguages, stats.Projects, stats.Resources, stats.TargetLanguages+stats.TempTargetLanguages)))
	return nil
}

// describe prefixes err with its failure class.
func describe(err error) string {
	switch {
	case sync.IsTransport(err):
		return "download: " + err.Error()
	case sync.IsParse(err):
		return "malformed catalog: " + err.Error()
	default:
		return err.Error()
	}
}

func init() {
	indexCmd.PersistentFlags().String("host", "", "global catalog host (default from config)")
	indexCmd.AddCommand(indexPrimaryCmd, indexCatalogCmd, indexAllCmd)
	rootCmd.AddCommand(indexCmd)
}
