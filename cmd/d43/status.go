package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/unfoldingword/door43-client/internal/index/db"
	"github.com/unfoldingword/door43-client/internal/ui"
)

// statusReport is the machine-readable form of `d43 status`.
type statusReport struct {
	DB            string    `json:"db" yaml:"db" toml:"db"`
	SizeBytes     int64     `json:"size_bytes" yaml:"size_bytes" toml:"size_bytes"`
	Modified      time.Time `json:"modified" yaml:"modified" toml:"modified"`
	SchemaVersion int       `json:"schema_version" yaml:"schema_version" toml:"schema_version"`
	Stats         *db.Stats `json:"stats" yaml:"stats" toml:"stats"`
}

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "index",
	Short:   "Show index location and contents",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		info, err := os.Stat(cfg.DB)
		if os.IsNotExist(err) {
			fmt.Fprintf(out, "\n%s Index not initialized\n", ui.RenderWarn("⚠"))
			fmt.Fprintf(out, "   Run 'd43 index all' to create it at %s\n\n", cfg.DB)
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to check index: %w", err)
		}

		library, err := openIndex(cmd.Context())
		if err != nil {
			return err
		}
		defer library.Close()

		stats, err := library.Stats(cmd.Context())
		if err != nil {
			return err
		}

		report := statusReport{
			DB:            cfg.DB,
			SizeBytes:     info.Size(),
			Modified:      info.ModTime().UTC().Truncate(time.Second),
			SchemaVersion: db.SchemaVersion,
			Stats:         stats,
		}
		return render(out, formatOf(cmd), "", report, func(w io.Writer) error {
			return writeStatus(w, report)
		})
	},
}

func writeStatus(w io.Writer, r statusReport) error {
	s := r.Stats
	rows := [][]string{
		{"Source languages", fmt.Sprint(s.SourceLanguages)},
		{"Projects", fmt.Sprint(s.Projects)},
		{"Resources", fmt.Sprint(s.Resources)},
		{"Target languages", fmt.Sprint(s.TargetLanguages)},
		{"Temporary target languages", fmt.Sprint(s.TempTargetLanguages)},
		{"Approvals", fmt.Sprint(s.Approvals)},
		{"Questionnaires", fmt.Sprint(s.Questionnaires)},
		{"Questions", fmt.Sprint(s.Questions)},
		{"Catalogs", fmt.Sprint(s.Catalogs)},
		{"Versifications", fmt.Sprint(s.Versifications)},
		{"Chunk markers", fmt.Sprint(s.ChunkMarkers)},
	}

	_, err := fmt.Fprintf(w, "\n%s\n\nLocation: %s\nSize: %s\nModified: %s\n\n%s\n\n",
		ui.RenderHeader("Door43 Index Status"),
		r.DB,
		ui.FormatBytes(r.SizeBytes),
		r.Modified.Local().Format("2006-01-02 15:04:05"),
		ui.Table([]string{"Entity", "Rows"}, rows))
	return err
}

func init() {
	addFormatFlag(statusCmd, false)
	rootCmd.AddCommand(statusCmd)
}
