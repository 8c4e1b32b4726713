package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/unfoldingword/door43-client/internal/index/db"
	"github.com/unfoldingword/door43-client/internal/index/schema"
	"github.com/unfoldingword/door43-client/internal/ui"
)

var queryCmd = &cobra.Command{
	Use:     "query",
	GroupID: "index",
	Short:   "Read from the local index",
	Long: `Read indexed catalog data. Output is a table by default; --format
selects json, yaml or toml for scripting.`,
}

// queryRunner adapts a read against the index into a cobra RunE.
func queryRunner(fn func(ctx context.Context, idx db.Index, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		library, err := openIndex(cmd.Context())
		if err != nil {
			return err
		}
		defer library.Close()
		return fn(cmd.Context(), library, cmd, args)
	}
}

func tableWriter(headers []string, rows [][]string) func(io.Writer) error {
	return func(w io.Writer) error {
		if len(rows) == 0 {
			_, err := fmt.Fprintln(w, ui.RenderMuted("(none)"))
			return err
		}
		_, err := fmt.Fprintln(w, ui.Table(headers, rows))
		return err
	}
}

var queryLanguagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List source languages",
	Args:  cobra.NoArgs,
	RunE: queryRunner(func(ctx context.Context, idx db.Index, cmd *cobra.Command, args []string) error {
		langs, err := idx.GetSourceLanguages(ctx)
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(langs))
		for _, l := range langs {
			rows = append(rows, []string{l.Slug, l.Name, l.Direction})
		}
		return render(cmd.OutOrStdout(), formatOf(cmd), "languages", langs,
			tableWriter([]string{"Slug", "Name", "Direction"}, rows))
	}),
}

var queryProjectsCmd = &cobra.Command{
	Use:   "projects <language>",
	Short: "List projects of a source language",
	Args:  cobra.ExactArgs(1),
	RunE: queryRunner(func(ctx context.Context, idx db.Index, cmd *cobra.Command, args []string) error {
		projects, err := idx.GetProjects(ctx, args[0])
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(projects))
		for _, p := range projects {
			rows = append(rows, []string{strconv.Itoa(p.Sort), p.Slug, p.Name})
		}
		return render(cmd.OutOrStdout(), formatOf(cmd), "projects", projects,
			tableWriter([]string{"Sort", "Slug", "Name"}, rows))
	}),
}

var queryResourcesCmd = &cobra.Command{
	Use:   "resources <language> <project>",
	Short: "List resources of a project",
	Args:  cobra.ExactArgs(2),
	RunE: queryRunner(func(ctx context.Context, idx db.Index, cmd *cobra.Command, args []string) error {
		resources, err := idx.GetResources(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(resources))
		for _, r := range resources {
			rows = append(rows, []string{r.Slug, r.Name, r.Type, r.CheckingLevel, r.Version})
		}
		return render(cmd.OutOrStdout(), formatOf(cmd), "resources", resources,
			tableWriter([]string{"Slug", "Name", "Type", "Checking", "Version"}, rows))
	}),
}

func targetRows(langs []*schema.TargetLanguage) [][]string {
	rows := make([][]string, 0, len(langs))
	for _, l := range langs {
		flags := ""
		if l.IsGatewayLanguage {
			flags = "gateway"
		}
		if l.Temporary {
			flags = "temporary"
		}
		rows = append(rows, []string{l.Slug, l.Name, l.AnglicizedName, l.Direction, l.Region, flags})
	}
	return rows
}

var targetHeaders = []string{"Code", "Name", "Anglicized", "Direction", "Region", ""}

var queryTargetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "List approved and temporary target languages",
	Args:  cobra.NoArgs,
	RunE: queryRunner(func(ctx context.Context, idx db.Index, cmd *cobra.Command, args []string) error {
		langs, err := idx.GetTargetLanguages(ctx)
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), formatOf(cmd), "target_languages", langs,
			tableWriter(targetHeaders, targetRows(langs)))
	}),
}

var queryTargetCmd = &cobra.Command{
	Use:   "target <code>",
	Short: "Show one target language, approved or temporary",
	Args:  cobra.ExactArgs(1),
	RunE: queryRunner(func(ctx context.Context, idx db.Index, cmd *cobra.Command, args []string) error {
		lang, err := idx.GetTargetLanguage(ctx, args[0])
		if err != nil {
			return err
		}
		if lang == nil {
			return fmt.Errorf("target language %q not found", args[0])
		}
		return render(cmd.OutOrStdout(), formatOf(cmd), "target_language", lang,
			tableWriter(targetHeaders, targetRows([]*schema.TargetLanguage{lang})))
	}),
}

var queryApprovedCmd = &cobra.Command{
	Use:   "approved <temp-code>",
	Short: "Show the approved language a temporary code was assigned",
	Args:  cobra.ExactArgs(1),
	RunE: queryRunner(func(ctx context.Context, idx db.Index, cmd *cobra.Command, args []string) error {
		lang, err := idx.GetApprovedTargetLanguage(ctx, args[0])
		if err != nil {
			return err
		}
		if lang == nil {
			return fmt.Errorf("no approved language for %q", args[0])
		}
		return render(cmd.OutOrStdout(), formatOf(cmd), "target_language", lang,
			tableWriter(targetHeaders, targetRows([]*schema.TargetLanguage{lang})))
	}),
}

var queryQuestionnairesCmd = &cobra.Command{
	Use:   "questionnaires",
	Short: "List new-language questionnaires and their questions",
	Args:  cobra.NoArgs,
	RunE: queryRunner(func(ctx context.Context, idx db.Index, cmd *cobra.Command, args []string) error {
		qs, err := idx.GetQuestionnaires(ctx)
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), formatOf(cmd), "questionnaires", qs, func(w io.Writer) error {
			if len(qs) == 0 {
				_, err := fmt.Fprintln(w, ui.RenderMuted("(none)"))
				return err
			}
			for _, q := range qs {
				rows := make([][]string, 0, len(q.Questions))
				for _, question := range q.Questions {
					depends := ""
					if question.HasDependency() {
						depends = strconv.FormatInt(question.DependsOn, 10)
					}
					required := ""
					if question.IsRequired {
						required = "yes"
					}
					rows = append(rows, []string{
						strconv.FormatInt(question.TdID, 10), question.Text, question.InputType, required, depends,
					})
				}
				title := fmt.Sprintf("%s (%s, questionnaire %d)", q.Name, q.Slug, q.TdID)
				if _, err := fmt.Fprintf(w, "%s\n%s\n\n", ui.RenderHeader(title),
					ui.Table([]string{"ID", "Question", "Input", "Required", "Depends on"}, rows)); err != nil {
					return err
				}
			}
			return nil
		})
	}),
}

var queryCatalogsCmd = &cobra.Command{
	Use:   "catalogs",
	Short: "List registered auxiliary catalogs",
	Args:  cobra.NoArgs,
	RunE: queryRunner(func(ctx context.Context, idx db.Index, cmd *cobra.Command, args []string) error {
		catalogs, err := idx.GetCatalogs(ctx)
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(catalogs))
		for _, c := range catalogs {
			rows = append(rows, []string{c.Slug, c.URL})
		}
		return render(cmd.OutOrStdout(), formatOf(cmd), "catalogs", catalogs,
			tableWriter([]string{"Slug", "URL"}, rows))
	}),
}

var queryChunksCmd = &cobra.Command{
	Use:   "chunks <project> [versification]",
	Short: "List chunk markers of a project (versification defaults to en-US)",
	Args:  cobra.RangeArgs(1, 2),
	RunE: queryRunner(func(ctx context.Context, idx db.Index, cmd *cobra.Command, args []string) error {
		versification := "en-US"
		if len(args) == 2 {
			versification = args[1]
		}
		markers, err := idx.GetChunkMarkers(ctx, args[0], versification)
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(markers))
		for _, m := range markers {
			rows = append(rows, []string{m.Chapter, m.Verse})
		}
		return render(cmd.OutOrStdout(), formatOf(cmd), "chunks", markers,
			tableWriter([]string{"Chapter", "First verse"}, rows))
	}),
}

func init() {
	addFormatFlag(queryCmd, true)
	queryCmd.AddCommand(
		queryLanguagesCmd,
		queryProjectsCmd,
		queryResourcesCmd,
		queryTargetsCmd,
		queryTargetCmd,
		queryApprovedCmd,
		queryQuestionnairesCmd,
		queryCatalogsCmd,
		queryChunksCmd,
	)
	rootCmd.AddCommand(queryCmd)
}
