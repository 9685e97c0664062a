package main

import (
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"PriceNewsScanner/internal/app"
	"PriceNewsScanner/internal/domain"
)

const (
	listTimeLayout = "2006-01-02 15:04"
	maxCellRunes   = 40
)

func ingestCmd() *cobra.Command {
	var backfill bool

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Run one ingestion pass and print its report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mode := domain.ModeIncremental
			if backfill {
				mode = domain.ModeBackfill
			}
			return withApp(cmd.Context(), func(a *app.Application, _ *zap.Logger) error {
				report, err := a.Ingest(cmd.Context(), mode)
				if report != nil {
					renderReport(report)
				}
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&backfill, "backfill", false, "sweep the whole configured page window")
	return cmd
}

func searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <prompt>",
		Short: "Search the news site for a free-text request without storing results",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := strings.Join(args, " ")
			return withApp(cmd.Context(), func(a *app.Application, logger *zap.Logger) error {
				results, err := a.Search(cmd.Context(), prompt)
				if err != nil {
					logger.Warn("search incomplete", zap.Error(err))
				}

				t := newTable()
				t.AppendHeader(table.Row{"ID", "Time", "Title", "Summary", "URL"})
				for _, r := range results {
					t.AppendRow(table.Row{r.ID, r.PublishedAt.In(a.Location()).Format(listTimeLayout), truncate(r.Title), truncate(r.Summary), r.URL})
				}
				t.Render()
				return nil
			})
		},
	}
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored articles, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(a *app.Application, _ *zap.Logger) error {
				articles, err := a.Articles(cmd.Context())
				if err != nil {
					return err
				}

				t := newTable()
				t.AppendHeader(table.Row{"ID", "Time", "Title", "Effect", "Cause"})
				for _, art := range articles {
					t.AppendRow(table.Row{art.ID, art.PublishedAt.In(a.Location()).Format(listTimeLayout), truncate(art.Title), truncate(art.Summary), truncate(art.Reason)})
				}
				t.AppendFooter(table.Row{"", "", "Total", len(articles)})
				t.Render()
				return nil
			})
		},
	}
}

func renderReport(r *domain.RunReport) {
	t := newTable()
	t.SetTitle(fmt.Sprintf("Run %s (%s)", r.RunID, r.Mode))
	t.AppendRows([]table.Row{
		{"Duration", r.Duration().Round(time.Millisecond)},
		{"Headlines", r.Headlines},
		{"Admitted", r.Admitted},
		{"Rejected", r.Rejected},
		{"Stored", len(r.Created)},
		{"Duplicates", r.Duplicates},
		{"Page errors", r.PageErrors},
	})
	for _, stage := range []domain.Stage{domain.StageClassify, domain.StageParse, domain.StageSummarize, domain.StagePersist} {
		if n := r.Failed[stage]; n > 0 {
			t.AppendRow(table.Row{"Failed (" + string(stage) + ")", n})
		}
	}
	t.Render()
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	return t
}

func truncate(s string) string {
	if utf8.RuneCountInString(s) <= maxCellRunes {
		return s
	}
	return string([]rune(s)[:maxCellRunes]) + "…"
}
