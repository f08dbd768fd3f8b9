package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"report2csv/internal/ingest"
	"report2csv/internal/store"
)

const defaultShowLimit = 50

func newShowCommand(ctx *commandContext) *cobra.Command {
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show stored measurement and summary rows",
	}
	showCmd.AddCommand(newShowStageCommand(ctx))
	showCmd.AddCommand(newShowSummaryCommand(ctx))
	showCmd.AddCommand(newShowTablesCommand(ctx))
	return showCmd
}

func newShowStageCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stage <name>",
		Short: "Show rows of a stage table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				rows, err := st.ListStage(cmd.Context(), args[0], limit)
				if err != nil {
					return err
				}
				if jsonOutput {
					if rows == nil {
						rows = []store.StageRow{}
					}
					return writeJSON(cmd, rows)
				}
				out := cmd.OutOrStdout()
				if len(rows) == 0 {
					fmt.Fprintf(out, "Stage table %s is empty\n", args[0])
					return nil
				}
				headers := []string{"ID", "Seq", "Number", "Title", "Type", "Code", "Point", "Upper", "Lower", "Part1", "Part2", "Part3", "Part4"}
				table := make([][]string, 0, len(rows))
				for _, r := range rows {
					table = append(table, []string{
						strconv.FormatInt(r.ID, 10),
						strconv.Itoa(r.SequenceNo),
						r.PartNumber,
						r.PartTitle,
						r.Type,
						r.Code,
						r.Point,
						formatFloat(r.UpperTolerance),
						formatFloat(r.LowerTolerance),
						deref(r.Parts[0]),
						deref(r.Parts[1]),
						deref(r.Parts[2]),
						deref(r.Parts[3]),
					})
				}
				fmt.Fprintln(out, renderTable(headers, table, alignments(len(headers), 0, 1, 7, 8)))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", defaultShowLimit, "Maximum rows to show (0 for all)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print rows as JSON")
	return cmd
}

func newShowSummaryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var stage string
	var since time.Duration
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show rows of the summary table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				fetch := limit
				if since > 0 {
					fetch = 0
				}
				rows, err := st.ListSummary(cmd.Context(), stage, fetch)
				if err != nil {
					return err
				}
				if since > 0 {
					rows = importedSince(rows, time.Now().Add(-since), limit)
				}
				if jsonOutput {
					if rows == nil {
						rows = []store.SummaryRow{}
					}
					return writeJSON(cmd, rows)
				}
				out := cmd.OutOrStdout()
				if len(rows) == 0 {
					fmt.Fprintln(out, "Summary table is empty")
					return nil
				}
				headers := []string{"ID", "Number", "Title", "Stage", "ICMD", "ICMC", "Category", "Date", "File"}
				table := make([][]string, 0, len(rows))
				for _, r := range rows {
					table = append(table, []string{
						strconv.FormatInt(r.ID, 10),
						r.Number,
						r.Title,
						r.Stage,
						ingest.FormatPercent(r.ICMD),
						ingest.FormatPercent(r.ICMC),
						r.Category,
						r.Date,
						r.File,
					})
				}
				fmt.Fprintln(out, renderTable(headers, table, alignments(len(headers), 0, 4, 5)))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", defaultShowLimit, "Maximum rows to show (0 for all)")
	cmd.Flags().StringVarP(&stage, "stage", "s", "", "Only show rows of this stage")
	cmd.Flags().DurationVar(&since, "since", 0, "Only show rows imported within this duration (e.g. 24h)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print rows as JSON")
	return cmd
}

// importedSince keeps rows dated at or after cutoff, stopping at limit when
// limit is positive. Rows with an unreadable date are dropped.
func importedSince(rows []store.SummaryRow, cutoff time.Time, limit int) []store.SummaryRow {
	var out []store.SummaryRow
	for _, r := range rows {
		at, err := store.ParseDate(r.Date)
		if err != nil || at.Before(cutoff) {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func newShowTablesCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "tables",
		Short: "List database tables with row counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				tables, err := st.Tables(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					if tables == nil {
						tables = []store.TableInfo{}
					}
					return writeJSON(cmd, tables)
				}
				out := cmd.OutOrStdout()
				if len(tables) == 0 {
					fmt.Fprintln(out, "No tables")
					return nil
				}
				rows := make([][]string, 0, len(tables))
				for _, t := range tables {
					kind := "stage"
					if t.Summary {
						kind = "summary"
					}
					rows = append(rows, []string{t.Name, kind, strconv.FormatInt(t.Rows, 10)})
				}
				fmt.Fprintln(out, renderTable([]string{"Table", "Kind", "Rows"}, rows, alignments(3, 2)))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print tables as JSON")
	return cmd
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
