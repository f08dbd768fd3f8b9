package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"report2csv/internal/logging"
	"report2csv/internal/store"
)

func newAdminCommand(ctx *commandContext) *cobra.Command {
	adminCmd := &cobra.Command{
		Use:   "admin",
		Short: "Database and log maintenance",
	}
	adminCmd.AddCommand(newClearStageCommand(ctx))
	adminCmd.AddCommand(newDropSummaryCommand(ctx))
	adminCmd.AddCommand(newDeleteDatabaseCommand(ctx))
	adminCmd.AddCommand(newClearLogCommand(ctx))
	return adminCmd
}

func newClearStageCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-stage <stage>",
		Short: "Delete every row of a stage table and restart its ids",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRunLock(func() error {
				return ctx.withStore(func(st *store.Store) error {
					removed, err := st.ClearStage(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d rows from %s\n", removed, args[0])
					return nil
				})
			})
		},
	}
}

func newDropSummaryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "drop-summary",
		Short: "Drop the summary table (recreated by the next run)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRunLock(func() error {
				return ctx.withStore(func(st *store.Store) error {
					if err := st.DropSummary(cmd.Context()); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Dropped summary table %s\n", st.SummaryTable())
					return nil
				})
			})
		},
	}
}

func newDeleteDatabaseCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-db",
		Short: "Delete the sqlite database file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return ctx.withRunLock(func() error {
				existed, err := store.DeleteDatabase(cfg)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if !existed {
					fmt.Fprintf(out, "No database at %s\n", cfg.DatabasePath())
					return nil
				}
				fmt.Fprintf(out, "Deleted %s\n", cfg.DatabasePath())
				return nil
			})
		},
	}
}

func newClearLogCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-log",
		Short: "Truncate the log file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := logging.Clear(cfg.LogPath()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", cfg.LogPath())
			return nil
		},
	}
}
