package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"report2csv/internal/store"
)

type stageInfo struct {
	Name       string `json:"name"`
	Default    bool   `json:"default"`
	Configured bool   `json:"configured"`
	Rows       int64  `json:"rows"`
}

func newStagesCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stages",
		Short: "List stage labels and their stored row counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			var stages []stageInfo
			index := map[string]int{}
			for _, name := range cfg.Stages.Names {
				index[name] = len(stages)
				stages = append(stages, stageInfo{Name: name, Default: name == cfg.Stages.Default, Configured: true})
			}

			err = ctx.withStore(func(st *store.Store) error {
				tables, err := st.Tables(cmd.Context())
				if err != nil {
					return err
				}
				for _, t := range tables {
					if t.Summary {
						continue
					}
					if i, ok := index[t.Name]; ok {
						stages[i].Rows = t.Rows
						continue
					}
					// Tables written under labels no longer configured.
					stages = append(stages, stageInfo{Name: t.Name, Default: t.Name == cfg.Stages.Default, Rows: t.Rows})
				}
				return nil
			})
			if err != nil {
				return err
			}

			if jsonOutput {
				if stages == nil {
					stages = []stageInfo{}
				}
				return writeJSON(cmd, stages)
			}

			out := cmd.OutOrStdout()
			if len(stages) == 0 {
				fmt.Fprintln(out, "No stages configured")
				return nil
			}
			rows := make([][]string, 0, len(stages))
			for _, s := range stages {
				marker := ""
				if s.Default {
					marker = "*"
				}
				rows = append(rows, []string{marker, s.Name, yesNo(s.Configured), strconv.FormatInt(s.Rows, 10)})
			}
			fmt.Fprintln(out, renderTable([]string{"", "Stage", "Configured", "Rows"}, rows, alignments(4, 3)))
			if cfg.Stages.Strict {
				fmt.Fprintln(out, "Strict mode: only configured stages are accepted")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print stages as JSON")
	return cmd
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
