package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"report2csv/internal/fileutil"
	"report2csv/internal/ingest"
)

type classification struct {
	File     string `json:"file"`
	Kind     string `json:"kind"`
	Category string `json:"category,omitempty"`
	Error    string `json:"error,omitempty"`
}

func newClassifyCommand() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:         "classify <file-or-folder>...",
		Short:       "Show which report template each file name maps to",
		Args:        cobra.MinimumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := fileutil.FindReports(args)
			if err != nil {
				return err
			}

			results := make([]classification, 0, len(files))
			for _, file := range files {
				entry := classification{File: file}
				kind, err := ingest.Classify(file)
				entry.Kind = kind.String()
				if err != nil {
					entry.Error = err.Error()
				} else {
					entry.Category = kind.Category()
				}
				results = append(results, entry)
			}

			if jsonOutput {
				return writeJSON(cmd, results)
			}

			out := cmd.OutOrStdout()
			if len(results) == 0 {
				fmt.Fprintln(out, "No report files found")
				return nil
			}
			colorize := shouldColorize(out)
			for _, r := range results {
				if r.Error != "" {
					fmt.Fprintln(out, renderStatusLine(filepath.Base(r.File), statusWarn, "unsupported", colorize))
					continue
				}
				fmt.Fprintln(out, renderStatusLine(filepath.Base(r.File), statusOK, fmt.Sprintf("%s (%s)", r.Category, r.Kind), colorize))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print classifications as JSON")
	return cmd
}
