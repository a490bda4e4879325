package main

import (
	"time"

	"github.com/spf13/cobra"

	"study-tracker/backend/internal/service"
)

type parseResult struct {
	Headers   []string          `json:"headers"`
	RowCount  int               `json:"row_count"`
	Suggested map[string]string `json:"suggested_mapping,omitempty"`
}

func newParseCmd(e *env) *cobra.Command {
	var (
		file       string
		importType string
	)

	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Parse a CSV/TSV/XLSX file and print its headers (no database access)",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readSource(file)
			if err != nil {
				return err
			}

			start := time.Now()
			table, err := service.NewParser(&e.cfg.Import).Parse(raw)
			if err != nil {
				return err
			}

			res := parseResult{Headers: table.Headers, RowCount: len(table.Rows)}
			if t := service.ImportType(importType); t.Valid() {
				res.Suggested = service.SuggestMapping(t, table.Headers)
			}
			return writeJSON(cmdOutput{
				Command:    "parse",
				DurationMS: time.Since(start).Milliseconds(),
				Result:     res,
			})
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Input file (required)")
	cmd.Flags().StringVar(&importType, "type", "", "Import type for a suggested mapping (modules|assignments)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
