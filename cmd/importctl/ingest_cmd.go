package main

import (
	"time"

	"github.com/spf13/cobra"

	"study-tracker/backend/internal/dto"
)

type ingestOutput struct {
	CreatedModules int                       `json:"created_modules"`
	Ingest         *dto.IngestImportResponse `json:"ingest"`
}

func newIngestCmd(e *env) *cobra.Command {
	var (
		flags         importFlags
		termID        string
		createMissing bool
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Write valid rows of a file; invalid rows are skipped",
		RunE: func(cmd *cobra.Command, args []string) error {
			rawText, mapping, err := flags.load()
			if err != nil {
				return err
			}

			svc, closeFn, err := e.openImportService()
			if err != nil {
				return err
			}
			defer closeFn()

			ctx := cmd.Context()
			start := time.Now()
			out := ingestOutput{}

			if createMissing {
				preview, err := svc.Preview(ctx, flags.owner, &dto.PreviewImportRequest{
					ImportType: flags.importType,
					RawText:    rawText,
					Mapping:    mapping,
				})
				if err != nil {
					return err
				}
				if len(preview.MissingModuleCodes) > 0 {
					created, err := svc.CreateMissingModules(ctx, flags.owner, &dto.CreateMissingModulesRequest{Codes: preview.MissingModuleCodes})
					if err != nil {
						return err
					}
					out.CreatedModules = created.CreatedCount
				}
			}

			req := &dto.IngestImportRequest{
				ImportType: flags.importType,
				RawText:    rawText,
				Mapping:    mapping,
			}
			if termID != "" {
				req.TermID = &termID
			}
			res, err := svc.Ingest(ctx, flags.owner, req)
			if err != nil {
				return err
			}
			out.Ingest = res

			return writeJSON(cmdOutput{
				Command:    "ingest",
				DurationMS: time.Since(start).Milliseconds(),
				Result:     out,
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&termID, "term", "", "Term ID to attach (optional)")
	cmd.Flags().BoolVar(&createMissing, "create-missing", false, "Create stub modules for unknown module codes first")
	return cmd
}
