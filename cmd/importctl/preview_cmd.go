package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"study-tracker/backend/internal/dto"
)

// importFlags preview 与 ingest 共用的参数
type importFlags struct {
	file       string
	importType string
	owner      string
	mapPairs   []string
	auto       bool
}

func (f *importFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.file, "file", "", "Input file (required)")
	cmd.Flags().StringVar(&f.importType, "type", "", "Import type: modules|assignments (required)")
	cmd.Flags().StringVar(&f.owner, "owner", "", "Owner UUID (required)")
	cmd.Flags().StringArrayVar(&f.mapPairs, "map", nil, "Column mapping header=field (repeatable)")
	cmd.Flags().BoolVar(&f.auto, "auto", false, "Use the suggested mapping and ignore --map")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("owner")
}

// load 校验参数并读取文件
func (f *importFlags) load() (string, map[string]string, error) {
	if _, err := uuid.Parse(f.owner); err != nil {
		return "", nil, fmt.Errorf("invalid --owner: %w", err)
	}
	if f.importType != "modules" && f.importType != "assignments" {
		return "", nil, fmt.Errorf("invalid --type %q", f.importType)
	}

	raw, err := readSource(f.file)
	if err != nil {
		return "", nil, err
	}

	// 空映射由服务端替换为推荐映射
	mapping := map[string]string{}
	if !f.auto {
		if mapping, err = parseMappingFlags(f.mapPairs); err != nil {
			return "", nil, err
		}
	}
	return string(raw), mapping, nil
}

func newPreviewCmd(e *env) *cobra.Command {
	var flags importFlags

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Validate a file against the owner's data without writing",
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

			start := time.Now()
			res, err := svc.Preview(cmd.Context(), flags.owner, &dto.PreviewImportRequest{
				ImportType: flags.importType,
				RawText:    rawText,
				Mapping:    mapping,
			})
			if err != nil {
				return err
			}
			return writeJSON(cmdOutput{
				Command:    "preview",
				DurationMS: time.Since(start).Milliseconds(),
				Result:     res,
			})
		},
	}

	flags.register(cmd)
	return cmd
}
