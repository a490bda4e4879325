package service

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"study-tracker/backend/config"
	"study-tracker/backend/internal/dto"
	"study-tracker/backend/internal/repository"
	pkgerrors "study-tracker/backend/pkg/errors"
)

// pipeline 导入各阶段组件，ImportService 与 WizardService 共用
type pipeline struct {
	parser       *Parser
	validator    *Validator
	provisioner  *ModuleProvisioner
	ingestor     *Ingestor
	terms        TermService
	maxFileBytes int64
}

func newPipeline(cfg *config.ImportConfig, repo *repository.Repository, terms TermService, logger *zap.Logger) *pipeline {
	return &pipeline{
		parser:       NewParser(cfg),
		validator:    NewValidator(repo, cfg, logger),
		provisioner:  NewModuleProvisioner(repo, cfg, logger),
		ingestor:     NewIngestor(repo, terms, cfg, logger),
		terms:        terms,
		maxFileBytes: cfg.MaxFileBytes,
	}
}

// readUpload 读取上传内容（限制大小），xlsx 转换为分隔文本
func (p *pipeline) readUpload(fileName string, r io.Reader) ([]byte, error) {
	raw, err := io.ReadAll(io.LimitReader(r, p.maxFileBytes+1))
	if err != nil {
		return nil, pkgerrors.Parsef("读取上传文件失败: %v", err)
	}
	if int64(len(raw)) > p.maxFileBytes {
		return nil, pkgerrors.Parsef("文件大小超过上限 %d 字节", p.maxFileBytes)
	}
	if strings.EqualFold(filepath.Ext(fileName), ".xlsx") {
		return ConvertXLSX(bytes.NewReader(raw))
	}
	return raw, nil
}

// preview 解析 + 映射校验 + 行校验；未提供映射时使用推荐映射
func (p *pipeline) preview(ctx context.Context, ownerID string, importType ImportType, raw []byte, mapping ColumnMapping) (*Table, *PreviewResult, error) {
	table, err := p.parser.Parse(raw)
	if err != nil {
		return nil, nil, err
	}
	if len(mapping) == 0 {
		mapping = SuggestMapping(importType, table.Headers)
	}
	if err := ValidateMapping(importType, table.Headers, mapping); err != nil {
		return nil, nil, err
	}
	result, err := p.validator.Preview(ctx, ownerID, importType, table, mapping)
	if err != nil {
		return nil, nil, err
	}
	return table, result, nil
}

// ImportService 批量导入边界操作
type ImportService interface {
	ReadUpload(fileName string, r io.Reader) ([]byte, error)
	Parse(raw []byte) (*dto.ParseImportResponse, error)
	Preview(ctx context.Context, ownerID string, req *dto.PreviewImportRequest) (*dto.PreviewImportResponse, error)
	CreateMissingModules(ctx context.Context, ownerID string, req *dto.CreateMissingModulesRequest) (*dto.CreateMissingModulesResponse, error)
	Ingest(ctx context.Context, ownerID string, req *dto.IngestImportRequest) (*dto.IngestImportResponse, error)
	FieldOptions(importType string) ([]dto.FieldOption, error)
}

type importService struct {
	p      *pipeline
	logger *zap.Logger
}

// NewImportService 创建 ImportService 实例
func NewImportService(cfg *config.ImportConfig, repo *repository.Repository, terms TermService, logger *zap.Logger) ImportService {
	return &importService{p: newPipeline(cfg, repo, terms, logger), logger: logger}
}

func (s *importService) ReadUpload(fileName string, r io.Reader) ([]byte, error) {
	return s.p.readUpload(fileName, r)
}

// ────────────────────── Parse ──────────────────────

func (s *importService) Parse(raw []byte) (*dto.ParseImportResponse, error) {
	table, err := s.p.parser.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &dto.ParseImportResponse{Headers: table.Headers, RowCount: len(table.Rows)}, nil
}

// ────────────────────── Preview ──────────────────────

func (s *importService) Preview(ctx context.Context, ownerID string, req *dto.PreviewImportRequest) (*dto.PreviewImportResponse, error) {
	_, result, err := s.p.preview(ctx, ownerID, ImportType(req.ImportType), []byte(req.RawText), ColumnMapping(req.Mapping))
	if err != nil {
		return nil, err
	}
	return toPreviewResponse(result), nil
}

// ────────────────────── CreateMissingModules ──────────────────────

func (s *importService) CreateMissingModules(ctx context.Context, ownerID string, req *dto.CreateMissingModulesRequest) (*dto.CreateMissingModulesResponse, error) {
	created, err := s.p.provisioner.CreateMissing(ctx, ownerID, req.Codes)
	if err != nil {
		return nil, err
	}
	return &dto.CreateMissingModulesResponse{CreatedCount: created}, nil
}

// ────────────────────── Ingest ──────────────────────

// Ingest 重新解析并校验后写入；校验失败的行被丢弃，total 为有效行数
func (s *importService) Ingest(ctx context.Context, ownerID string, req *dto.IngestImportRequest) (*dto.IngestImportResponse, error) {
	importType := ImportType(req.ImportType)
	_, preview, err := s.p.preview(ctx, ownerID, importType, []byte(req.RawText), ColumnMapping(req.Mapping))
	if err != nil {
		return nil, err
	}
	if len(preview.ErrorRecords) > 0 {
		s.logger.Info("丢弃校验失败的行", zap.Int("dropped", len(preview.ErrorRecords)))
	}

	result, err := s.p.ingestor.Ingest(ctx, ownerID, importType, preview.ValidRecords, req.TermID)
	if err != nil {
		return nil, err
	}
	return toIngestResponse(result), nil
}

// ────────────────────── FieldOptions ──────────────────────

func (s *importService) FieldOptions(importType string) ([]dto.FieldOption, error) {
	return FieldOptions(ImportType(importType))
}

// ── 转换 ──

func toPreviewResponse(r *PreviewResult) *dto.PreviewImportResponse {
	resp := &dto.PreviewImportResponse{
		TotalRows:          r.TotalRows,
		ValidRecords:       make([]dto.ImportRecord, 0, len(r.ValidRecords)),
		ErrorRecords:       make([]dto.ImportRowError, 0, len(r.ErrorRecords)),
		MissingModuleCodes: r.MissingModuleCodes,
		NeedsTermMapping:   r.NeedsTermMapping,
	}
	if resp.MissingModuleCodes == nil {
		resp.MissingModuleCodes = []string{}
	}
	for i := range r.ValidRecords {
		resp.ValidRecords = append(resp.ValidRecords, toImportRecord(&r.ValidRecords[i]))
	}
	for _, e := range r.ErrorRecords {
		resp.ErrorRecords = append(resp.ErrorRecords, dto.ImportRowError{Row: e.Row, Message: e.Message})
	}
	return resp
}

func toImportRecord(r *Record) dto.ImportRecord {
	out := dto.ImportRecord{
		Row:            r.Row,
		ModuleCode:     r.ModuleCode,
		Title:          r.Title,
		CreditHours:    r.CreditHours,
		Weight:         r.Weight,
		Score:          r.Score,
		EffortEstimate: r.EffortEstimate,
		Status:         r.Status,
		Type:           r.Type,
		Component:      r.Component,
		Notes:          r.Notes,
	}
	out.StartDate = formatTime(r.StartDate, dateLayout)
	out.EndDate = formatTime(r.EndDate, dateLayout)
	out.DueDate = formatTime(r.DueDate, time.RFC3339)
	return out
}

func formatTime(t *time.Time, layout string) *string {
	if t == nil {
		return nil
	}
	s := t.Format(layout)
	return &s
}

func toIngestResponse(r *IngestResult) *dto.IngestImportResponse {
	resp := &dto.IngestImportResponse{
		Total:        r.Total,
		SuccessCount: r.SuccessCount,
		Failures:     make([]dto.IngestFailure, 0, len(r.Failures)),
	}
	for _, f := range r.Failures {
		resp.Failures = append(resp.Failures, dto.IngestFailure{Row: f.Row, Title: f.Title, Kind: f.Kind, Reason: f.Reason})
	}
	return resp
}
