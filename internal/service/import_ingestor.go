package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"study-tracker/backend/config"
	"study-tracker/backend/internal/model"
	"study-tracker/backend/internal/repository"
	pkgerrors "study-tracker/backend/pkg/errors"
	"study-tracker/backend/pkg/metrics"
)

// Ingestor 逐行写入校验通过的记录
// 每行独立写入，不包裹事务：单行失败只记录在结果中，不影响后续行
type Ingestor struct {
	repo          *repository.Repository
	terms         TermService
	creditHours   float64
	defaultStatus string
	logger        *zap.Logger
}

// NewIngestor 创建 Ingestor
func NewIngestor(repo *repository.Repository, terms TermService, cfg *config.ImportConfig, logger *zap.Logger) *Ingestor {
	return &Ingestor{
		repo:          repo,
		terms:         terms,
		creditHours:   cfg.DefaultCreditHours,
		defaultStatus: cfg.DefaultModuleStatus,
		logger:        logger,
	}
}

// ────────────────────── Ingest ──────────────────────

// Ingest 写入 records；termID 指向的学期不存在时整体失败且不写入任何行
func (g *Ingestor) Ingest(ctx context.Context, ownerID string, importType ImportType, records []Record, termID *string) (*IngestResult, error) {
	if !importType.Valid() {
		return nil, pkgerrors.Mappingf("不支持的导入类型: %q", importType)
	}

	var term *model.Term
	if termID != nil && *termID != "" {
		t, err := g.terms.Get(ctx, ownerID, *termID)
		if err != nil {
			return nil, err
		}
		term = t
	}

	result := &IngestResult{Total: len(records), Failures: make([]IngestFailure, 0)}
	for i := range records {
		rec := &records[i]

		var err error
		switch importType {
		case ImportTypeModules:
			err = g.ingestModule(ctx, ownerID, rec, term)
		case ImportTypeAssignments:
			err = g.ingestAssignment(ctx, ownerID, rec, term)
		}

		if err == nil {
			result.SuccessCount++
			metrics.ObserveIngestRow(string(importType), "success")
			continue
		}

		kind := pkgerrors.KindOf(err)
		if kind == "" {
			kind = pkgerrors.KindPersistence
		}
		result.Failures = append(result.Failures, IngestFailure{
			Row:    rec.Row,
			Title:  rec.Title,
			Kind:   string(kind),
			Reason: err.Error(),
		})
		metrics.ObserveIngestRow(string(importType), string(kind))
		g.logger.Warn("导入行写入失败",
			zap.String("import_type", describeImportType(importType)),
			zap.Int("row", rec.Row),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
	}

	g.logger.Info("导入完成",
		zap.String("owner_id", ownerID),
		zap.String("import_type", describeImportType(importType)),
		zap.Int("total", result.Total),
		zap.Int("success", result.SuccessCount),
	)
	return result, nil
}

// ── 模块：按 (owner, code) 新建或更新 ──

func (g *Ingestor) ingestModule(ctx context.Context, ownerID string, rec *Record, term *model.Term) error {
	existing, err := g.repo.Module.FindByCode(ctx, ownerID, rec.ModuleCode)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Persistence("查询模块失败", err)
	}

	if existing == nil {
		start, end := rec.StartDate, rec.EndDate
		if term != nil {
			if start == nil {
				start = &term.StartDate
			}
			if end == nil {
				end = &term.EndDate
			}
		}
		if err := checkRange(start, end); err != nil {
			return err
		}

		module := &model.Module{
			OwnerID:         ownerID,
			Code:            rec.ModuleCode,
			Title:           rec.Title,
			CreditHours:     g.creditHours,
			Status:          g.defaultStatus,
			StartDate:       start,
			EndDate:         end,
			SoftDeleteModel: model.Audit(ownerID),
		}
		if rec.CreditHours != nil {
			module.CreditHours = *rec.CreditHours
		}
		if rec.Status != "" {
			module.Status = rec.Status
		}
		if term != nil {
			module.TermID = &term.TermID
		}
		if err := g.repo.Module.Create(ctx, module); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return pkgerrors.Persistence(fmt.Sprintf("模块 %s 已被并发创建", rec.ModuleCode), err)
			}
			return pkgerrors.Persistence("写入模块失败", err)
		}
		return nil
	}

	// 更新只写入本行提供的字段；学期日期仅补齐原本为空的边界
	fields := map[string]interface{}{
		"title":      rec.Title,
		"is_stub":    false,
		"updated_by": ownerID,
	}
	if rec.Has(FieldCreditHours) {
		fields["credit_hours"] = *rec.CreditHours
	}
	if rec.Has(FieldStatus) {
		fields["status"] = rec.Status
	}

	start, end := existing.StartDate, existing.EndDate
	if rec.StartDate != nil {
		start = rec.StartDate
		fields["start_date"] = *rec.StartDate
	} else if term != nil && start == nil {
		start = &term.StartDate
		fields["start_date"] = term.StartDate
	}
	if rec.EndDate != nil {
		end = rec.EndDate
		fields["end_date"] = *rec.EndDate
	} else if term != nil && end == nil {
		end = &term.EndDate
		fields["end_date"] = term.EndDate
	}
	if err := checkRange(start, end); err != nil {
		return err
	}
	if term != nil {
		fields["term_id"] = term.TermID
	}

	if err := g.repo.Module.UpdateFields(ctx, existing.ModuleID, fields); err != nil {
		return pkgerrors.Persistence("更新模块失败", err)
	}
	return nil
}

// ── 作业：解析模块引用后新建 ──

func (g *Ingestor) ingestAssignment(ctx context.Context, ownerID string, rec *Record, term *model.Term) error {
	module, err := g.repo.Module.FindByCode(ctx, ownerID, rec.ModuleCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Referencef("模块 %s 不存在", rec.ModuleCode)
		}
		return pkgerrors.Persistence("查询模块失败", err)
	}

	assignment := &model.Assignment{
		OwnerID:         ownerID,
		ModuleID:        module.ModuleID,
		Title:           rec.Title,
		Type:            model.AssignmentTypeCoursework,
		Status:          model.AssignmentStatusNotStarted,
		DueDate:         rec.DueDate,
		Weight:          rec.Weight,
		Score:           rec.Score,
		EffortEstimate:  rec.EffortEstimate,
		Notes:           rec.Notes,
		SoftDeleteModel: model.Audit(ownerID),
	}
	if rec.Type != "" {
		assignment.Type = rec.Type
	}
	if rec.Status != "" {
		assignment.Status = rec.Status
	}
	if term != nil {
		assignment.TermID = &term.TermID
	}

	if rec.Component != "" {
		component, err := g.findOrCreateComponent(ctx, ownerID, module.ModuleID, rec.Component)
		if err != nil {
			return err
		}
		assignment.ComponentID = &component.ComponentID
	}

	if err := g.repo.Assignment.Create(ctx, assignment); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return pkgerrors.Persistence(fmt.Sprintf("模块 %s 下已存在作业 %q", rec.ModuleCode, rec.Title), err)
		}
		return pkgerrors.Persistence("写入作业失败", err)
	}
	return nil
}

// findOrCreateComponent 名称不区分大小写匹配；并发创建冲突时重新查询
func (g *Ingestor) findOrCreateComponent(ctx context.Context, ownerID, moduleID, name string) (*model.AssessmentComponent, error) {
	component, err := g.repo.Component.FindByName(ctx, moduleID, name)
	if err == nil {
		return component, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Persistence("查询考核组成失败", err)
	}

	component = &model.AssessmentComponent{
		ModuleID:  moduleID,
		Name:      name,
		BaseModel: model.BaseModel{CreatedBy: &ownerID, UpdatedBy: &ownerID},
	}
	if err := g.repo.Component.Create(ctx, component); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if found, ferr := g.repo.Component.FindByName(ctx, moduleID, name); ferr == nil {
				return found, nil
			}
		}
		return nil, pkgerrors.Persistence("创建考核组成失败", err)
	}
	return component, nil
}

func checkRange(start, end *time.Time) error {
	if start != nil && end != nil && start.After(*end) {
		return pkgerrors.Validationf(FieldEndDate, "结束日期 %s 早于开始日期 %s", end.Format(dateLayout), start.Format(dateLayout))
	}
	return nil
}
