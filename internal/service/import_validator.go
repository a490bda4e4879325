package service

import (
	"context"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"study-tracker/backend/config"
	"study-tracker/backend/internal/model"
	"study-tracker/backend/internal/repository"
	pkgerrors "study-tracker/backend/pkg/errors"
)

// Validator 行级类型转换与校验
type Validator struct {
	repo        *repository.Repository
	dateFormats []string
	logger      *zap.Logger
}

// NewValidator 创建 Validator
func NewValidator(repo *repository.Repository, cfg *config.ImportConfig, logger *zap.Logger) *Validator {
	formats := cfg.DateFormats
	if len(formats) == 0 {
		formats = config.DefaultDateFormats
	}
	return &Validator{repo: repo, dateFormats: formats, logger: logger}
}

// ────────────────────── Preview ──────────────────────

// Preview 将每一行划分为有效记录或错误记录，并收集缺失的模块代码
// 引用了不存在模块的行仍视为有效，由自动创建步骤补齐
func (v *Validator) Preview(ctx context.Context, ownerID string, importType ImportType, table *Table, mapping ColumnMapping) (*PreviewResult, error) {
	cols := mappedColumns(mapping)
	result := &PreviewResult{
		TotalRows:    len(table.Rows),
		ValidRecords: make([]Record, 0, len(table.Rows)),
	}

	for _, row := range table.Rows {
		record, problems := v.coerce(importType, row, cols)
		if len(problems) > 0 {
			result.ErrorRecords = append(result.ErrorRecords, RowError{Row: row.Number, Message: strings.Join(problems, "; ")})
			continue
		}
		result.ValidRecords = append(result.ValidRecords, record)
	}

	if importType == ImportTypeAssignments {
		missing, err := v.missingModuleCodes(ctx, ownerID, result.ValidRecords)
		if err != nil {
			return nil, err
		}
		result.MissingModuleCodes = missing
	}

	if importType == ImportTypeModules {
		result.NeedsTermMapping = needsTermMapping(cols, result.ValidRecords)
	}
	return result, nil
}

// coerce 构建单行记录；返回的 problems 非空表示该行无效
func (v *Validator) coerce(importType ImportType, row Row, cols map[string]string) (Record, []string) {
	record := Record{Row: row.Number, Present: make(map[string]bool)}
	var problems []string
	fail := func(field, format string, args ...interface{}) {
		problems = append(problems, pkgerrors.Validationf(field, format, args...).Error())
	}

	get := func(field string) (string, bool) {
		header, ok := cols[field]
		if !ok {
			return "", false
		}
		value := strings.TrimSpace(row.Values[header])
		if value == "" {
			return "", false
		}
		record.Present[field] = true
		return value, true
	}

	// ── 必填 ──
	if code, ok := get(FieldModuleCode); ok {
		record.ModuleCode = NormalizeModuleCode(code)
	} else {
		fail(FieldModuleCode, "必填字段为空")
	}
	if title, ok := get(FieldTitle); ok {
		record.Title = title
	} else {
		fail(FieldTitle, "必填字段为空")
	}

	// ── 数值 ──
	number := func(field string, percent bool) *float64 {
		raw, ok := get(field)
		if !ok {
			return nil
		}
		n, err := parseNumber(raw, percent)
		if err != nil {
			fail(field, "%s", err.Error())
			return nil
		}
		return &n
	}

	// ── 日期 ──
	date := func(field string) *time.Time {
		raw, ok := get(field)
		if !ok {
			return nil
		}
		t, ok := parseDate(raw, v.dateFormats)
		if !ok {
			fail(field, "无法识别的日期 %q", raw)
			return nil
		}
		return &t
	}

	// ── 枚举 ──
	enum := func(field string, allowed []string) string {
		raw, ok := get(field)
		if !ok {
			return ""
		}
		value, ok := normalizeEnum(raw, allowed)
		if !ok {
			fail(field, "无效的取值 %q（可选: %s）", raw, strings.Join(allowed, ", "))
		}
		return value
	}

	switch importType {
	case ImportTypeModules:
		record.CreditHours = number(FieldCreditHours, false)
		record.StartDate = date(FieldStartDate)
		record.EndDate = date(FieldEndDate)
		record.Status = enum(FieldStatus, model.ModuleStatuses)
		if record.StartDate != nil && record.EndDate != nil && record.StartDate.After(*record.EndDate) {
			fail(FieldEndDate, "结束日期不能早于开始日期")
		}
	case ImportTypeAssignments:
		record.DueDate = date(FieldDueDate)
		record.Weight = number(FieldWeight, true)
		record.Score = number(FieldScore, true)
		record.EffortEstimate = number(FieldEffortEstimate, false)
		record.Status = enum(FieldStatus, model.AssignmentStatuses)
		record.Type = enum(FieldType, model.AssignmentTypes)
		if c, ok := get(FieldComponent); ok {
			record.Component = c
		}
		if n, ok := get(FieldNotes); ok {
			record.Notes = n
		}
	}
	return record, problems
}

// missingModuleCodes 一次查询比对有效记录引用的模块代码
func (v *Validator) missingModuleCodes(ctx context.Context, ownerID string, records []Record) ([]string, error) {
	referenced := make(map[string]bool)
	for _, r := range records {
		referenced[r.ModuleCode] = true
	}
	if len(referenced) == 0 {
		return []string{}, nil
	}
	codes := make([]string, 0, len(referenced))
	for c := range referenced {
		codes = append(codes, c)
	}
	sort.Strings(codes)

	existing, err := v.repo.Module.FindByCodes(ctx, ownerID, codes)
	if err != nil {
		v.logger.Error("查询已有模块失败", zap.String("owner_id", ownerID), zap.Error(err))
		return nil, err
	}
	for _, m := range existing {
		delete(referenced, NormalizeModuleCode(m.Code))
	}

	missing := make([]string, 0, len(referenced))
	for _, c := range codes {
		if referenced[c] {
			missing = append(missing, c)
		}
	}
	return missing, nil
}

// needsTermMapping 模块导入未同时映射起止日期，或任一有效行缺少其一时需要选择学期
func needsTermMapping(cols map[string]string, records []Record) bool {
	_, hasStart := cols[FieldStartDate]
	_, hasEnd := cols[FieldEndDate]
	if !hasStart || !hasEnd {
		return true
	}
	for _, r := range records {
		if r.StartDate == nil || r.EndDate == nil {
			return true
		}
	}
	return false
}

// ── 转换辅助 ──

// NormalizeModuleCode 模块代码统一去空白并转大写
func NormalizeModuleCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func parseNumber(raw string, percent bool) (float64, error) {
	s := strings.TrimSpace(raw)
	if percent {
		s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, pkgerrors.Validationf("", "数值格式无效 %q", raw)
	}
	if n < 0 {
		return 0, pkgerrors.Validationf("", "数值不能为负数: %s", raw)
	}
	if percent && n > 100 {
		return 0, pkgerrors.Validationf("", "数值需在 0-100 之间: %s", raw)
	}
	return n, nil
}

func parseDate(raw string, formats []string) (time.Time, bool) {
	for _, layout := range formats {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// normalizeEnum 不区分大小写，空格与连字符视为下划线
func normalizeEnum(raw string, allowed []string) (string, bool) {
	v := strings.ToLower(strings.TrimSpace(raw))
	v = strings.NewReplacer(" ", "_", "-", "_").Replace(v)
	for _, a := range allowed {
		if v == a {
			return a, true
		}
	}
	return "", false
}
