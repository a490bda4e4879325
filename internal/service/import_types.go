package service

import (
	"time"
)

// ImportType 导入目标类型
type ImportType string

const (
	ImportTypeModules     ImportType = "modules"
	ImportTypeAssignments ImportType = "assignments"
)

// Valid 判断导入类型是否受支持
func (t ImportType) Valid() bool {
	return t == ImportTypeModules || t == ImportTypeAssignments
}

// 规范字段键
const (
	FieldIgnore         = "ignore"
	FieldModuleCode     = "module_code"
	FieldTitle          = "title"
	FieldCreditHours    = "credit_hours"
	FieldStartDate      = "start_date"
	FieldEndDate        = "end_date"
	FieldStatus         = "status"
	FieldDueDate        = "due_date"
	FieldWeight         = "weight"
	FieldScore          = "score"
	FieldEffortEstimate = "effort_estimate"
	FieldType           = "type"
	FieldComponent      = "component"
	FieldNotes          = "notes"
)

// ColumnMapping 源列表头 -> 规范字段键
type ColumnMapping map[string]string

// Clone 返回映射副本
func (m ColumnMapping) Clone() ColumnMapping {
	out := make(ColumnMapping, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// HasTarget 判断是否有表头映射到 field
func (m ColumnMapping) HasTarget(field string) bool {
	for _, v := range m {
		if v == field {
			return true
		}
	}
	return false
}

// Record 类型转换后的单行记录
// Present 记录本行映射到的字段，模块更新时只写入这些字段
type Record struct {
	Row            int
	ModuleCode     string
	Title          string
	CreditHours    *float64
	StartDate      *time.Time
	EndDate        *time.Time
	DueDate        *time.Time
	Weight         *float64
	Score          *float64
	EffortEstimate *float64
	Status         string
	Type           string
	Component      string
	Notes          string
	Present        map[string]bool
}

// Has 判断字段是否映射且非空
func (r *Record) Has(field string) bool {
	return r.Present[field]
}

// RowError 校验失败的行
type RowError struct {
	Row     int
	Message string
}

// PreviewResult 校验预览结果
// len(ValidRecords) + len(ErrorRecords) == TotalRows
type PreviewResult struct {
	TotalRows          int
	ValidRecords       []Record
	ErrorRecords       []RowError
	MissingModuleCodes []string // 大写、去重、排序
	NeedsTermMapping   bool
}

// IngestFailure 单行写入失败
type IngestFailure struct {
	Row    int
	Title  string
	Kind   string
	Reason string
}

// IngestResult 写入结果；Total == SuccessCount + len(Failures)
type IngestResult struct {
	Total        int
	SuccessCount int
	Failures     []IngestFailure
}
