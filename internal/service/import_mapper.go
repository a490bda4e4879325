package service

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"study-tracker/backend/internal/dto"
	pkgerrors "study-tracker/backend/pkg/errors"
)

// fieldSpec 目标字段定义
type fieldSpec struct {
	Key      string
	Label    string
	Required bool
}

// 各导入类型的目标字段（顺序即下拉顺序）
var importSchemas = map[ImportType][]fieldSpec{
	ImportTypeModules: {
		{FieldModuleCode, "模块代码", true},
		{FieldTitle, "标题", true},
		{FieldCreditHours, "学分", false},
		{FieldStartDate, "开始日期", false},
		{FieldEndDate, "结束日期", false},
		{FieldStatus, "状态", false},
	},
	ImportTypeAssignments: {
		{FieldModuleCode, "模块代码", true},
		{FieldTitle, "标题", true},
		{FieldDueDate, "截止日期", false},
		{FieldWeight, "权重（%）", false},
		{FieldScore, "得分（%）", false},
		{FieldEffortEstimate, "预计工时", false},
		{FieldStatus, "状态", false},
		{FieldType, "类型", false},
		{FieldComponent, "考核组成", false},
		{FieldNotes, "备注", false},
	},
}

// ── 自动映射规则 ──

// headerRule 规则表的一项：predicate 作用于归一化后的表头
type headerRule struct {
	match func(h string) bool
	field string
}

func containsAll(subs ...string) func(string) bool {
	return func(h string) bool {
		for _, s := range subs {
			if !strings.Contains(h, s) {
				return false
			}
		}
		return true
	}
}

func containsAny(subs ...string) func(string) bool {
	return func(h string) bool {
		for _, s := range subs {
			if strings.Contains(h, s) {
				return true
			}
		}
		return false
	}
}

// affixAny 前缀或后缀命中，避免 "attendance"、"calendar" 这类包含子串的误判
func affixAny(words ...string) func(string) bool {
	return func(h string) bool {
		for _, w := range words {
			if strings.HasPrefix(h, w) || strings.HasSuffix(h, w) {
				return true
			}
		}
		return false
	}
}

func equalsAny(words ...string) func(string) bool {
	return func(h string) bool {
		for _, w := range words {
			if h == w {
				return true
			}
		}
		return false
	}
}

// headerRules 自上而下匹配，首个命中且字段属于当前导入类型、尚未被占用的规则生效
var headerRules = []headerRule{
	{containsAll("module", "code"), FieldModuleCode},
	{containsAll("course", "code"), FieldModuleCode},
	{containsAll("unit", "code"), FieldModuleCode},
	{equalsAny("code", "module", "course", "unit", "模块代码", "课程代码"), FieldModuleCode},
	{containsAny("credit", "学分"), FieldCreditHours},
	{containsAll("due", "date"), FieldDueDate},
	{containsAny("due", "deadline", "截止"), FieldDueDate},
	{containsAny("start", "begin", "开始"), FieldStartDate},
	{affixAny("end"), FieldEndDate},
	{containsAny("finish", "结束"), FieldEndDate},
	{containsAny("weight", "worth", "percent", "权重"), FieldWeight},
	{containsAny("score", "grade", "mark", "result", "得分", "成绩"), FieldScore},
	{containsAny("effort", "estimate", "hours", "工时"), FieldEffortEstimate},
	{containsAny("status", "state", "progress", "状态"), FieldStatus},
	{containsAny("component", "category", "组成"), FieldComponent},
	{containsAny("type", "kind", "类型"), FieldType},
	{containsAny("note", "comment", "description", "备注"), FieldNotes},
	{containsAny("title", "name", "标题", "名称"), FieldTitle},
	{equalsAny("date", "日期"), FieldDueDate},
}

// normalizeHeader NFKC 归一化、转小写并去除下划线/空格/连字符
func normalizeHeader(h string) string {
	h = strings.ToLower(norm.NFKC.String(h))
	return strings.NewReplacer("_", "", " ", "", "-", "").Replace(h)
}

// ────────────────────── SuggestMapping ──────────────────────

// SuggestMapping 按规则表为每个表头推荐目标字段，未命中的表头映射为 ignore
// 同一字段只推荐给第一个命中的表头，保证结果可直接通过 ValidateMapping 的重复检查
func SuggestMapping(importType ImportType, headers []string) ColumnMapping {
	allowed := schemaKeys(importType)
	claimed := make(map[string]bool)
	mapping := make(ColumnMapping, len(headers))

	for _, h := range headers {
		mapping[h] = FieldIgnore
		n := normalizeHeader(h)
		for _, rule := range headerRules {
			if !allowed[rule.field] || claimed[rule.field] {
				continue
			}
			if rule.match(n) {
				mapping[h] = rule.field
				claimed[rule.field] = true
				break
			}
		}
	}
	return mapping
}

// ────────────────────── ValidateMapping ──────────────────────

// ValidateMapping 校验用户确认的映射；未出现在 mapping 中的表头视为 ignore
func ValidateMapping(importType ImportType, headers []string, mapping ColumnMapping) error {
	if !importType.Valid() {
		return pkgerrors.Mappingf("不支持的导入类型: %q", importType)
	}
	allowed := schemaKeys(importType)

	known := make(map[string]bool, len(headers))
	for _, h := range headers {
		known[h] = true
	}
	keys := make([]string, 0, len(mapping))
	for h := range mapping {
		keys = append(keys, h)
	}
	sort.Strings(keys)
	for _, h := range keys {
		if !known[h] {
			return pkgerrors.Mappingf("映射中的表头 %q 不在文件中", h)
		}
		if f := mapping[h]; f != FieldIgnore && !allowed[f] {
			return pkgerrors.Mappingf("表头 %q 映射到未知字段 %q", h, f)
		}
	}

	owner := make(map[string]string)
	mapped := 0
	for _, h := range headers {
		f, ok := mapping[h]
		if !ok || f == FieldIgnore {
			continue
		}
		if prev, dup := owner[f]; dup {
			return pkgerrors.Mappingf("表头 %q 与 %q 同时映射到字段 %s", prev, h, f)
		}
		owner[f] = h
		mapped++
	}
	if mapped == 0 {
		return pkgerrors.Mappingf("至少需要映射一列")
	}

	var missing []string
	for _, spec := range importSchemas[importType] {
		if spec.Required && owner[spec.Key] == "" {
			missing = append(missing, spec.Key)
		}
	}
	if len(missing) > 0 {
		return pkgerrors.Mappingf("必填字段未映射: %s", strings.Join(missing, ", "))
	}
	return nil
}

// FieldOptions 返回下拉选项，首项为 ignore
func FieldOptions(importType ImportType) ([]dto.FieldOption, error) {
	specs, ok := importSchemas[importType]
	if !ok {
		return nil, pkgerrors.Mappingf("不支持的导入类型: %q", importType)
	}
	options := make([]dto.FieldOption, 0, len(specs)+1)
	options = append(options, dto.FieldOption{Key: FieldIgnore, Label: "忽略此列"})
	for _, spec := range specs {
		options = append(options, dto.FieldOption{Key: spec.Key, Label: spec.Label, Required: spec.Required})
	}
	return options, nil
}

func schemaKeys(importType ImportType) map[string]bool {
	keys := make(map[string]bool)
	for _, spec := range importSchemas[importType] {
		keys[spec.Key] = true
	}
	return keys
}

// mappedColumns 返回 字段 -> 表头，仅包含非 ignore 项
func mappedColumns(mapping ColumnMapping) map[string]string {
	cols := make(map[string]string, len(mapping))
	for h, f := range mapping {
		if f != FieldIgnore && f != "" {
			cols[f] = h
		}
	}
	return cols
}

func describeImportType(t ImportType) string {
	switch t {
	case ImportTypeModules:
		return "模块"
	case ImportTypeAssignments:
		return "作业"
	default:
		return fmt.Sprintf("未知类型(%s)", string(t))
	}
}
