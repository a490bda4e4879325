package dto

// ── 批量导入 DTO ──

// ParseImportRequest 解析原始文本请求（multipart 上传时由 handler 填充）
type ParseImportRequest struct {
	RawText  string `json:"raw_text"  binding:"required"`
	FileName string `json:"file_name"`
}

// ParseImportResponse 解析结果
type ParseImportResponse struct {
	Headers  []string `json:"headers"`
	RowCount int      `json:"row_count"`
}

// PreviewImportRequest 预览校验请求
type PreviewImportRequest struct {
	ImportType string            `json:"import_type" binding:"required,oneof=modules assignments"`
	RawText    string            `json:"raw_text"    binding:"required"`
	Mapping    map[string]string `json:"mapping"` // 为空时使用推荐映射
}

// ImportRecord 校验通过的记录（展示用）
type ImportRecord struct {
	Row            int      `json:"row"`
	ModuleCode     string   `json:"module_code"`
	Title          string   `json:"title"`
	CreditHours    *float64 `json:"credit_hours,omitempty"`
	StartDate      *string  `json:"start_date,omitempty"`
	EndDate        *string  `json:"end_date,omitempty"`
	DueDate        *string  `json:"due_date,omitempty"`
	Weight         *float64 `json:"weight,omitempty"`
	Score          *float64 `json:"score,omitempty"`
	EffortEstimate *float64 `json:"effort_estimate,omitempty"`
	Status         string   `json:"status,omitempty"`
	Type           string   `json:"type,omitempty"`
	Component      string   `json:"component,omitempty"`
	Notes          string   `json:"notes,omitempty"`
}

// ImportRowError 校验失败的行
type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// PreviewImportResponse 预览结果
type PreviewImportResponse struct {
	TotalRows          int              `json:"total_rows"`
	ValidRecords       []ImportRecord   `json:"valid_records"`
	ErrorRecords       []ImportRowError `json:"error_records"`
	MissingModuleCodes []string         `json:"missing_module_codes"`
	NeedsTermMapping   bool             `json:"needs_term_mapping"`
}

// CreateMissingModulesRequest 自动创建缺失模块请求
type CreateMissingModulesRequest struct {
	Codes []string `json:"codes" binding:"required,min=1,dive,required,max=32"`
}

// CreateMissingModulesResponse 自动创建结果
type CreateMissingModulesResponse struct {
	CreatedCount int `json:"created_count"`
}

// IngestImportRequest 写入请求
type IngestImportRequest struct {
	ImportType string            `json:"import_type" binding:"required,oneof=modules assignments"`
	RawText    string            `json:"raw_text"    binding:"required"`
	Mapping    map[string]string `json:"mapping"`
	TermID     *string           `json:"term_id"     binding:"omitempty,uuid"`
}

// IngestFailure 单行写入失败
type IngestFailure struct {
	Row    int    `json:"row"`
	Title  string `json:"title,omitempty"`
	Kind   string `json:"kind"`
	Reason string `json:"reason"`
}

// IngestImportResponse 写入结果；total == success_count + len(failures)
type IngestImportResponse struct {
	Total        int             `json:"total"`
	SuccessCount int             `json:"success_count"`
	Failures     []IngestFailure `json:"failures"`
}

// FieldOption 列映射下拉选项
type FieldOption struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Required bool   `json:"required"`
}

// FieldOptionsRequest 查询字段选项
type FieldOptionsRequest struct {
	ImportType string `form:"import_type" binding:"required,oneof=modules assignments"`
}
