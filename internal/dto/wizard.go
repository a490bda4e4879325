package dto

// ── 导入向导 DTO ──

// OpenSessionRequest 打开向导会话
type OpenSessionRequest struct {
	ImportType string `json:"import_type" binding:"required,oneof=modules assignments"`
}

// SetMappingRequest 覆盖整份列映射
type SetMappingRequest struct {
	Mapping map[string]string `json:"mapping" binding:"required"`
}

// SelectTermRequest 选择已有学期
type SelectTermRequest struct {
	TermID string `json:"term_id" binding:"required"`
}

// SessionOptionsRequest 会话选项
type SessionOptionsRequest struct {
	CreateMissingModules *bool `json:"create_missing_modules" binding:"required"`
}

// WizardStep 步骤描述
type WizardStep struct {
	Number int    `json:"number"`
	Key    string `json:"key"`
	Title  string `json:"title"`
}

// WizardStateResponse 向导状态（UI 仅据此渲染，不含业务逻辑）
type WizardStateResponse struct {
	SessionID            string                 `json:"session_id"`
	ImportType           string                 `json:"import_type"`
	CurrentStep          int                    `json:"current_step"`
	Steps                []WizardStep           `json:"steps"`
	CanAdvance           bool                   `json:"can_advance"`
	CanGoBack            bool                   `json:"can_go_back"`
	AdvanceBlocker       string                 `json:"advance_blocker,omitempty"`
	FileName             string                 `json:"file_name,omitempty"`
	Headers              []string               `json:"headers"`
	RowCount             int                    `json:"row_count"`
	Mapping              map[string]string      `json:"mapping"`
	SelectedTermID       *string                `json:"selected_term_id,omitempty"`
	NewTermDraft         *CreateTermRequest     `json:"new_term_draft,omitempty"`
	TermOverlaps         []TermResponse         `json:"term_overlaps,omitempty"`
	CreateMissingModules bool                   `json:"create_missing_modules"`
	Preview              *PreviewImportResponse `json:"preview,omitempty"`
	Result               *IngestImportResponse  `json:"result,omitempty"`
	Complete             bool                   `json:"complete"`
}
