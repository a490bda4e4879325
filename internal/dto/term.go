package dto

// ── 学期模块 DTO ──

// CreateTermRequest 创建学期请求
// 标签同时供 gin 绑定与 TermService 内部校验使用
type CreateTermRequest struct {
	Title     string  `json:"title"      binding:"required,max=100"`
	StartDate string  `json:"start_date" binding:"required,datetime=2006-01-02"` // "2025-01-01"
	EndDate   string  `json:"end_date"   binding:"required,datetime=2006-01-02"` // "2025-06-01"
	DegreeID  *string `json:"degree_id"  binding:"omitempty,uuid"`
}

// TermResponse 学期信息响应
type TermResponse struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	StartDate string  `json:"start_date"`
	EndDate   string  `json:"end_date"`
	DegreeID  *string `json:"degree_id,omitempty"`
	CreatedAt string  `json:"created_at"`
}

// CreateTermResponse 创建学期响应；overlaps 为日期区间相交的已有学期（仅提示，不阻止创建）
type CreateTermResponse struct {
	Term     TermResponse   `json:"term"`
	Overlaps []TermResponse `json:"overlaps"`
}
