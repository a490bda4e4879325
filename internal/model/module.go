package model

import "time"

// 模块状态
const (
	ModuleStatusPlanned   = "planned"
	ModuleStatusActive    = "active"
	ModuleStatusCompleted = "completed"
	ModuleStatusDropped   = "dropped"
)

// ModuleStatuses 允许的模块状态
var ModuleStatuses = []string{ModuleStatusPlanned, ModuleStatusActive, ModuleStatusCompleted, ModuleStatusDropped}

// Module 课程模块表 — 对应 modules
// (owner_id, UPPER(code)) 在未删除记录中唯一（见迁移 000002）
// 导入写入的 code 为大写，外部写入的可能为任意大小写
type Module struct {
	ModuleID    string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"           json:"module_id"`
	OwnerID     string     `gorm:"type:uuid;not null;index"                                 json:"owner_id"`
	Code        string     `gorm:"type:varchar(32);not null"                                json:"code"`
	Title       string     `gorm:"type:varchar(200);not null"                               json:"title"`
	CreditHours float64    `gorm:"type:numeric(6,2);not null;default:0"                     json:"credit_hours"`
	Status      string     `gorm:"type:varchar(20);not null;default:'active'"               json:"status"`
	StartDate   *time.Time `gorm:"type:date"                                                json:"start_date,omitempty"`
	EndDate     *time.Time `gorm:"type:date"                                                json:"end_date,omitempty"`
	TermID      *string    `gorm:"type:uuid"                                                json:"term_id,omitempty"`
	IsStub      bool       `gorm:"not null;default:false"                                   json:"is_stub"` // 由导入自动补建的占位模块
	SoftDeleteModel
}

// TableName 指定表名
func (Module) TableName() string { return "modules" }
