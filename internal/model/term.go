package model

import "time"

// Term 学期表 — 对应 terms
// 为缺少起止日期的模块提供默认日期范围
type Term struct {
	TermID    string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"term_id"`
	OwnerID   string    `gorm:"type:uuid;not null;index:idx_terms_owner"       json:"owner_id"`
	DegreeID  *string   `gorm:"type:uuid"                                      json:"degree_id,omitempty"`
	Title     string    `gorm:"type:varchar(100);not null"                     json:"title"`
	StartDate time.Time `gorm:"type:date;not null"                             json:"start_date"`
	EndDate   time.Time `gorm:"type:date;not null"                             json:"end_date"`
	SoftDeleteModel
}

// TableName 指定表名
func (Term) TableName() string { return "terms" }

// Overlaps 判断两个闭区间 [StartDate, EndDate] 是否相交
func (t *Term) Overlaps(start, end time.Time) bool {
	return !t.StartDate.After(end) && !start.After(t.EndDate)
}
