package model

// AssessmentComponent 考核组成表 — 对应 assessment_components
type AssessmentComponent struct {
	ComponentID string   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"component_id"`
	ModuleID    string   `gorm:"type:uuid;not null;uniqueIndex:uq_components_module_name" json:"module_id"`
	Name        string   `gorm:"type:varchar(100);not null;uniqueIndex:uq_components_module_name" json:"name"`
	Weight      *float64 `gorm:"type:numeric(5,2)"                              json:"weight,omitempty"`
	BaseModel
}

// TableName 指定表名
func (AssessmentComponent) TableName() string { return "assessment_components" }
