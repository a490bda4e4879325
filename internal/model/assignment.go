package model

import "time"

// 作业类型
const (
	AssignmentTypeExam         = "exam"
	AssignmentTypeCoursework   = "coursework"
	AssignmentTypeQuiz         = "quiz"
	AssignmentTypeProject      = "project"
	AssignmentTypePresentation = "presentation"
	AssignmentTypeLab          = "lab"
	AssignmentTypeOther        = "other"
)

// 作业状态
const (
	AssignmentStatusNotStarted = "not_started"
	AssignmentStatusInProgress = "in_progress"
	AssignmentStatusSubmitted  = "submitted"
	AssignmentStatusGraded     = "graded"
)

var (
	// AssignmentTypes 允许的作业类型
	AssignmentTypes = []string{
		AssignmentTypeExam, AssignmentTypeCoursework, AssignmentTypeQuiz, AssignmentTypeProject,
		AssignmentTypePresentation, AssignmentTypeLab, AssignmentTypeOther,
	}
	// AssignmentStatuses 允许的作业状态
	AssignmentStatuses = []string{
		AssignmentStatusNotStarted, AssignmentStatusInProgress, AssignmentStatusSubmitted, AssignmentStatusGraded,
	}
)

// Assignment 作业表 — 对应 assignments
// (module_id, title) 在未删除记录中唯一
type Assignment struct {
	AssignmentID   string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"   json:"assignment_id"`
	OwnerID        string     `gorm:"type:uuid;not null"                               json:"owner_id"`
	ModuleID       string     `gorm:"type:uuid;not null;uniqueIndex:uq_assignments_module_title,where:deleted_at IS NULL" json:"module_id"`
	ComponentID    *string    `gorm:"type:uuid"                                        json:"component_id,omitempty"`
	TermID         *string    `gorm:"type:uuid"                                        json:"term_id,omitempty"`
	Title          string     `gorm:"type:varchar(200);not null;uniqueIndex:uq_assignments_module_title,where:deleted_at IS NULL" json:"title"`
	Type           string     `gorm:"type:varchar(20);not null;default:'coursework'"   json:"type"`
	Status         string     `gorm:"type:varchar(20);not null;default:'not_started'"  json:"status"`
	DueDate        *time.Time `gorm:"type:timestamptz"                                 json:"due_date,omitempty"`
	Weight         *float64   `gorm:"type:numeric(5,2)"                                json:"weight,omitempty"`
	Score          *float64   `gorm:"type:numeric(5,2)"                                json:"score,omitempty"`
	EffortEstimate *float64   `gorm:"type:numeric(6,2)"                                json:"effort_estimate,omitempty"`
	Notes          string     `gorm:"type:text;not null;default:''"                    json:"notes"`
	SoftDeleteModel

	// 关联
	Module *Module `gorm:"foreignKey:ModuleID;references:ModuleID" json:"module,omitempty"`
}

// TableName 指定表名
func (Assignment) TableName() string { return "assignments" }
