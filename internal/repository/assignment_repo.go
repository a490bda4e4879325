package repository

import (
	"context"

	"gorm.io/gorm"

	"study-tracker/backend/internal/model"
)

// AssignmentRepository 作业数据访问接口
type AssignmentRepository interface {
	Create(ctx context.Context, assignment *model.Assignment) error
	ListByModule(ctx context.Context, moduleID string) ([]model.Assignment, error)
}

type assignmentRepo struct {
	db *gorm.DB
}

// NewAssignmentRepo 创建 AssignmentRepository 实例
func NewAssignmentRepo(db *gorm.DB) AssignmentRepository {
	return &assignmentRepo{db: db}
}

// Create 插入作业；(module_id, title) 冲突时返回 gorm.ErrDuplicatedKey（需开启 TranslateError）
func (r *assignmentRepo) Create(ctx context.Context, assignment *model.Assignment) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}

func (r *assignmentRepo) ListByModule(ctx context.Context, moduleID string) ([]model.Assignment, error) {
	var assignments []model.Assignment
	err := r.db.WithContext(ctx).
		Where("module_id = ?", moduleID).
		Order("due_date ASC NULLS LAST, title ASC").
		Find(&assignments).Error
	return assignments, err
}
