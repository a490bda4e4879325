package repository

import (
	"context"

	"gorm.io/gorm"

	"study-tracker/backend/internal/model"
)

// ComponentRepository 考核组成数据访问接口
type ComponentRepository interface {
	// FindByName 按名称查找（不区分大小写）
	FindByName(ctx context.Context, moduleID, name string) (*model.AssessmentComponent, error)
	Create(ctx context.Context, component *model.AssessmentComponent) error
}

type componentRepo struct {
	db *gorm.DB
}

// NewComponentRepo 创建 ComponentRepository 实例
func NewComponentRepo(db *gorm.DB) ComponentRepository {
	return &componentRepo{db: db}
}

func (r *componentRepo) FindByName(ctx context.Context, moduleID, name string) (*model.AssessmentComponent, error) {
	var component model.AssessmentComponent
	err := r.db.WithContext(ctx).
		Where("module_id = ? AND LOWER(name) = LOWER(?)", moduleID, name).
		First(&component).Error
	if err != nil {
		return nil, err
	}
	return &component, nil
}

func (r *componentRepo) Create(ctx context.Context, component *model.AssessmentComponent) error {
	return r.db.WithContext(ctx).Create(component).Error
}
