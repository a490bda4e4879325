package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"study-tracker/backend/internal/model"
)

// ModuleRepository 课程模块数据访问接口
// 模块代码按大小写不敏感比较，与唯一索引 (owner_id, UPPER(code)) 一致
type ModuleRepository interface {
	FindByCode(ctx context.Context, ownerID, code string) (*model.Module, error)
	FindByCodes(ctx context.Context, ownerID string, codes []string) ([]model.Module, error)
	Create(ctx context.Context, module *model.Module) error
	// CreateIfAbsent 插入模块；(owner_id, code) 已存在时不做任何事并返回 false
	CreateIfAbsent(ctx context.Context, module *model.Module) (bool, error)
	UpdateFields(ctx context.Context, moduleID string, fields map[string]interface{}) error
}

type moduleRepo struct {
	db *gorm.DB
}

// NewModuleRepo 创建 ModuleRepository 实例
func NewModuleRepo(db *gorm.DB) ModuleRepository {
	return &moduleRepo{db: db}
}

func (r *moduleRepo) FindByCode(ctx context.Context, ownerID, code string) (*model.Module, error) {
	var module model.Module
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND UPPER(code) = UPPER(?)", ownerID, code).
		First(&module).Error
	if err != nil {
		return nil, err
	}
	return &module, nil
}

// FindByCodes 一次查询返回 codes 中已存在的模块
func (r *moduleRepo) FindByCodes(ctx context.Context, ownerID string, codes []string) ([]model.Module, error) {
	var modules []model.Module
	if len(codes) == 0 {
		return modules, nil
	}
	upper := make([]string, len(codes))
	for i, c := range codes {
		upper[i] = strings.ToUpper(c)
	}
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND UPPER(code) IN ?", ownerID, upper).
		Find(&modules).Error
	return modules, err
}

func (r *moduleRepo) Create(ctx context.Context, module *model.Module) error {
	return r.db.WithContext(ctx).Create(module).Error
}

func (r *moduleRepo) CreateIfAbsent(ctx context.Context, module *model.Module) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:     []clause.Column{{Name: "owner_id"}, {Name: "UPPER(code)", Raw: true}},
			TargetWhere: clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: "deleted_at IS NULL"}}},
			DoNothing:   true,
		}).
		Create(module)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *moduleRepo) UpdateFields(ctx context.Context, moduleID string, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&model.Module{}).
		Where("module_id = ?", moduleID).
		Updates(fields).Error
}
