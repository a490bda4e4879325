package repository

import (
	"context"

	"gorm.io/gorm"

	"study-tracker/backend/internal/model"
)

// TermRepository 学期数据访问接口
type TermRepository interface {
	Create(ctx context.Context, term *model.Term) error
	GetByID(ctx context.Context, ownerID, id string) (*model.Term, error)
	ListByOwner(ctx context.Context, ownerID string) ([]model.Term, error)
}

type termRepo struct {
	db *gorm.DB
}

// NewTermRepo 创建 TermRepository 实例
func NewTermRepo(db *gorm.DB) TermRepository {
	return &termRepo{db: db}
}

func (r *termRepo) Create(ctx context.Context, term *model.Term) error {
	return r.db.WithContext(ctx).Create(term).Error
}

func (r *termRepo) GetByID(ctx context.Context, ownerID, id string) (*model.Term, error) {
	var term model.Term
	err := r.db.WithContext(ctx).
		Where("term_id = ? AND owner_id = ?", id, ownerID).
		First(&term).Error
	if err != nil {
		return nil, err
	}
	return &term, nil
}

// ListByOwner 按开始日期倒序返回用户的全部学期
func (r *termRepo) ListByOwner(ctx context.Context, ownerID string) ([]model.Term, error) {
	var terms []model.Term
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("start_date DESC").
		Find(&terms).Error
	return terms, err
}
