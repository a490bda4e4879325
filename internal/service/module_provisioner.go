package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"study-tracker/backend/config"
	"study-tracker/backend/internal/model"
	"study-tracker/backend/internal/repository"
	pkgerrors "study-tracker/backend/pkg/errors"
	"study-tracker/backend/pkg/metrics"
)

// ModuleProvisioner 为导入中引用但不存在的模块代码创建占位模块
type ModuleProvisioner struct {
	repo          *repository.Repository
	creditHours   float64
	defaultStatus string
	logger        *zap.Logger
}

// NewModuleProvisioner 创建 ModuleProvisioner
func NewModuleProvisioner(repo *repository.Repository, cfg *config.ImportConfig, logger *zap.Logger) *ModuleProvisioner {
	return &ModuleProvisioner{
		repo:          repo,
		creditHours:   cfg.DefaultCreditHours,
		defaultStatus: cfg.DefaultModuleStatus,
		logger:        logger,
	}
}

// ────────────────────── CreateMissing ──────────────────────

// CreateMissing 逐个代码先查后建，返回实际新建数量
// 并发导入同时创建同一代码时由 ON CONFLICT DO NOTHING 兜底，不会报错也不会重复计数
func (p *ModuleProvisioner) CreateMissing(ctx context.Context, ownerID string, codes []string) (int, error) {
	created := 0
	defer func() { metrics.AddProvisionedModules(created) }()

	seen := make(map[string]bool, len(codes))
	for _, raw := range codes {
		code := NormalizeModuleCode(raw)
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true

		if _, err := p.repo.Module.FindByCode(ctx, ownerID, code); err == nil {
			continue
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			p.logger.Error("查询模块失败", zap.String("code", code), zap.Error(err))
			return created, pkgerrors.Persistence("查询模块 "+code+" 失败", err)
		}

		stub := &model.Module{
			OwnerID:         ownerID,
			Code:            code,
			Title:           code,
			CreditHours:     p.creditHours,
			Status:          p.defaultStatus,
			IsStub:          true,
			SoftDeleteModel: model.Audit(ownerID),
		}
		ok, err := p.repo.Module.CreateIfAbsent(ctx, stub)
		if err != nil {
			p.logger.Error("创建占位模块失败", zap.String("code", code), zap.Error(err))
			return created, pkgerrors.Persistence("创建模块 "+code+" 失败", err)
		}
		if ok {
			created++
		}
	}

	if created > 0 {
		p.logger.Info("已自动创建缺失模块", zap.String("owner_id", ownerID), zap.Int("created", created))
	}
	return created, nil
}
