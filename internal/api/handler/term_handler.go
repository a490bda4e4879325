package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"study-tracker/backend/internal/dto"
	"study-tracker/backend/internal/service"
	pkgerrors "study-tracker/backend/pkg/errors"
	"study-tracker/backend/pkg/response"
)

// TermHandler 学期 HTTP 处理器
type TermHandler struct {
	termSvc service.TermService
}

// NewTermHandler 创建 TermHandler
func NewTermHandler(termSvc service.TermService) *TermHandler {
	return &TermHandler{termSvc: termSvc}
}

// ListTerms 获取当前用户的学期（新的在前）
// GET /api/v1/terms
func (h *TermHandler) ListTerms(c *gin.Context) {
	ownerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	terms, err := h.termSvc.List(c.Request.Context(), ownerID)
	if err != nil {
		h.handleTermError(c, err)
		return
	}

	response.OK(c, gin.H{"list": terms})
}

// CreateTerm 创建学期；与已有学期重叠时仍创建，重叠项随结果返回
// POST /api/v1/terms
func (h *TermHandler) CreateTerm(c *gin.Context) {
	ownerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateTermRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.termSvc.Create(c.Request.Context(), ownerID, &req)
	if err != nil {
		h.handleTermError(c, err)
		return
	}

	response.Created(c, resp)
}

// handleTermError 统一处理学期模块业务错误
func (h *TermHandler) handleTermError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTermNotFound):
		response.NotFound(c, 14001, "学期不存在")
	case errors.Is(err, service.ErrTermDateInvalid):
		response.BadRequest(c, 14002, "学期日期无效：结束日期必须晚于开始日期")
	case pkgerrors.IsKind(err, pkgerrors.KindValidation):
		response.ErrorWithDetails(c, http.StatusBadRequest, 14003, "学期信息校验失败", err.Error())
	default:
		response.InternalError(c)
	}
}
