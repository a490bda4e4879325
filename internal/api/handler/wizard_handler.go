package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"study-tracker/backend/internal/dto"
	"study-tracker/backend/internal/service"
	"study-tracker/backend/pkg/response"
)

// WizardHandler 导入向导 HTTP 处理器
// 所有步骤操作成功时返回最新会话状态；业务错误时在 data 中附带当前状态
type WizardHandler struct {
	wizardSvc service.WizardService
	importSvc service.ImportService
}

// NewWizardHandler 创建 WizardHandler
func NewWizardHandler(wizardSvc service.WizardService, importSvc service.ImportService) *WizardHandler {
	return &WizardHandler{wizardSvc: wizardSvc, importSvc: importSvc}
}

// ────────────────────── 会话 ──────────────────────

// OpenSession 打开向导会话
// POST /api/v1/import-sessions
func (h *WizardHandler) OpenSession(c *gin.Context) {
	ownerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.OpenSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	state, err := h.wizardSvc.Open(c.Request.Context(), ownerID, req.ImportType)
	if err != nil {
		h.handleWizardError(c, ownerID, "", err)
		return
	}

	response.Created(c, state)
}

// GetSession 获取会话状态
// GET /api/v1/import-sessions/:id
func (h *WizardHandler) GetSession(c *gin.Context) {
	h.run(c, func(ownerID, id string) (*dto.WizardStateResponse, error) {
		return h.wizardSvc.Get(c.Request.Context(), ownerID, id)
	})
}

// CloseSession 关闭并丢弃会话
// DELETE /api/v1/import-sessions/:id
func (h *WizardHandler) CloseSession(c *gin.Context) {
	ownerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	id := c.Param("id")
	if err := h.wizardSvc.Close(c.Request.Context(), ownerID, id); err != nil {
		h.handleWizardError(c, ownerID, id, err)
		return
	}

	response.OK(c, nil)
}

// ────────────────────── 步骤操作 ──────────────────────

// Upload 上传文件（multipart file 或 JSON raw_text）
// POST /api/v1/import-sessions/:id/upload
func (h *WizardHandler) Upload(c *gin.Context) {
	ownerID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	id := c.Param("id")

	var (
		fileName string
		raw      []byte
	)
	if c.ContentType() == "multipart/form-data" {
		name, data, err := readUploadedFile(c, h.importSvc)
		if err != nil {
			h.handleWizardError(c, ownerID, id, err)
			return
		}
		fileName, raw = name, data
	} else {
		var req dto.ParseImportRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
		fileName, raw = req.FileName, []byte(req.RawText)
	}

	state, err := h.wizardSvc.Upload(c.Request.Context(), ownerID, id, fileName, raw)
	if err != nil {
		h.handleWizardError(c, ownerID, id, err)
		return
	}

	response.OK(c, state)
}

// AutoMap 使用推荐映射
// POST /api/v1/import-sessions/:id/auto-map
func (h *WizardHandler) AutoMap(c *gin.Context) {
	h.run(c, func(ownerID, id string) (*dto.WizardStateResponse, error) {
		return h.wizardSvc.AutoMap(c.Request.Context(), ownerID, id)
	})
}

// SetMapping 覆盖列映射
// PUT /api/v1/import-sessions/:id/mapping
func (h *WizardHandler) SetMapping(c *gin.Context) {
	var req dto.SetMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	h.run(c, func(ownerID, id string) (*dto.WizardStateResponse, error) {
		return h.wizardSvc.SetMapping(c.Request.Context(), ownerID, id, req.Mapping)
	})
}

// SelectTerm 选择已有学期
// PUT /api/v1/import-sessions/:id/term
func (h *WizardHandler) SelectTerm(c *gin.Context) {
	var req dto.SelectTermRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	h.run(c, func(ownerID, id string) (*dto.WizardStateResponse, error) {
		return h.wizardSvc.SelectTerm(c.Request.Context(), ownerID, id, req.TermID)
	})
}

// CreateTerm 在向导内新建学期并选中
// POST /api/v1/import-sessions/:id/term
func (h *WizardHandler) CreateTerm(c *gin.Context) {
	var req dto.CreateTermRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	h.run(c, func(ownerID, id string) (*dto.WizardStateResponse, error) {
		return h.wizardSvc.CreateTerm(c.Request.Context(), ownerID, id, &req)
	})
}

// SetOptions 设置会话选项（是否自动创建缺失模块）
// PUT /api/v1/import-sessions/:id/options
func (h *WizardHandler) SetOptions(c *gin.Context) {
	var req dto.SessionOptionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	h.run(c, func(ownerID, id string) (*dto.WizardStateResponse, error) {
		return h.wizardSvc.SetOptions(c.Request.Context(), ownerID, id, &req)
	})
}

// Next 前进一步；在预览步骤上等同于提交
// POST /api/v1/import-sessions/:id/next
func (h *WizardHandler) Next(c *gin.Context) {
	h.run(c, func(ownerID, id string) (*dto.WizardStateResponse, error) {
		return h.wizardSvc.Next(c.Request.Context(), ownerID, id)
	})
}

// Back 后退一步
// POST /api/v1/import-sessions/:id/back
func (h *WizardHandler) Back(c *gin.Context) {
	h.run(c, func(ownerID, id string) (*dto.WizardStateResponse, error) {
		return h.wizardSvc.Back(c.Request.Context(), ownerID, id)
	})
}

// Commit 提交导入
// POST /api/v1/import-sessions/:id/commit
func (h *WizardHandler) Commit(c *gin.Context) {
	h.run(c, func(ownerID, id string) (*dto.WizardStateResponse, error) {
		return h.wizardSvc.Commit(c.Request.Context(), ownerID, id)
	})
}

// run 提取 owner 与会话 ID，执行 fn 并写出状态
func (h *WizardHandler) run(c *gin.Context, fn func(ownerID, id string) (*dto.WizardStateResponse, error)) {
	ownerID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	id := c.Param("id")

	state, err := fn(ownerID, id)
	if err != nil {
		h.handleWizardError(c, ownerID, id, err)
		return
	}

	response.OK(c, state)
}

// ── 错误处理 ──

var wizardErrors = []struct {
	err  error
	spec errorSpec
}{
	{service.ErrSessionNotFound, errorSpec{http.StatusNotFound, 17001, "导入会话不存在或已过期", false}},
	{service.ErrSessionClosed, errorSpec{http.StatusGone, 17002, "导入会话已关闭", false}},
	{service.ErrStepMismatch, errorSpec{http.StatusConflict, 17003, "当前步骤不允许该操作", true}},
	{service.ErrNoFileUploaded, errorSpec{http.StatusBadRequest, 17004, "请先上传并成功解析文件", false}},
	{service.ErrTermRequired, errorSpec{http.StatusBadRequest, 17005, "请选择已有学期或创建新学期", false}},
	{service.ErrNoValidRecords, errorSpec{http.StatusBadRequest, 17006, "没有可导入的有效记录", false}},
	{service.ErrWizardComplete, errorSpec{http.StatusConflict, 17007, "导入已完成", false}},
	{service.ErrNoPreviousStep, errorSpec{http.StatusBadRequest, 17008, "已是第一步", false}},
	{service.ErrInvalidImportType, errorSpec{http.StatusBadRequest, 17009, "不支持的导入类型", false}},
	{service.ErrTermNotFound, errorSpec{http.StatusNotFound, 14001, "学期不存在", false}},
	{errMissingFile, errorSpec{http.StatusBadRequest, 16005, "缺少上传文件", false}},
}

// handleWizardError 会话仍然有效时在 data 中附带当前状态，便于界面展示阻塞原因
func (h *WizardHandler) handleWizardError(c *gin.Context, ownerID, id string, err error) {
	var state *dto.WizardStateResponse
	if id != "" && !errors.Is(err, service.ErrSessionNotFound) && !errors.Is(err, service.ErrSessionClosed) {
		state, _ = h.wizardSvc.Get(c.Request.Context(), ownerID, id)
	}

	for _, e := range wizardErrors {
		if errors.Is(err, e.err) {
			writeError(c, e.spec, err, stateData(state))
			return
		}
	}
	if spec, ok := importErrorSpec(err); ok {
		writeError(c, spec, err, stateData(state))
		return
	}
	response.InternalError(c)
}

// stateData 避免把 nil 指针写成 "data": null
func stateData(state *dto.WizardStateResponse) interface{} {
	if state == nil {
		return nil
	}
	return state
}
