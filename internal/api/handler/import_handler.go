package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"study-tracker/backend/internal/dto"
	"study-tracker/backend/internal/service"
	"study-tracker/backend/pkg/response"
)

// ImportHandler 批量导入边界操作 HTTP 处理器
type ImportHandler struct {
	importSvc service.ImportService
}

// NewImportHandler 创建 ImportHandler
func NewImportHandler(importSvc service.ImportService) *ImportHandler {
	return &ImportHandler{importSvc: importSvc}
}

// Parse 解析上传文件或原始文本，返回表头与行数
// POST /api/v1/imports/parse
func (h *ImportHandler) Parse(c *gin.Context) {
	if _, ok := MustGetUserID(c); !ok {
		return
	}

	raw, ok := h.readSource(c)
	if !ok {
		return
	}

	resp, err := h.importSvc.Parse(raw)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.OK(c, resp)
}

// Preview 解析 + 映射 + 逐行校验，不写入
// POST /api/v1/imports/preview
func (h *ImportHandler) Preview(c *gin.Context) {
	ownerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.PreviewImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.importSvc.Preview(c.Request.Context(), ownerID, &req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.OK(c, resp)
}

// CreateMissingModules 为缺失的模块代码创建占位模块（幂等）
// POST /api/v1/imports/missing-modules
func (h *ImportHandler) CreateMissingModules(c *gin.Context) {
	ownerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateMissingModulesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.importSvc.CreateMissingModules(c.Request.Context(), ownerID, &req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.OK(c, resp)
}

// Ingest 写入校验通过的记录，逐行返回失败原因
// POST /api/v1/imports/ingest
func (h *ImportHandler) Ingest(c *gin.Context) {
	ownerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.IngestImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.importSvc.Ingest(c.Request.Context(), ownerID, &req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.OK(c, resp)
}

// FieldOptions 列映射可选字段
// GET /api/v1/imports/fields?import_type=modules
func (h *ImportHandler) FieldOptions(c *gin.Context) {
	var req dto.FieldOptionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}

	options, err := h.importSvc.FieldOptions(req.ImportType)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.OK(c, gin.H{"list": options})
}

// readSource multipart 上传读取 file 字段，否则读取 JSON raw_text
func (h *ImportHandler) readSource(c *gin.Context) ([]byte, bool) {
	if c.ContentType() == "multipart/form-data" {
		_, raw, err := readUploadedFile(c, h.importSvc)
		if err != nil {
			h.handleError(c, err)
			return nil, false
		}
		return raw, true
	}

	var req dto.ParseImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return nil, false
	}
	return []byte(req.RawText), true
}

// readUploadedFile 读取 multipart 的 file 字段；xlsx 在此转换为分隔文本
func readUploadedFile(c *gin.Context, importSvc service.ImportService) (string, []byte, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", nil, err
		}
		return "", nil, errMissingFile
	}
	f, err := fh.Open()
	if err != nil {
		return "", nil, err
	}
	defer f.Close()

	raw, err := importSvc.ReadUpload(fh.Filename, f)
	if err != nil {
		return "", nil, err
	}
	return fh.Filename, raw, nil
}

var errMissingFile = errors.New("缺少上传文件字段 file")

// handleError 统一处理导入模块业务错误
func (h *ImportHandler) handleError(c *gin.Context, err error) {
	if errors.Is(err, errMissingFile) {
		response.BadRequest(c, 16005, "缺少上传文件")
		return
	}
	if errors.Is(err, service.ErrTermNotFound) {
		response.NotFound(c, 14001, "学期不存在")
		return
	}
	if handleImportError(c, err) {
		return
	}
	response.InternalError(c)
}
