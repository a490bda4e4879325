package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	pkgerrors "study-tracker/backend/pkg/errors"
	"study-tracker/backend/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id（即数据所有者）。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// bindError 请求体绑定失败：超出大小限制为 413，其余为参数校验失败
func bindError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
		return
	}
	response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "参数校验失败", err.Error())
}

// errorSpec 业务错误对应的 HTTP 状态与错误码
type errorSpec struct {
	status  int
	code    int
	message string
	details bool // 是否在 details 中返回原始错误信息
}

// importErrorSpec 按导入错误分类映射；非导入错误返回 false
func importErrorSpec(err error) (errorSpec, bool) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return errorSpec{http.StatusRequestEntityTooLarge, 10005, "请求体过大", false}, true
	}

	switch pkgerrors.KindOf(err) {
	case pkgerrors.KindParse:
		return errorSpec{http.StatusBadRequest, 16001, "文件解析失败", true}, true
	case pkgerrors.KindMapping:
		return errorSpec{http.StatusBadRequest, 16002, "列映射无效", true}, true
	case pkgerrors.KindValidation:
		return errorSpec{http.StatusBadRequest, 16003, "数据校验失败", true}, true
	case pkgerrors.KindReference:
		return errorSpec{http.StatusConflict, 16004, "引用的数据不存在", true}, true
	case pkgerrors.KindPersistence:
		return errorSpec{http.StatusInternalServerError, 50000, "服务器内部错误", false}, true
	}
	return errorSpec{}, false
}

// writeError 按错误规格写出响应；data 非空时一并返回
func writeError(c *gin.Context, spec errorSpec, err error, data interface{}) {
	var details string
	if spec.details {
		details = err.Error()
	}
	response.ErrorWithData(c, spec.status, spec.code, spec.message, details, data)
}

// handleImportError 写出导入错误响应；返回 false 表示不是导入错误
func handleImportError(c *gin.Context, err error) bool {
	spec, ok := importErrorSpec(err)
	if !ok {
		return false
	}
	writeError(c, spec, err, nil)
	return true
}
