package errors

import (
	"errors"
	"fmt"
)

// Kind 导入管道错误分类
type Kind string

const (
	// KindParse 源文本格式错误：会话级致命，需重新上传
	KindParse Kind = "parse"
	// KindMapping 列映射不可用：阻止步骤推进，用户可修正
	KindMapping Kind = "mapping"
	// KindValidation 单行/单字段校验失败：该行被排除，会话继续
	KindValidation Kind = "validation"
	// KindReference 引用的实体尚不存在：可通过自动创建恢复
	KindReference Kind = "reference"
	// KindPersistence 存储写入失败：该行标记失败，会话继续
	KindPersistence Kind = "persistence"
)

// ImportError 带分类的导入错误
type ImportError struct {
	Kind  Kind
	Field string // 相关字段（可为空）
	Row   int    // 表格行号，0 表示与具体行无关
	Msg   string
	Err   error
}

func (e *ImportError) Error() string {
	msg := e.Msg
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Row > 0 {
		msg = fmt.Sprintf("第 %d 行: %s", e.Row, msg)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *ImportError) Unwrap() error { return e.Err }

// Is 同类 ImportError 视为相等，便于 errors.Is(err, &ImportError{Kind: KindParse}) 判断
func (e *ImportError) Is(target error) bool {
	t, ok := target.(*ImportError)
	if !ok {
		return false
	}
	return t.Msg == "" && t.Kind == e.Kind
}

// ── 构造函数 ──

func Parsef(format string, args ...interface{}) *ImportError {
	return &ImportError{Kind: KindParse, Msg: fmt.Sprintf(format, args...)}
}

func Mappingf(format string, args ...interface{}) *ImportError {
	return &ImportError{Kind: KindMapping, Msg: fmt.Sprintf(format, args...)}
}

// Validationf 字段级校验错误
func Validationf(field, format string, args ...interface{}) *ImportError {
	return &ImportError{Kind: KindValidation, Field: field, Msg: fmt.Sprintf(format, args...)}
}

func Referencef(format string, args ...interface{}) *ImportError {
	return &ImportError{Kind: KindReference, Msg: fmt.Sprintf(format, args...)}
}

// Persistence 包装存储层错误
func Persistence(msg string, err error) *ImportError {
	return &ImportError{Kind: KindPersistence, Msg: msg, Err: err}
}

// KindOf 提取错误分类；非 ImportError 返回空串
func KindOf(err error) Kind {
	var ie *ImportError
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return ""
}

// IsKind 判断错误链中是否存在指定分类
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
