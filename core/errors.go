package core

import (
	"context"
	"errors"
	"fmt"
)

// 错误分类码。ResilientCaller 只会重试 CodeTransient，其余一律立即上抛。
const (
	CodeTransient    = "TRANSIENT_SERVICE" // 限流/瞬时网络错误，可重试
	CodeFatalService = "FATAL_SERVICE"     // 鉴权失败/配额耗尽/请求非法，不重试
	CodeParse        = "PARSE"             // 外部响应结构不合法，重试无意义
	CodeInvalidInput = "INVALID_INPUT"     // 违反数据模型不变量，调用方缺陷
	CodePrediction   = "PREDICTION"        // 预测服务不可用或输出畸形
	CodeCancelled    = "CANCELLED"         // 运行级取消信号
)

// PipelineError 是管线的统一错误类型。
//
// 设计原则：
//   - 所有阶段边界上的错误都收敛为此类型，携带分类码与阶段名
//   - 可重试性由 Code 决定，不靠字符串匹配
//   - 保留底层错误（Err）以便 errors.Is/As 链式检查
type PipelineError struct {
	Code    string // 分类码（见上方常量）
	Stage   string // 产生错误的阶段，如 "trend", "predict"
	Message string
	Err     error
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s [%s/%s]: %v", e.Message, e.Stage, e.Code, e.Err)
	}
	return fmt.Sprintf("%s [%s/%s]", e.Message, e.Stage, e.Code)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// NewError 创建一个 PipelineError。
func NewError(stage, code, message string) *PipelineError {
	return &PipelineError{Code: code, Stage: stage, Message: message}
}

// WrapError 包装底层错误并附加分类码。
func WrapError(stage, code, message string, err error) *PipelineError {
	return &PipelineError{Code: code, Stage: stage, Message: message, Err: err}
}

// GetPipelineError 从错误链中提取 PipelineError，不存在则返回 nil。
func GetPipelineError(err error) *PipelineError {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe
	}
	return nil
}

func hasCode(err error, code string) bool {
	if pe := GetPipelineError(err); pe != nil {
		return pe.Code == code
	}
	return false
}

// IsTransient 判断错误是否可重试。
func IsTransient(err error) bool { return hasCode(err, CodeTransient) }

// IsFatalService 判断错误是否为服务侧终态失败。
func IsFatalService(err error) bool { return hasCode(err, CodeFatalService) }

// IsParse 判断错误是否为响应解析失败。
func IsParse(err error) bool { return hasCode(err, CodeParse) }

// IsInvalidInput 判断错误是否为输入不变量违例。
func IsInvalidInput(err error) bool { return hasCode(err, CodeInvalidInput) }

// IsPrediction 判断错误是否来自预测能力。
func IsPrediction(err error) bool { return hasCode(err, CodePrediction) }

// IsCancelled 判断错误是否由取消信号产生。
func IsCancelled(err error) bool {
	return hasCode(err, CodeCancelled) || errors.Is(err, context.Canceled)
}
