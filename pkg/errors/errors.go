// Package errors 提供统一的错误处理框架
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code 错误码
type Code string

const (
	// 通用错误码
	CodeUnknown      Code = "UNKNOWN"
	CodeInternal     Code = "INTERNAL_ERROR"
	CodeInvalidInput Code = "INVALID_INPUT"
	CodeNotFound     Code = "NOT_FOUND"
	CodeTimeout      Code = "TIMEOUT"
	CodeRateLimited  Code = "RATE_LIMITED"

	// 排课引擎相关
	CodeConfigError         Code = "CONFIG_ERROR"
	CodeInfeasible          Code = "INFEASIBLE"
	CodeConstraintViolation Code = "CONSTRAINT_VIOLATION"
	CodeDiagnoserTimeout    Code = "DIAGNOSER_TIMEOUT"
	CodeSegmentUnknown      Code = "SEGMENT_UNKNOWN"

	// 数据相关
	CodeDatabaseError  Code = "DATABASE_ERROR"
	CodeValidationFail Code = "VALIDATION_FAILED"
)

// 退出状态码约定（供预提交门禁使用）
// 0=通过，2=配置错误，3=无可行解，4=硬约束违反
const (
	ExitOK            = 0
	ExitConfigError   = 2
	ExitInfeasible    = 3
	ExitHardViolation = 4
)

// AppError 应用错误
type AppError struct {
	Code       Code                   `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	HTTPStatus int                    `json:"-"`
	Cause      error                  `json:"-"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails 添加详细信息
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// WithCause 添加原因
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithField 添加字段
func (e *AppError) WithField(key string, value interface{}) *AppError {
	if e.Fields == nil {
		e.Fields = make(map[string]interface{})
	}
	e.Fields[key] = value
	return e
}

// New 创建新错误
func New(code Code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

// Wrap 包装错误
func Wrap(err error, code Code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

// codeToHTTPStatus 错误码转HTTP状态码
func codeToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput, CodeValidationFail, CodeConfigError:
		return http.StatusBadRequest
	case CodeNotFound, CodeSegmentUnknown:
		return http.StatusNotFound
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeTimeout, CodeDiagnoserTimeout:
		return http.StatusGatewayTimeout
	case CodeInfeasible:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Is 检查错误是否为特定类型
func Is(err error, code Code) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// GetCode 获取错误码
func GetCode(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// GetHTTPStatus 获取HTTP状态码
func GetHTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// ExitCode 错误码转进程退出状态
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch GetCode(err) {
	case CodeConfigError, CodeInvalidInput, CodeValidationFail:
		return ExitConfigError
	case CodeInfeasible:
		return ExitInfeasible
	case CodeConstraintViolation:
		return ExitHardViolation
	default:
		return ExitHardViolation
	}
}

// 预定义错误
var (
	ErrNotFound   = New(CodeNotFound, "资源不存在")
	ErrInternal   = New(CodeInternal, "内部错误")
	ErrTimeout    = New(CodeTimeout, "操作超时")
	ErrInfeasible = New(CodeInfeasible, "无可行课表")
)

// ConfigError 创建配置错误（求解开始前即可检出的输入矛盾）
func ConfigError(reason string) *AppError {
	return New(CodeConfigError, reason)
}

// Infeasible 创建无可行解错误
func Infeasible(segment, reason string) *AppError {
	return New(CodeInfeasible, fmt.Sprintf("段 %s 无可行课表: %s", segment, reason)).
		WithField("segment", segment)
}

// ConstraintViolation 创建约束违反错误
func ConstraintViolation(rule, details string) *AppError {
	return New(CodeConstraintViolation, fmt.Sprintf("违反约束 '%s': %s", rule, details))
}

// InvalidInput 创建输入无效错误
func InvalidInput(field, reason string) *AppError {
	return New(CodeInvalidInput, fmt.Sprintf("字段 '%s' 无效: %s", field, reason))
}
