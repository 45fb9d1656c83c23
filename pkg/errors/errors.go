package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError 自定义应用错误
// 设计说明：
// 1. Code是稳定的机器可读错误码，客户端据此判断错误类型
// 2. Message是用户友好的提示信息
// 3. Err是内部错误，仅记录到日志，不返回给客户端
type AppError struct {
	Code    string `json:"error_code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 支持errors.Is和errors.As
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 错误码相同即视为同一类错误
// 用法：errors.Is(err, apperrors.ErrInvalidTransition)
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// HTTPStatus 错误码对应的HTTP状态码
func (e *AppError) HTTPStatus() int {
	if status, ok := httpStatus[e.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// WithMessage 基于预定义错误派生一个携带具体提示的副本
func (e *AppError) WithMessage(message string) *AppError {
	return &AppError{Code: e.Code, Message: message, Err: e.Err}
}

// WithMessagef 格式化版本的WithMessage
func (e *AppError) WithMessagef(format string, args ...interface{}) *AppError {
	return e.WithMessage(fmt.Sprintf(format, args...))
}

// WithErr 附加内部错误
func (e *AppError) WithErr(err error) *AppError {
	return &AppError{Code: e.Code, Message: e.Message, Err: err}
}

// New 创建新的AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装系统错误（如数据库错误、网络错误）
func Wrap(err error, message string) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: message,
		Err:     err,
	}
}

// Wrapf 格式化包装错误
func Wrapf(err error, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// =========================================
// 错误码定义
// =========================================

const (
	// 系统级
	CodeInternal      = "INTERNAL_ERROR"
	CodeDatabaseError = "DATABASE_ERROR"

	// 认证授权
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeInvalidToken     = "INVALID_TOKEN"
	CodeTokenExpired     = "TOKEN_EXPIRED"
	CodePermissionDenied = "PERMISSION_DENIED"

	// 资源
	CodeNotFound        = "NOT_FOUND"
	CodeProductNotFound = "PRODUCT_NOT_FOUND"

	// 业务规则
	CodeValidation           = "VALIDATION_ERROR"
	CodeBelowMinimumOrder    = "BELOW_MINIMUM_ORDER"
	CodeProductUnavailable   = "PRODUCT_UNAVAILABLE"
	CodeInvalidTransition    = "INVALID_TRANSITION"
	CodeDuplicateOrderNumber = "DUPLICATE_ORDER_NUMBER"

	// 外部依赖
	CodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
)

var httpStatus = map[string]int{
	CodeInternal:             http.StatusInternalServerError,
	CodeDatabaseError:        http.StatusInternalServerError,
	CodeUnauthorized:         http.StatusUnauthorized,
	CodeInvalidToken:         http.StatusUnauthorized,
	CodeTokenExpired:         http.StatusUnauthorized,
	CodePermissionDenied:     http.StatusForbidden,
	CodeNotFound:             http.StatusNotFound,
	CodeProductNotFound:      http.StatusNotFound,
	CodeValidation:           http.StatusBadRequest,
	CodeBelowMinimumOrder:    http.StatusUnprocessableEntity,
	CodeProductUnavailable:   http.StatusUnprocessableEntity,
	CodeInvalidTransition:    http.StatusConflict,
	CodeDuplicateOrderNumber: http.StatusConflict,
	CodeUpstreamUnavailable:  http.StatusServiceUnavailable,
}

// =========================================
// 预定义错误
// =========================================

var (
	ErrInternal      = New(CodeInternal, "系统内部错误")
	ErrDatabaseError = New(CodeDatabaseError, "数据库错误")

	ErrUnauthorized     = New(CodeUnauthorized, "请先登录")
	ErrInvalidToken     = New(CodeInvalidToken, "无效的Token")
	ErrTokenExpired     = New(CodeTokenExpired, "Token已过期")
	ErrPermissionDenied = New(CodePermissionDenied, "无权限访问")

	ErrNotFound        = New(CodeNotFound, "资源不存在")
	ErrProductNotFound = New(CodeProductNotFound, "商品不存在")

	ErrValidation           = New(CodeValidation, "参数错误")
	ErrBelowMinimumOrder    = New(CodeBelowMinimumOrder, "未达到最低起送金额")
	ErrProductUnavailable   = New(CodeProductUnavailable, "商品暂不可售")
	ErrInvalidTransition    = New(CodeInvalidTransition, "订单状态不允许此操作")
	ErrDuplicateOrderNumber = New(CodeDuplicateOrderNumber, "订单号重复")

	ErrUpstreamUnavailable = New(CodeUpstreamUnavailable, "依赖服务不可用")
)

// =========================================
// 辅助函数
// =========================================

// IsAppError 判断是否为AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError 提取AppError（如果不是AppError则包装成Internal错误）
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, "系统内部错误")
}

// HasCode 判断错误链上是否存在指定错误码
func HasCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
