package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/xiebiao/foodorder/pkg/errors"
	"github.com/xiebiao/foodorder/pkg/logger"
)

// Response 统一响应结构
// 设计说明：
// 1. Success区分成功/失败
// 2. ErrorCode是稳定的机器可读错误码，仅失败时返回
// 3. Data是业务数据，成功时返回
type Response struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	ErrorCode string      `json:"error_code,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	SuccessWithMessage(c, "success", data)
}

// SuccessWithMessage 带提示信息的成功响应
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Created 创建成功(201)
func Created(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Error 错误响应（自动处理AppError）
// 用法：
//
//	order, err := svc.GetOrder(...)
//	if err != nil {
//	    response.Error(c, err)
//	    return
//	}
func Error(c *gin.Context, err error) {
	appErr := apperrors.GetAppError(err)

	// 内部错误只进日志
	if appErr.Err != nil {
		logger.FromContext(c.Request.Context()).Error("request failed",
			zap.String("error_code", appErr.Code),
			zap.Error(appErr.Err),
		)
	}

	c.JSON(appErr.HTTPStatus(), Response{
		Success:   false,
		Message:   appErr.Message,
		ErrorCode: appErr.Code,
	})
}

// =========================================
// 分页响应结构
// =========================================

// PageData 分页数据封装
type PageData struct {
	Items interface{} `json:"items"` // 数据列表
	Total int64       `json:"total"` // 总记录数
	Page  int         `json:"page"`  // 当前页码
	Size  int         `json:"size"`  // 每页大小
	Pages int         `json:"pages"` // 总页数
}

// NewPageData 创建分页数据
func NewPageData(items interface{}, total int64, page, size int) *PageData {
	pages := 0
	if size > 0 {
		pages = int(total) / size
		if int(total)%size != 0 {
			pages++
		}
	}

	return &PageData{
		Items: items,
		Total: total,
		Page:  page,
		Size:  size,
		Pages: pages,
	}
}

// SuccessWithPage 分页成功响应
func SuccessWithPage(c *gin.Context, items interface{}, total int64, page, size int) {
	Success(c, NewPageData(items, total, page, size))
}
