package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	apporder "github.com/xiebiao/foodorder/internal/application/order"
	"github.com/xiebiao/foodorder/internal/domain/identity"
	"github.com/xiebiao/foodorder/internal/domain/order"
	"github.com/xiebiao/foodorder/internal/interface/http/dto"
	"github.com/xiebiao/foodorder/internal/interface/http/middleware"
	apperrors "github.com/xiebiao/foodorder/pkg/errors"
	"github.com/xiebiao/foodorder/pkg/response"
)

// OrderService 订单处理器依赖的用例集合(由*apporder.Service实现)
type OrderService interface {
	CreateOrder(ctx context.Context, actor identity.Identity, req apporder.CreateOrderRequest) (*apporder.OrderResponse, error)
	GetOrder(ctx context.Context, actor identity.Identity, id uint) (*apporder.OrderResponse, error)
	GetOrderByNumber(ctx context.Context, actor identity.Identity, number string) (*apporder.OrderResponse, error)
	ListMyOrders(ctx context.Context, actor identity.Identity, status *order.Status, page order.Page) (*apporder.ListResult, error)
	ListOrders(ctx context.Context, actor identity.Identity, q apporder.ListQuery) (*apporder.ListResult, error)
	GetHistory(ctx context.Context, actor identity.Identity, id uint) ([]apporder.HistoryResponse, error)
	UpdateOrder(ctx context.Context, actor identity.Identity, id uint, patch order.Patch) (*apporder.OrderResponse, error)
	CancelOrder(ctx context.Context, actor identity.Identity, id uint, reason string) (*apporder.OrderResponse, error)
	UpdateStatus(ctx context.Context, actor identity.Identity, id uint, target order.Status, note string) (*apporder.OrderResponse, error)
	UpdatePaymentStatus(ctx context.Context, actor identity.Identity, id uint, status order.PaymentStatus) (*apporder.OrderResponse, error)
	GetStatistics(ctx context.Context, actor identity.Identity, filter order.ListFilter) (*apporder.StatisticsResponse, error)
}

// OrderHandler 订单HTTP处理器(顾客接口)
type OrderHandler struct {
	orders OrderService
}

// NewOrderHandler 创建订单处理器
func NewOrderHandler(orders OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// CreateOrder 创建订单
// @Summary      创建订单
// @Description  按商品服务的实时价格计价并创建待确认订单;商品服务不可用时不会产生任何订单数据
// @Tags         订单
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.CreateOrderRequest true "订单信息"
// @Success      201 {object} response.Response{data=apporder.OrderResponse} "下单成功"
// @Failure      400 {object} response.Response "参数错误"
// @Failure      401 {object} response.Response "未登录"
// @Failure      404 {object} response.Response "商品不存在"
// @Failure      422 {object} response.Response "商品不可售或未达到起送金额"
// @Failure      503 {object} response.Response "商品服务不可用"
// @Router       /orders [post]
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.ErrValidation.WithMessage("参数错误: "+err.Error()))
		return
	}

	resp, err := h.orders.CreateOrder(c.Request.Context(), middleware.MustGetIdentity(c), req.ToCommand())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "下单成功", resp)
}

// ListMyOrders 我的订单
// @Summary      我的订单列表
// @Tags         订单
// @Produce      json
// @Security     BearerAuth
// @Param        page   query int    false "页码" default(1)
// @Param        size   query int    false "每页数量(最大100)" default(20)
// @Param        status query string false "订单状态"
// @Success      200 {object} response.Response{data=response.PageData{items=[]apporder.OrderListItem}}
// @Failure      400 {object} response.Response "参数错误"
// @Router       /orders/my [get]
func (h *OrderHandler) ListMyOrders(c *gin.Context) {
	var q dto.MyOrdersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, apperrors.ErrValidation.WithMessage("参数错误: "+err.Error()))
		return
	}

	result, err := h.orders.ListMyOrders(c.Request.Context(), middleware.MustGetIdentity(c), q.StatusFilter(), q.ToPage())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithPage(c, result.Items, result.Total, result.Page, result.Size)
}

// GetOrder 订单详情
// @Summary      订单详情
// @Tags         订单
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "订单ID"
// @Success      200 {object} response.Response{data=apporder.OrderResponse}
// @Failure      403 {object} response.Response "无权访问"
// @Failure      404 {object} response.Response "订单不存在"
// @Router       /orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	resp, err := h.orders.GetOrder(c.Request.Context(), middleware.MustGetIdentity(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, resp)
}

// GetOrderByNumber 按订单号查询
// @Summary      按订单号查询订单
// @Tags         订单
// @Produce      json
// @Security     BearerAuth
// @Param        number path string true "订单号"
// @Success      200 {object} response.Response{data=apporder.OrderResponse}
// @Failure      403 {object} response.Response "无权访问"
// @Failure      404 {object} response.Response "订单不存在"
// @Router       /orders/number/{number} [get]
func (h *OrderHandler) GetOrderByNumber(c *gin.Context) {
	resp, err := h.orders.GetOrderByNumber(c.Request.Context(), middleware.MustGetIdentity(c), c.Param("number"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, resp)
}

// UpdateOrder 修改订单
// @Summary      修改待确认订单
// @Description  只提交需要修改的字段;订单确认后不能再修改
// @Tags         订单
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path int                    true "订单ID"
// @Param        request body dto.UpdateOrderRequest true "修改内容"
// @Success      200 {object} response.Response{data=apporder.OrderResponse}
// @Failure      400 {object} response.Response "参数错误或订单不可修改"
// @Failure      403 {object} response.Response "无权访问"
// @Router       /orders/{id} [patch]
func (h *OrderHandler) UpdateOrder(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req dto.UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.ErrValidation.WithMessage("参数错误: "+err.Error()))
		return
	}

	resp, err := h.orders.UpdateOrder(c.Request.Context(), middleware.MustGetIdentity(c), id, req.ToPatch())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, "订单已修改", resp)
}

// CancelOrder 取消订单
// @Summary      取消订单
// @Description  顾客只能取消待确认的订单;商家或管理员可以取消任意未完结订单
// @Tags         订单
// @Produce      json
// @Security     BearerAuth
// @Param        id     path  int    true  "订单ID"
// @Param        reason query string false "取消原因"
// @Success      200 {object} response.Response{data=apporder.OrderResponse}
// @Failure      403 {object} response.Response "无权取消"
// @Failure      409 {object} response.Response "当前状态不允许取消"
// @Router       /orders/{id}/cancel [post]
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	resp, err := h.orders.CancelOrder(c.Request.Context(), middleware.MustGetIdentity(c), id, c.Query("reason"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, "订单已取消", resp)
}

// GetHistory 状态变更记录
// @Summary      订单状态变更记录
// @Tags         订单
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "订单ID"
// @Success      200 {object} response.Response{data=[]apporder.HistoryResponse}
// @Failure      403 {object} response.Response "无权访问"
// @Failure      404 {object} response.Response "订单不存在"
// @Router       /orders/{id}/history [get]
func (h *OrderHandler) GetHistory(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	history, err := h.orders.GetHistory(c.Request.Context(), middleware.MustGetIdentity(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, history)
}

// parseID 解析路径中的订单ID,失败时直接写入错误响应
func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		response.Error(c, apperrors.ErrValidation.WithMessage("无效的订单ID"))
		return 0, false
	}
	return uint(id), true
}
