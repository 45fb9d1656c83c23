package handler

import (
	"github.com/gin-gonic/gin"

	apporder "github.com/xiebiao/foodorder/internal/application/order"
	"github.com/xiebiao/foodorder/internal/domain/order"
	"github.com/xiebiao/foodorder/internal/interface/http/dto"
	"github.com/xiebiao/foodorder/internal/interface/http/middleware"
	apperrors "github.com/xiebiao/foodorder/pkg/errors"
	"github.com/xiebiao/foodorder/pkg/response"
)

// AdminOrderHandler 后台订单接口(商家、管理员、骑手)
// 角色校验在订单服务中完成,这里只做参数绑定
type AdminOrderHandler struct {
	orders OrderService
}

// NewAdminOrderHandler 创建后台订单处理器
func NewAdminOrderHandler(orders OrderService) *AdminOrderHandler {
	return &AdminOrderHandler{orders: orders}
}

// ListOrders 全部订单
// @Summary      全部订单列表
// @Tags         后台订单
// @Produce      json
// @Security     BearerAuth
// @Param        page      query int    false "页码" default(1)
// @Param        size      query int    false "每页数量(最大100)" default(20)
// @Param        status    query string false "订单状态"
// @Param        user_id   query int    false "用户ID"
// @Param        date_from query string false "开始日期(2006-01-02或RFC3339)"
// @Param        date_to   query string false "结束日期(包含当天)"
// @Success      200 {object} response.Response{data=response.PageData{items=[]apporder.OrderListItem}}
// @Failure      403 {object} response.Response "需要商家或管理员权限"
// @Router       /admin/orders [get]
func (h *AdminOrderHandler) ListOrders(c *gin.Context) {
	q, filter, ok := bindAdminQuery(c)
	if !ok {
		return
	}

	result, err := h.orders.ListOrders(c.Request.Context(), middleware.MustGetIdentity(c), apporder.ListQuery{
		Filter: filter,
		Page:   q.ToPage(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithPage(c, result.Items, result.Total, result.Page, result.Size)
}

// UpdateStatus 推进订单状态
// @Summary      推进订单状态
// @Description  商家、管理员、骑手按状态表推进订单;其他角色只能取消自己的待确认订单
// @Tags         后台订单
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path int                     true "订单ID"
// @Param        request body dto.UpdateStatusRequest true "目标状态"
// @Success      200 {object} response.Response{data=apporder.OrderResponse}
// @Failure      403 {object} response.Response "无权操作"
// @Failure      409 {object} response.Response "状态流转不合法"
// @Router       /admin/orders/{id}/status [patch]
func (h *AdminOrderHandler) UpdateStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.ErrValidation.WithMessage("参数错误: "+err.Error()))
		return
	}

	resp, err := h.orders.UpdateStatus(c.Request.Context(), middleware.MustGetIdentity(c), id, order.Status(req.Status), req.Note)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, "订单状态已更新", resp)
}

// UpdatePayment 修改支付状态
// @Summary      修改支付状态
// @Tags         后台订单
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path int                      true "订单ID"
// @Param        request body dto.UpdatePaymentRequest true "支付状态"
// @Success      200 {object} response.Response{data=apporder.OrderResponse}
// @Failure      403 {object} response.Response "需要商家或管理员权限"
// @Failure      404 {object} response.Response "订单不存在"
// @Router       /admin/orders/{id}/payment [patch]
func (h *AdminOrderHandler) UpdatePayment(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req dto.UpdatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.ErrValidation.WithMessage("参数错误: "+err.Error()))
		return
	}

	resp, err := h.orders.UpdatePaymentStatus(c.Request.Context(), middleware.MustGetIdentity(c), id, order.PaymentStatus(req.PaymentStatus))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, "支付状态已更新", resp)
}

// Statistics 订单统计
// @Summary      订单统计
// @Description  收入与客单价只统计已送达订单
// @Tags         后台订单
// @Produce      json
// @Security     BearerAuth
// @Param        status    query string false "订单状态"
// @Param        user_id   query int    false "用户ID"
// @Param        date_from query string false "开始日期"
// @Param        date_to   query string false "结束日期(包含当天)"
// @Success      200 {object} response.Response{data=apporder.StatisticsResponse}
// @Failure      403 {object} response.Response "需要商家或管理员权限"
// @Router       /admin/orders/statistics [get]
func (h *AdminOrderHandler) Statistics(c *gin.Context) {
	_, filter, ok := bindAdminQuery(c)
	if !ok {
		return
	}

	stats, err := h.orders.GetStatistics(c.Request.Context(), middleware.MustGetIdentity(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, stats)
}

func bindAdminQuery(c *gin.Context) (dto.AdminOrdersQuery, order.ListFilter, bool) {
	var q dto.AdminOrdersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, apperrors.ErrValidation.WithMessage("参数错误: "+err.Error()))
		return q, order.ListFilter{}, false
	}
	filter, err := q.ToFilter()
	if err != nil {
		response.Error(c, apperrors.ErrValidation.WithMessage(err.Error()))
		return q, order.ListFilter{}, false
	}
	return q, filter, true
}
