package order

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/xiebiao/foodorder/internal/domain/identity"
	"github.com/xiebiao/foodorder/internal/domain/order"
	"github.com/xiebiao/foodorder/pkg/tracing"
)

// GetOrder 按ID查询订单详情(校验归属)
func (s *Service) GetOrder(ctx context.Context, actor identity.Identity, id uint) (resp *OrderResponse, err error) {
	ctx, span := s.startSpan(ctx, "GetOrder", actor, attribute.Int64("order.id", int64(id)))
	defer func() { tracing.EndSpan(span, err) }()

	o, err := s.loadForActor(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return toOrderResponse(o), nil
}

// GetOrderByNumber 按订单号查询订单详情(校验归属)
func (s *Service) GetOrderByNumber(ctx context.Context, actor identity.Identity, number string) (resp *OrderResponse, err error) {
	ctx, span := s.startSpan(ctx, "GetOrderByNumber", actor, attribute.String("order.number", number))
	defer func() { tracing.EndSpan(span, err) }()

	o, err := s.repo.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if !actor.Role.IsStaff() && !o.IsOwnedBy(actor.UserID) {
		return nil, order.ErrNotOwner
	}
	return toOrderResponse(o), nil
}

// ListMyOrders 当前用户的订单列表
func (s *Service) ListMyOrders(ctx context.Context, actor identity.Identity, status *order.Status, page order.Page) (result *ListResult, err error) {
	ctx, span := s.startSpan(ctx, "ListMyOrders", actor)
	defer func() { tracing.EndSpan(span, err) }()

	userID := actor.UserID
	filter := order.ListFilter{UserID: &userID, Status: status}
	return s.list(ctx, filter, page)
}

// ListOrders 全部订单列表(运营人员)
func (s *Service) ListOrders(ctx context.Context, actor identity.Identity, q ListQuery) (result *ListResult, err error) {
	ctx, span := s.startSpan(ctx, "ListOrders", actor)
	defer func() { tracing.EndSpan(span, err) }()

	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	return s.list(ctx, q.Filter, q.Page)
}

// GetHistory 订单状态变更记录(按时间正序)
func (s *Service) GetHistory(ctx context.Context, actor identity.Identity, id uint) (history []HistoryResponse, err error) {
	ctx, span := s.startSpan(ctx, "GetHistory", actor, attribute.Int64("order.id", int64(id)))
	defer func() { tracing.EndSpan(span, err) }()

	o, err := s.loadForActor(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return toHistory(o.History), nil
}

func (s *Service) list(ctx context.Context, filter order.ListFilter, page order.Page) (*ListResult, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, order.InvalidStatusError(*filter.Status)
	}
	page = page.Normalize()

	orders, total, err := s.repo.List(ctx, filter, page)
	if err != nil {
		return nil, err
	}

	items := make([]OrderListItem, len(orders))
	for i, o := range orders {
		items[i] = toListItem(o)
	}
	return &ListResult{Items: items, Total: total, Page: page.Page, Size: page.Size}, nil
}
