package order

import (
	"context"

	"github.com/xiebiao/foodorder/internal/domain/identity"
	"github.com/xiebiao/foodorder/internal/domain/order"
	"github.com/xiebiao/foodorder/pkg/tracing"
)

// GetStatistics 订单统计(运营人员)
// 收入只统计已送达订单,没有已送达订单时客单价为0
func (s *Service) GetStatistics(ctx context.Context, actor identity.Identity, filter order.ListFilter) (resp *StatisticsResponse, err error) {
	ctx, span := s.startSpan(ctx, "GetStatistics", actor)
	defer func() { tracing.EndSpan(span, err) }()

	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, order.InvalidStatusError(*filter.Status)
	}

	totals, err := s.repo.Totals(ctx, filter)
	if err != nil {
		return nil, err
	}

	stats := order.Summarize(totals)
	return &StatisticsResponse{
		TotalOrders:       stats.TotalOrders,
		PendingOrders:     stats.PendingOrders,
		CompletedOrders:   stats.CompletedOrders,
		CancelledOrders:   stats.CancelledOrders,
		TotalRevenue:      money(stats.TotalRevenue),
		AverageOrderValue: money(stats.AverageOrderValue),
	}, nil
}
