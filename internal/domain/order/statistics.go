package order

import "github.com/shopspring/decimal"

// StatusTotals 仓储按过滤条件聚合出的原始数据
type StatusTotals struct {
	Counts           map[Status]int64 // 各状态订单数
	DeliveredRevenue decimal.Decimal  // 已送达订单的总金额之和
}

// Statistics 订单统计
type Statistics struct {
	TotalOrders       int64
	PendingOrders     int64
	CompletedOrders   int64 // 已送达
	CancelledOrders   int64
	TotalRevenue      decimal.Decimal // 仅统计已送达订单
	AverageOrderValue decimal.Decimal
}

// Summarize 由原始聚合数据计算统计结果
// 没有已送达订单时平均值为0
func Summarize(t StatusTotals) Statistics {
	stats := Statistics{
		PendingOrders:   t.Counts[StatusPending],
		CompletedOrders: t.Counts[StatusDelivered],
		CancelledOrders: t.Counts[StatusCancelled],
		TotalRevenue:    t.DeliveredRevenue.Round(2),
	}
	for _, n := range t.Counts {
		stats.TotalOrders += n
	}
	if stats.CompletedOrders > 0 {
		stats.AverageOrderValue = t.DeliveredRevenue.
			Div(decimal.NewFromInt(stats.CompletedOrders)).
			Round(2)
	}
	return stats
}
