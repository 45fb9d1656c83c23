package pricing

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/xiebiao/foodorder/internal/domain/order"
	apperrors "github.com/xiebiao/foodorder/pkg/errors"
)

// ProductStatusAvailable 商品可售状态
const ProductStatusAvailable = "available"

// Product 商品服务返回的权威商品信息
type Product struct {
	ID     uint
	Name   string
	Price  decimal.Decimal
	Status string
}

// Available 是否可售
func (p Product) Available() bool {
	return p.Status == ProductStatusAvailable
}

// Line 用户请求的一行明细
// 请求中不包含商品单价,单价一律使用商品服务的当前价格
type Line struct {
	ProductID uint
	Quantity  int
	Modifiers []order.Modifier
	Note      string
}

// Policy 计价规则
type Policy struct {
	MinOrderAmount        decimal.Decimal // 最低起送金额
	DeliveryFee           decimal.Decimal // 配送费
	FreeDeliveryThreshold decimal.Decimal // 免配送费门槛
}

// DefaultPolicy 默认计价规则: 起送10元,配送费5元,满50免配送费
func DefaultPolicy() Policy {
	return Policy{
		MinOrderAmount:        decimal.NewFromInt(10),
		DeliveryFee:           decimal.NewFromInt(5),
		FreeDeliveryThreshold: decimal.NewFromInt(50),
	}
}

// Quote 计价结果
type Quote struct {
	Items       []order.OrderItem
	Subtotal    decimal.Decimal
	DeliveryFee decimal.Decimal
	Discount    decimal.Decimal
	Total       decimal.Decimal
}

// Engine 计价引擎(纯计算,无副作用)
// 教学要点:
// 1. 所有金额使用decimal,保留两位小数语义
// 2. 相同输入永远得到相同输出,历史订单可由明细快照复算
type Engine struct {
	policy Policy
}

// NewEngine 创建计价引擎
func NewEngine(policy Policy) *Engine {
	return &Engine{policy: policy}
}

// Policy 当前计价规则
func (e *Engine) Policy() Policy {
	return e.policy
}

// Quote 计算订单金额
func (e *Engine) Quote(products map[uint]Product, lines []Line, deliveryType order.DeliveryType) (*Quote, error) {
	if len(lines) == 0 {
		return nil, order.ErrInvalidOrderItems
	}

	q := &Quote{
		Items:    make([]order.OrderItem, 0, len(lines)),
		Subtotal: decimal.Zero,
		Discount: decimal.Zero,
	}

	for _, line := range lines {
		item, err := priceLine(products, line)
		if err != nil {
			return nil, err
		}
		q.Items = append(q.Items, item)
		q.Subtotal = q.Subtotal.Add(item.Subtotal)
	}

	if q.Subtotal.LessThan(e.policy.MinOrderAmount) {
		return nil, apperrors.ErrBelowMinimumOrder.WithMessagef(
			"订单金额 %s 未达到最低起送金额 %s",
			q.Subtotal.StringFixed(2), e.policy.MinOrderAmount.StringFixed(2))
	}

	q.DeliveryFee = e.deliveryFee(q.Subtotal, deliveryType)
	q.Total = q.Subtotal.Add(q.DeliveryFee).Sub(q.Discount)
	return q, nil
}

func (e *Engine) deliveryFee(subtotal decimal.Decimal, deliveryType order.DeliveryType) decimal.Decimal {
	if deliveryType == order.DeliveryTypePickup {
		return decimal.Zero
	}
	if subtotal.GreaterThanOrEqual(e.policy.FreeDeliveryThreshold) {
		return decimal.Zero
	}
	return e.policy.DeliveryFee
}

func priceLine(products map[uint]Product, line Line) (order.OrderItem, error) {
	if line.Quantity < 1 {
		return order.OrderItem{}, order.ErrInvalidQuantity
	}

	product, ok := products[line.ProductID]
	if !ok {
		return order.OrderItem{}, apperrors.ErrProductNotFound.WithMessagef("商品 %d 不存在", line.ProductID)
	}
	if !product.Available() {
		return order.OrderItem{}, apperrors.ErrProductUnavailable.WithMessagef("商品 %s 暂不可售", product.Name)
	}
	// 金额统一两位小数,否则各行小计之和与订单小计对不上
	if product.Price.IsNegative() || !product.Price.Equal(product.Price.Round(2)) {
		return order.OrderItem{}, apperrors.ErrUpstreamUnavailable.WithMessagef("商品服务返回的价格不合法: 商品 %d 价格 %s", product.ID, product.Price)
	}

	modifiersTotal := decimal.Zero
	for _, m := range line.Modifiers {
		if m.Quantity < 1 || m.Price.IsNegative() || !m.Price.Equal(m.Price.Round(2)) {
			return order.OrderItem{}, apperrors.ErrValidation.WithMessagef("加料 %s 的价格或数量不合法", m.Name)
		}
		modifiersTotal = modifiersTotal.Add(m.Price.Mul(decimal.NewFromInt(int64(m.Quantity))))
	}

	qty := decimal.NewFromInt(int64(line.Quantity))
	return order.OrderItem{
		ProductID:      product.ID,
		ProductName:    product.Name,
		ProductPrice:   product.Price,
		Quantity:       line.Quantity,
		Modifiers:      line.Modifiers,
		ModifiersTotal: modifiersTotal,
		Subtotal:       product.Price.Add(modifiersTotal).Mul(qty),
		Note:           line.Note,
	}, nil
}

// Resolver 从商品服务获取商品的实时价格与状态
// 返回的map只包含商品服务确认存在的商品,缺失的ID由计价引擎报告为商品不存在
type Resolver interface {
	Resolve(ctx context.Context, ids []uint) (map[uint]Product, error)
}
