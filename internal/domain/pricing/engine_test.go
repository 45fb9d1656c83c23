package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/foodorder/internal/domain/order"
	apperrors "github.com/xiebiao/foodorder/pkg/errors"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func catalog() map[uint]Product {
	return map[uint]Product{
		42: {ID: 42, Name: "宫保鸡丁", Price: dec("10.00"), Status: ProductStatusAvailable},
		43: {ID: 43, Name: "麻婆豆腐", Price: dec("8.50"), Status: ProductStatusAvailable},
		44: {ID: 44, Name: "水煮鱼", Price: dec("38.00"), Status: "out_of_stock"},
	}
}

func TestQuote_BelowFreeDeliveryThreshold(t *testing.T) {
	e := NewEngine(DefaultPolicy())

	q, err := e.Quote(catalog(), []Line{{ProductID: 42, Quantity: 2}}, order.DeliveryTypeDelivery)
	require.NoError(t, err)

	assert.Equal(t, "20.00", q.Subtotal.StringFixed(2))
	assert.Equal(t, "5.00", q.DeliveryFee.StringFixed(2))
	assert.Equal(t, "0.00", q.Discount.StringFixed(2))
	assert.Equal(t, "25.00", q.Total.StringFixed(2))
	require.Len(t, q.Items, 1)
	assert.Equal(t, "宫保鸡丁", q.Items[0].ProductName)
}

func TestQuote_FreeDelivery(t *testing.T) {
	e := NewEngine(DefaultPolicy())

	q, err := e.Quote(catalog(), []Line{{ProductID: 42, Quantity: 6}}, order.DeliveryTypeDelivery)
	require.NoError(t, err)

	assert.Equal(t, "60.00", q.Subtotal.StringFixed(2))
	assert.True(t, q.DeliveryFee.IsZero())
	assert.Equal(t, "60.00", q.Total.StringFixed(2))
}

func TestQuote_ThresholdIsInclusive(t *testing.T) {
	e := NewEngine(DefaultPolicy())

	q, err := e.Quote(catalog(), []Line{{ProductID: 42, Quantity: 5}}, order.DeliveryTypeDelivery)
	require.NoError(t, err)
	assert.True(t, q.DeliveryFee.IsZero())
}

func TestQuote_Pickup(t *testing.T) {
	e := NewEngine(DefaultPolicy())

	q, err := e.Quote(catalog(), []Line{{ProductID: 42, Quantity: 2}}, order.DeliveryTypePickup)
	require.NoError(t, err)
	assert.True(t, q.DeliveryFee.IsZero())
	assert.Equal(t, "20.00", q.Total.StringFixed(2))
}

func TestQuote_Modifiers(t *testing.T) {
	e := NewEngine(DefaultPolicy())

	lines := []Line{
		{
			ProductID: 43,
			Quantity:  3,
			Modifiers: []order.Modifier{
				{ModifierID: 1, Name: "加辣", Price: dec("0.50"), Quantity: 2},
				{ModifierID: 2, Name: "加饭", Price: dec("2.00"), Quantity: 1},
			},
		},
		{ProductID: 42, Quantity: 1},
	}

	q, err := e.Quote(catalog(), lines, order.DeliveryTypeDelivery)
	require.NoError(t, err)

	// (8.50 + 0.50*2 + 2.00*1) * 3 = 34.50
	assert.Equal(t, "3.00", q.Items[0].ModifiersTotal.StringFixed(2))
	assert.Equal(t, "34.50", q.Items[0].Subtotal.StringFixed(2))
	assert.Equal(t, "44.50", q.Subtotal.StringFixed(2))
	assert.Equal(t, "5.00", q.DeliveryFee.StringFixed(2))
	assert.Equal(t, "49.50", q.Total.StringFixed(2))

	// 小计等于各行小计之和
	sum := decimal.Zero
	for _, item := range q.Items {
		sum = sum.Add(item.Subtotal)
	}
	assert.True(t, sum.Equal(q.Subtotal))
	assert.True(t, q.Total.Equal(q.Subtotal.Add(q.DeliveryFee).Sub(q.Discount)))
}

func TestQuote_Errors(t *testing.T) {
	e := NewEngine(DefaultPolicy())

	tests := []struct {
		name  string
		lines []Line
		want  *apperrors.AppError
	}{
		{"商品不存在", []Line{{ProductID: 99, Quantity: 1}}, apperrors.ErrProductNotFound},
		{"商品不可售", []Line{{ProductID: 44, Quantity: 1}}, apperrors.ErrProductUnavailable},
		{"低于起送金额", []Line{{ProductID: 43, Quantity: 1}}, apperrors.ErrBelowMinimumOrder},
		{"数量为0", []Line{{ProductID: 42, Quantity: 0}}, apperrors.ErrValidation},
		{"空明细", nil, apperrors.ErrValidation},
		{
			"加料价格超过两位小数",
			[]Line{{ProductID: 42, Quantity: 2, Modifiers: []order.Modifier{{Name: "加蛋", Price: dec("1.005"), Quantity: 1}}}},
			apperrors.ErrValidation,
		},
		{
			"加料数量为0",
			[]Line{{ProductID: 42, Quantity: 2, Modifiers: []order.Modifier{{Name: "加蛋", Price: dec("1.00"), Quantity: 0}}}},
			apperrors.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := e.Quote(catalog(), tt.lines, order.DeliveryTypeDelivery)
			assert.Nil(t, q)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestQuote_RejectsSubCentCatalogPrice(t *testing.T) {
	e := NewEngine(DefaultPolicy())
	products := map[uint]Product{
		42: {ID: 42, Name: "宫保鸡丁", Price: dec("10.005"), Status: ProductStatusAvailable},
		43: {ID: 43, Name: "麻婆豆腐", Price: dec("-1.00"), Status: ProductStatusAvailable},
	}
	lines := []Line{{ProductID: 42, Quantity: 1}, {ProductID: 42, Quantity: 1}}

	q, err := e.Quote(products, lines, order.DeliveryTypePickup)
	assert.Nil(t, q)
	assert.ErrorIs(t, err, apperrors.ErrUpstreamUnavailable)

	_, err = e.Quote(products, []Line{{ProductID: 43, Quantity: 20}}, order.DeliveryTypePickup)
	assert.ErrorIs(t, err, apperrors.ErrUpstreamUnavailable)
}

func TestQuote_LineSubtotalsSumToOrderSubtotal(t *testing.T) {
	e := NewEngine(DefaultPolicy())
	lines := []Line{
		{ProductID: 42, Quantity: 3, Modifiers: []order.Modifier{{Name: "加蛋", Price: dec("1.25"), Quantity: 2}}},
		{ProductID: 43, Quantity: 1},
	}

	q, err := e.Quote(catalog(), lines, order.DeliveryTypeDelivery)
	require.NoError(t, err)

	sum := decimal.Zero
	for _, item := range q.Items {
		assert.True(t, item.Subtotal.Equal(item.Subtotal.Round(2)), "小计必须为两位小数: %s", item.Subtotal)
		sum = sum.Add(item.Subtotal)
	}
	assert.True(t, sum.Equal(q.Subtotal), "明细小计之和 %s != 订单小计 %s", sum, q.Subtotal)
	assert.True(t, q.Total.Equal(q.Subtotal.Add(q.DeliveryFee).Sub(q.Discount)))
}

func TestQuote_Deterministic(t *testing.T) {
	e := NewEngine(DefaultPolicy())
	lines := []Line{{ProductID: 42, Quantity: 2}, {ProductID: 43, Quantity: 1}}

	first, err := e.Quote(catalog(), lines, order.DeliveryTypeDelivery)
	require.NoError(t, err)
	second, err := e.Quote(catalog(), lines, order.DeliveryTypeDelivery)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
