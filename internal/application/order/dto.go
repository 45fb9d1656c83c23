package order

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xiebiao/foodorder/internal/domain/order"
)

// CreateOrderRequest 下单请求
// 请求中不包含商品单价,单价以商品服务的实时价格为准
type CreateOrderRequest struct {
	DeliveryType    order.DeliveryType
	DeliveryAddress string
	DeliveryLat     *decimal.Decimal
	DeliveryLng     *decimal.Decimal
	ContactName     string
	ContactPhone    string
	ContactEmail    string
	PaymentMethod   order.PaymentMethod
	CustomerNote    string
	PromoCode       string // 暂不支持优惠码,接收后忽略
	Items           []CreateOrderItem
}

// CreateOrderItem 下单明细
type CreateOrderItem struct {
	ProductID uint
	Quantity  int
	Modifiers []order.Modifier
	Note      string
}

// ListQuery 后台订单查询条件
type ListQuery struct {
	Filter order.ListFilter
	Page   order.Page
}

// OrderResponse 订单详情
// 金额统一格式化为两位小数字符串,避免前端浮点误差
type OrderResponse struct {
	ID                uint                `json:"id"`
	OrderNumber       string              `json:"order_number"`
	UserID            uint                `json:"user_id"`
	Status            string              `json:"status"`
	DeliveryType      string              `json:"delivery_type"`
	DeliveryAddress   string              `json:"delivery_address,omitempty"`
	DeliveryLat       *string             `json:"delivery_lat,omitempty"`
	DeliveryLng       *string             `json:"delivery_lng,omitempty"`
	ContactName       string              `json:"contact_name"`
	ContactPhone      string              `json:"contact_phone"`
	ContactEmail      string              `json:"contact_email,omitempty"`
	Subtotal          string              `json:"subtotal"`
	DeliveryFee       string              `json:"delivery_fee"`
	Discount          string              `json:"discount"`
	Total             string              `json:"total"`
	PaymentMethod     string              `json:"payment_method"`
	PaymentStatus     string              `json:"payment_status"`
	CustomerNote      string              `json:"customer_note,omitempty"`
	InternalNote      string              `json:"internal_note,omitempty"`
	EstimatedDelivery *time.Time          `json:"estimated_delivery,omitempty"`
	DeliveredAt       *time.Time          `json:"delivered_at,omitempty"`
	Items             []OrderItemResponse `json:"items"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

// OrderItemResponse 订单明细
type OrderItemResponse struct {
	ID             uint               `json:"id"`
	ProductID      uint               `json:"product_id"`
	ProductName    string             `json:"product_name"`
	ProductPrice   string             `json:"product_price"`
	Quantity       int                `json:"quantity"`
	Modifiers      []ModifierResponse `json:"modifiers"`
	ModifiersTotal string             `json:"modifiers_total"`
	Subtotal       string             `json:"subtotal"`
	Note           string             `json:"note,omitempty"`
}

// ModifierResponse 加料选项
type ModifierResponse struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Price    string `json:"price"`
	Quantity int    `json:"quantity"`
}

// OrderListItem 订单列表项
type OrderListItem struct {
	ID            uint      `json:"id"`
	OrderNumber   string    `json:"order_number"`
	Status        string    `json:"status"`
	DeliveryType  string    `json:"delivery_type"`
	Total         string    `json:"total"`
	PaymentStatus string    `json:"payment_status"`
	ItemsCount    int       `json:"items_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// ListResult 分页结果
type ListResult struct {
	Items []OrderListItem
	Total int64
	Page  int
	Size  int
}

// HistoryResponse 状态变更记录
type HistoryResponse struct {
	ID        uint      `json:"id"`
	Status    string    `json:"status"`
	Note      string    `json:"note,omitempty"`
	ChangedBy uint      `json:"changed_by"`
	CreatedAt time.Time `json:"created_at"`
}

// StatisticsResponse 订单统计
type StatisticsResponse struct {
	TotalOrders       int64  `json:"total_orders"`
	PendingOrders     int64  `json:"pending_orders"`
	CompletedOrders   int64  `json:"completed_orders"`
	CancelledOrders   int64  `json:"cancelled_orders"`
	TotalRevenue      string `json:"total_revenue"`
	AverageOrderValue string `json:"average_order_value"`
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func coordinate(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.StringFixed(8)
	return &s
}

func toOrderResponse(o *order.Order) *OrderResponse {
	items := make([]OrderItemResponse, len(o.Items))
	for i, item := range o.Items {
		mods := make([]ModifierResponse, len(item.Modifiers))
		for j, m := range item.Modifiers {
			mods[j] = ModifierResponse{
				ID:       m.ModifierID,
				Name:     m.Name,
				Price:    money(m.Price),
				Quantity: m.Quantity,
			}
		}
		items[i] = OrderItemResponse{
			ID:             item.ID,
			ProductID:      item.ProductID,
			ProductName:    item.ProductName,
			ProductPrice:   money(item.ProductPrice),
			Quantity:       item.Quantity,
			Modifiers:      mods,
			ModifiersTotal: money(item.ModifiersTotal),
			Subtotal:       money(item.Subtotal),
			Note:           item.Note,
		}
	}

	return &OrderResponse{
		ID:                o.ID,
		OrderNumber:       o.Number,
		UserID:            o.UserID,
		Status:            string(o.Status),
		DeliveryType:      string(o.DeliveryType),
		DeliveryAddress:   o.DeliveryAddress,
		DeliveryLat:       coordinate(o.DeliveryLat),
		DeliveryLng:       coordinate(o.DeliveryLng),
		ContactName:       o.ContactName,
		ContactPhone:      o.ContactPhone,
		ContactEmail:      o.ContactEmail,
		Subtotal:          money(o.Subtotal),
		DeliveryFee:       money(o.DeliveryFee),
		Discount:          money(o.Discount),
		Total:             money(o.Total),
		PaymentMethod:     string(o.PaymentMethod),
		PaymentStatus:     string(o.PaymentStatus),
		CustomerNote:      o.CustomerNote,
		InternalNote:      o.InternalNote,
		EstimatedDelivery: o.EstimatedDelivery,
		DeliveredAt:       o.DeliveredAt,
		Items:             items,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}
}

func toListItem(o *order.Order) OrderListItem {
	return OrderListItem{
		ID:            o.ID,
		OrderNumber:   o.Number,
		Status:        string(o.Status),
		DeliveryType:  string(o.DeliveryType),
		Total:         money(o.Total),
		PaymentStatus: string(o.PaymentStatus),
		ItemsCount:    o.ItemsCount(),
		CreatedAt:     o.CreatedAt,
	}
}

func toHistory(entries []order.StatusHistory) []HistoryResponse {
	out := make([]HistoryResponse, len(entries))
	for i, h := range entries {
		out[i] = HistoryResponse{
			ID:        h.ID,
			Status:    string(h.Status),
			Note:      h.Note,
			ChangedBy: h.ChangedBy,
			CreatedAt: h.CreatedAt,
		}
	}
	return out
}
