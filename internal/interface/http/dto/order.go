package dto

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apporder "github.com/xiebiao/foodorder/internal/application/order"
	"github.com/xiebiao/foodorder/internal/domain/order"
)

// CreateOrderRequest HTTP下单请求
// 金额不由客户端提交,商品单价以商品服务为准
type CreateOrderRequest struct {
	DeliveryType    string              `json:"delivery_type" binding:"omitempty,oneof=delivery pickup" example:"delivery"`
	DeliveryAddress string              `json:"delivery_address" binding:"max=500" example:"人民路1号3栋201"`
	DeliveryLat     *decimal.Decimal    `json:"delivery_lat" swaggertype:"string" example:"31.23041600"`
	DeliveryLng     *decimal.Decimal    `json:"delivery_lng" swaggertype:"string" example:"121.47370100"`
	ContactName     string              `json:"contact_name" binding:"required,max=100" example:"张三"`
	ContactPhone    string              `json:"contact_phone" binding:"required,max=20" example:"13800000000"`
	ContactEmail    string              `json:"contact_email" binding:"omitempty,email,max=100" example:"zhangsan@example.com"`
	PaymentMethod   string              `json:"payment_method" binding:"omitempty,oneof=cash card online" example:"cash"`
	CustomerNote    string              `json:"customer_note" binding:"max=500" example:"少放辣"`
	PromoCode       string              `json:"promo_code" binding:"max=50"`
	Items           []CreateOrderItemIn `json:"items" binding:"required,min=1,max=50,dive"`
}

// CreateOrderItemIn 下单明细
type CreateOrderItemIn struct {
	ProductID uint         `json:"product_id" binding:"required" example:"42"`
	Quantity  int          `json:"quantity" binding:"required,min=1,max=99" example:"2"`
	Modifiers []ModifierIn `json:"modifiers" binding:"max=20,dive"`
	Note      string       `json:"note" binding:"max=200"`
}

// ModifierIn 加料选项,quantity缺省为1
type ModifierIn struct {
	ID       uint            `json:"id" binding:"required" example:"3"`
	Name     string          `json:"name" binding:"required,max=100" example:"加蛋"`
	Price    decimal.Decimal `json:"price" swaggertype:"string" example:"2.50"`
	Quantity int             `json:"quantity" binding:"omitempty,min=1,max=10" example:"1"`
}

// ToCommand 转换为应用层请求
func (r CreateOrderRequest) ToCommand() apporder.CreateOrderRequest {
	items := make([]apporder.CreateOrderItem, len(r.Items))
	for i, item := range r.Items {
		mods := make([]order.Modifier, len(item.Modifiers))
		for j, m := range item.Modifiers {
			qty := m.Quantity
			if qty == 0 {
				qty = 1
			}
			mods[j] = order.Modifier{ModifierID: m.ID, Name: m.Name, Price: m.Price, Quantity: qty}
		}
		items[i] = apporder.CreateOrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Modifiers: mods,
			Note:      item.Note,
		}
	}

	return apporder.CreateOrderRequest{
		DeliveryType:    order.DeliveryType(r.DeliveryType),
		DeliveryAddress: r.DeliveryAddress,
		DeliveryLat:     r.DeliveryLat,
		DeliveryLng:     r.DeliveryLng,
		ContactName:     r.ContactName,
		ContactPhone:    r.ContactPhone,
		ContactEmail:    r.ContactEmail,
		PaymentMethod:   order.PaymentMethod(r.PaymentMethod),
		CustomerNote:    r.CustomerNote,
		PromoCode:       r.PromoCode,
		Items:           items,
	}
}

// UpdateOrderRequest 修改订单(只提交需要修改的字段)
type UpdateOrderRequest struct {
	DeliveryAddress *string `json:"delivery_address" binding:"omitempty,max=500"`
	ContactName     *string `json:"contact_name" binding:"omitempty,max=100"`
	ContactPhone    *string `json:"contact_phone" binding:"omitempty,max=20"`
	CustomerNote    *string `json:"customer_note" binding:"omitempty,max=500"`
}

// ToPatch 转换为领域补丁
func (r UpdateOrderRequest) ToPatch() order.Patch {
	return order.Patch{
		DeliveryAddress: r.DeliveryAddress,
		ContactName:     r.ContactName,
		ContactPhone:    r.ContactPhone,
		CustomerNote:    r.CustomerNote,
	}
}

// UpdateStatusRequest 推进订单状态
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending confirmed preparing ready delivering delivered cancelled" example:"confirmed"`
	Note   string `json:"note" binding:"max=500" example:"商家已接单"`
}

// UpdatePaymentRequest 修改支付状态
type UpdatePaymentRequest struct {
	PaymentStatus string `json:"payment_status" binding:"required,oneof=pending paid failed refunded" example:"paid"`
}

// MyOrdersQuery 我的订单查询参数
type MyOrdersQuery struct {
	Page   int    `form:"page" binding:"omitempty,min=1"`
	Size   int    `form:"size" binding:"omitempty,min=1,max=100"`
	Status string `form:"status" binding:"omitempty,oneof=pending confirmed preparing ready delivering delivered cancelled"`
}

// ToPage 分页参数
func (q MyOrdersQuery) ToPage() order.Page {
	return order.Page{Page: q.Page, Size: q.Size}
}

// StatusFilter 状态过滤,空字符串表示不过滤
func (q MyOrdersQuery) StatusFilter() *order.Status {
	return statusPtr(q.Status)
}

// AdminOrdersQuery 后台订单查询/统计参数
// 日期支持 2006-01-02 与 RFC3339 两种格式,只有日期的date_to包含当天
type AdminOrdersQuery struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	Size     int    `form:"size" binding:"omitempty,min=1,max=100"`
	Status   string `form:"status" binding:"omitempty,oneof=pending confirmed preparing ready delivering delivered cancelled"`
	UserID   uint   `form:"user_id"`
	DateFrom string `form:"date_from" example:"2024-01-01"`
	DateTo   string `form:"date_to" example:"2024-01-31"`
}

// ToFilter 转换为领域过滤条件
func (q AdminOrdersQuery) ToFilter() (order.ListFilter, error) {
	f := order.ListFilter{Status: statusPtr(q.Status)}
	if q.UserID != 0 {
		uid := q.UserID
		f.UserID = &uid
	}

	if q.DateFrom != "" {
		from, _, err := parseDate(q.DateFrom)
		if err != nil {
			return f, fmt.Errorf("date_from: %w", err)
		}
		f.DateFrom = &from
	}
	if q.DateTo != "" {
		to, dateOnly, err := parseDate(q.DateTo)
		if err != nil {
			return f, fmt.Errorf("date_to: %w", err)
		}
		if dateOnly {
			to = to.Add(24*time.Hour - time.Nanosecond)
		}
		f.DateTo = &to
	}

	if f.DateFrom != nil && f.DateTo != nil && f.DateTo.Before(*f.DateFrom) {
		return f, fmt.Errorf("date_to 不能早于 date_from")
	}
	return f, nil
}

// ToPage 分页参数
func (q AdminOrdersQuery) ToPage() order.Page {
	return order.Page{Page: q.Page, Size: q.Size}
}

func statusPtr(s string) *order.Status {
	if s == "" {
		return nil
	}
	status := order.Status(s)
	return &status
}

func parseDate(s string) (t time.Time, dateOnly bool, err error) {
	s = strings.TrimSpace(s)
	if t, err = time.Parse(time.DateOnly, s); err == nil {
		return t.UTC(), true, nil
	}
	if t, err = time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), false, nil
	}
	return time.Time{}, false, fmt.Errorf("无法解析日期 %q", s)
}
