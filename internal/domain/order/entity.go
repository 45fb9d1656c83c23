package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status 订单状态
// 教学要点:
// 1. 使用string存储(与外部系统、消息事件直接对齐,可读性好)
// 2. 合法流转见lifecycle.go中的状态表
type Status string

const (
	StatusPending    Status = "pending"    // 待确认
	StatusConfirmed  Status = "confirmed"  // 已确认
	StatusPreparing  Status = "preparing"  // 制作中
	StatusReady      Status = "ready"      // 待取餐
	StatusDelivering Status = "delivering" // 配送中
	StatusDelivered  Status = "delivered"  // 已送达
	StatusCancelled  Status = "cancelled"  // 已取消
)

// Valid 是否为已知状态
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal 终态(没有后续状态)
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

func (s Status) String() string {
	return string(s)
}

// DeliveryType 配送方式
type DeliveryType string

const (
	DeliveryTypeDelivery DeliveryType = "delivery" // 外卖配送
	DeliveryTypePickup   DeliveryType = "pickup"   // 到店自取
)

// Valid 是否为已知配送方式
func (d DeliveryType) Valid() bool {
	return d == DeliveryTypeDelivery || d == DeliveryTypePickup
}

// PaymentMethod 支付方式
type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "cash"
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodOnline PaymentMethod = "online"
)

// Valid 是否为已知支付方式
func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodOnline:
		return true
	}
	return false
}

// PaymentStatus 支付状态(与订单状态相互独立)
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Valid 是否为已知支付状态
func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// Order 订单实体(聚合根)
// 教学要点:
// 1. Order是聚合根,Items与History是子实体,只能随订单一起创建
// 2. 金额字段使用decimal,禁止浮点运算
// 3. Total由Subtotal+DeliveryFee-Discount推导,创建后不单独修改
type Order struct {
	ID     uint
	Number string // 订单号(业务主键,全局唯一)
	UserID uint   // 下单用户
	Status Status

	DeliveryType    DeliveryType
	DeliveryAddress string
	DeliveryLat     *decimal.Decimal
	DeliveryLng     *decimal.Decimal

	ContactName  string
	ContactPhone string
	ContactEmail string

	Subtotal    decimal.Decimal
	DeliveryFee decimal.Decimal
	Discount    decimal.Decimal
	Total       decimal.Decimal

	PaymentMethod PaymentMethod
	PaymentStatus PaymentStatus

	CustomerNote string
	InternalNote string

	EstimatedDelivery *time.Time
	DeliveredAt       *time.Time

	Items   []OrderItem
	History []StatusHistory

	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrderItem 订单明细(下单时的商品快照)
// 商品名称与单价在下单时固化,之后商品改价不影响历史订单
type OrderItem struct {
	ID             uint
	OrderID        uint
	ProductID      uint
	ProductName    string
	ProductPrice   decimal.Decimal
	Quantity       int
	Modifiers      []Modifier
	ModifiersTotal decimal.Decimal
	Subtotal       decimal.Decimal
	Note           string
}

// Modifier 加料/规格选项
type Modifier struct {
	ModifierID uint            `json:"id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity"`
}

// StatusHistory 状态变更记录(只追加,不修改)
type StatusHistory struct {
	ID        uint
	OrderID   uint
	Status    Status
	Note      string
	ChangedBy uint // 操作人ID,系统任务为0
	CreatedAt time.Time
}

// IsOwnedBy 检查订单是否属于指定用户
func (o *Order) IsOwnedBy(userID uint) bool {
	return o.UserID == userID
}

// ItemsCount 明细行数
func (o *Order) ItemsCount() int {
	return len(o.Items)
}

// Patch 订单可修改字段
// 只有非nil字段会被更新,替代"按请求中出现的字段更新"的动态写法
type Patch struct {
	DeliveryAddress *string
	ContactName     *string
	ContactPhone    *string
	CustomerNote    *string
}

// IsEmpty 没有任何待更新字段
func (p Patch) IsEmpty() bool {
	return p.DeliveryAddress == nil && p.ContactName == nil && p.ContactPhone == nil && p.CustomerNote == nil
}

// ApplyTo 将补丁应用到内存中的订单
func (p Patch) ApplyTo(o *Order) {
	if p.DeliveryAddress != nil {
		o.DeliveryAddress = *p.DeliveryAddress
	}
	if p.ContactName != nil {
		o.ContactName = *p.ContactName
	}
	if p.ContactPhone != nil {
		o.ContactPhone = *p.ContactPhone
	}
	if p.CustomerNote != nil {
		o.CustomerNote = *p.CustomerNote
	}
}
