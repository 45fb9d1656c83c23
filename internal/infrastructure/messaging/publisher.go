package messaging

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/foodorder/internal/domain/order"
	"github.com/xiebiao/foodorder/pkg/metrics"
)

// 订单事件路由键(topic exchange)
const (
	RoutingKeyOrderCreated   = "order.created"
	RoutingKeyStatusChanged  = "order.status_changed"
	RoutingKeyPaymentUpdated = "order.payment_updated"
)

// Sender 消息发送(由*mq.Publisher实现)
type Sender interface {
	Publish(ctx context.Context, routingKey string, message interface{}) error
}

// OrderCreatedEvent 订单创建事件
type OrderCreatedEvent struct {
	OrderID      uint      `json:"order_id"`
	OrderNumber  string    `json:"order_number"`
	UserID       uint      `json:"user_id"`
	DeliveryType string    `json:"delivery_type"`
	Total        string    `json:"total"`
	ItemsCount   int       `json:"items_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// StatusChangedEvent 状态变更事件
type StatusChangedEvent struct {
	OrderID     uint      `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	UserID      uint      `json:"user_id"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	ChangedBy   uint      `json:"changed_by"`
	Note        string    `json:"note,omitempty"`
	ChangedAt   time.Time `json:"changed_at"`
}

// PaymentUpdatedEvent 支付状态变更事件
type PaymentUpdatedEvent struct {
	OrderID       uint   `json:"order_id"`
	OrderNumber   string `json:"order_number"`
	UserID        uint   `json:"user_id"`
	PaymentStatus string `json:"payment_status"`
	Total         string `json:"total"`
}

// EventPublisher 订单事件发布者
// 数据库提交后调用,失败由调用方记录日志,不回滚订单
type EventPublisher struct {
	sender  Sender
	metrics *metrics.Metrics
	log     *zap.Logger
}

// NewEventPublisher 创建订单事件发布者
func NewEventPublisher(sender Sender, m *metrics.Metrics, log *zap.Logger) *EventPublisher {
	return &EventPublisher{sender: sender, metrics: m, log: log}
}

// OrderCreated 发布order.created
func (p *EventPublisher) OrderCreated(ctx context.Context, o *order.Order) error {
	return p.publish(ctx, RoutingKeyOrderCreated, OrderCreatedEvent{
		OrderID:      o.ID,
		OrderNumber:  o.Number,
		UserID:       o.UserID,
		DeliveryType: string(o.DeliveryType),
		Total:        o.Total.StringFixed(2),
		ItemsCount:   o.ItemsCount(),
		CreatedAt:    o.CreatedAt,
	})
}

// StatusChanged 发布order.status_changed
func (p *EventPublisher) StatusChanged(ctx context.Context, o *order.Order, change *order.StatusChange) error {
	return p.publish(ctx, RoutingKeyStatusChanged, StatusChangedEvent{
		OrderID:     o.ID,
		OrderNumber: o.Number,
		UserID:      o.UserID,
		From:        string(change.From),
		To:          string(change.To),
		ChangedBy:   change.ActorID,
		Note:        change.Note,
		ChangedAt:   change.At,
	})
}

// PaymentUpdated 发布order.payment_updated
func (p *EventPublisher) PaymentUpdated(ctx context.Context, o *order.Order) error {
	return p.publish(ctx, RoutingKeyPaymentUpdated, PaymentUpdatedEvent{
		OrderID:       o.ID,
		OrderNumber:   o.Number,
		UserID:        o.UserID,
		PaymentStatus: string(o.PaymentStatus),
		Total:         o.Total.StringFixed(2),
	})
}

func (p *EventPublisher) publish(ctx context.Context, routingKey string, event interface{}) error {
	err := p.sender.Publish(ctx, routingKey, event)
	result := "success"
	if err != nil {
		result = "error"
	}
	p.metrics.MessagesPublishedTotal.WithLabelValues(routingKey, result).Inc()
	return err
}

// NoopPublisher 未启用消息队列时使用
type NoopPublisher struct{}

func (NoopPublisher) OrderCreated(context.Context, *order.Order) error { return nil }

func (NoopPublisher) StatusChanged(context.Context, *order.Order, *order.StatusChange) error {
	return nil
}

func (NoopPublisher) PaymentUpdated(context.Context, *order.Order) error { return nil }
