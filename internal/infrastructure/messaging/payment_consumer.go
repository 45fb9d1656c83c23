package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	apporder "github.com/xiebiao/foodorder/internal/application/order"
	"github.com/xiebiao/foodorder/internal/domain/identity"
	"github.com/xiebiao/foodorder/internal/domain/order"
	apperrors "github.com/xiebiao/foodorder/pkg/errors"
	"github.com/xiebiao/foodorder/pkg/mq"
)

// 支付服务发布的事件
const (
	RoutingKeyPaymentSucceeded = "payment.succeeded"
	RoutingKeyPaymentFailed    = "payment.failed"
	RoutingKeyPaymentRefunded  = "payment.refunded"
)

// PaymentRoutingKeys 支付事件队列需要绑定的路由键
var PaymentRoutingKeys = []string{
	RoutingKeyPaymentSucceeded,
	RoutingKeyPaymentFailed,
	RoutingKeyPaymentRefunded,
}

var paymentStatusByKey = map[string]order.PaymentStatus{
	RoutingKeyPaymentSucceeded: order.PaymentStatusPaid,
	RoutingKeyPaymentFailed:    order.PaymentStatusFailed,
	RoutingKeyPaymentRefunded:  order.PaymentStatusRefunded,
}

// PaymentEvent 支付事件消息体
type PaymentEvent struct {
	OrderID   uint   `json:"order_id"`
	PaymentNo string `json:"payment_no"`
}

// PaymentUpdater 修改订单支付状态
type PaymentUpdater interface {
	UpdatePaymentStatus(ctx context.Context, actor identity.Identity, id uint, status order.PaymentStatus) (*apporder.OrderResponse, error)
}

// PaymentHandler 支付事件处理器
// 以系统身份调用订单服务,走与后台接口相同的校验
type PaymentHandler struct {
	orders PaymentUpdater
	log    *zap.Logger
}

// NewPaymentHandler 创建支付事件处理器
func NewPaymentHandler(orders PaymentUpdater, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{orders: orders, log: log}
}

// Handle 处理一条支付事件
// 消息格式错误或订单不存在返回mq.ErrDrop(重新投递也无法成功)
func (h *PaymentHandler) Handle(ctx context.Context, d mq.Delivery) error {
	status, ok := paymentStatusByKey[d.RoutingKey]
	if !ok {
		return fmt.Errorf("未知的支付事件 %s: %w", d.RoutingKey, mq.ErrDrop)
	}

	var evt PaymentEvent
	if err := json.Unmarshal(d.Body, &evt); err != nil {
		return fmt.Errorf("解析支付事件失败: %v: %w", err, mq.ErrDrop)
	}
	if evt.OrderID == 0 {
		return fmt.Errorf("支付事件缺少order_id: %w", mq.ErrDrop)
	}

	_, err := h.orders.UpdatePaymentStatus(ctx, identity.System(), evt.OrderID, status)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) || errors.Is(err, apperrors.ErrValidation) {
			return fmt.Errorf("订单 %d: %v: %w", evt.OrderID, err, mq.ErrDrop)
		}
		return err
	}

	h.log.Info("支付事件已处理",
		zap.String("message_id", d.MessageID),
		zap.String("payment_no", evt.PaymentNo),
		zap.Uint("order_id", evt.OrderID),
		zap.String("payment_status", string(status)),
	)
	return nil
}
