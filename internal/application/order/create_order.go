package order

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/xiebiao/foodorder/internal/domain/identity"
	"github.com/xiebiao/foodorder/internal/domain/order"
	"github.com/xiebiao/foodorder/internal/domain/pricing"
	apperrors "github.com/xiebiao/foodorder/pkg/errors"
	"github.com/xiebiao/foodorder/pkg/tracing"
)

// CreateOrder 创建订单
// 流程:
//  1. 校验请求(配送订单必须有地址、联系人)
//  2. 向商品服务查询实时价格与状态(超时或失败直接返回,不落库)
//  3. 计价引擎计算小计、配送费、优惠、总额
//  4. 生成订单号并在一个事务中写入订单、明细、初始状态记录
//     订单号冲突时重新生成,最多尝试NumberRetryAttempts次
//  5. 提交后发布order.created事件
func (s *Service) CreateOrder(ctx context.Context, actor identity.Identity, req CreateOrderRequest) (resp *OrderResponse, err error) {
	ctx, span := s.startSpan(ctx, "CreateOrder", actor, attribute.Int("order.items", len(req.Items)))
	defer func() { tracing.EndSpan(span, err) }()

	start := time.Now()
	defer func() {
		if err != nil {
			s.metrics.OrdersFailedTotal.WithLabelValues(apperrors.GetAppError(err).Code).Inc()
		}
	}()

	req = normalizeCreate(req)
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	// 1. 查询商品(唯一的跨服务调用)
	ids := make([]uint, len(req.Items))
	lines := make([]pricing.Line, len(req.Items))
	for i, item := range req.Items {
		ids[i] = item.ProductID
		lines[i] = pricing.Line{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Modifiers: item.Modifiers,
			Note:      item.Note,
		}
	}

	products, err := s.resolver.Resolve(ctx, ids)
	if err != nil {
		return nil, err
	}

	// 2. 计价(纯计算)
	quote, err := s.engine.Quote(products, lines, req.DeliveryType)
	if err != nil {
		return nil, err
	}

	// 3. 组装订单
	now := s.now()
	eta := now.Add(s.cfg.EstimatedDelivery)
	o := &order.Order{
		UserID:            actor.UserID,
		Status:            order.StatusPending,
		DeliveryType:      req.DeliveryType,
		DeliveryAddress:   req.DeliveryAddress,
		DeliveryLat:       req.DeliveryLat,
		DeliveryLng:       req.DeliveryLng,
		ContactName:       req.ContactName,
		ContactPhone:      req.ContactPhone,
		ContactEmail:      req.ContactEmail,
		Subtotal:          quote.Subtotal,
		DeliveryFee:       quote.DeliveryFee,
		Discount:          quote.Discount,
		Total:             quote.Total,
		PaymentMethod:     req.PaymentMethod,
		PaymentStatus:     order.PaymentStatusPending,
		CustomerNote:      req.CustomerNote,
		EstimatedDelivery: &eta,
		Items:             quote.Items,
		History: []order.StatusHistory{
			{Status: order.StatusPending, ChangedBy: actor.UserID, CreatedAt: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	// 4. 持久化,订单号冲突时重试
	if err := s.persistWithRetry(ctx, o); err != nil {
		return nil, err
	}

	s.metrics.OrdersCreatedTotal.WithLabelValues(string(o.DeliveryType)).Inc()
	s.metrics.OrderCreationDuration.Observe(time.Since(start).Seconds())
	span.SetAttributes(attribute.String("order.number", o.Number), attribute.String("order.total", money(o.Total)))

	log := s.logger(ctx)
	log.Info("订单创建成功",
		zap.Uint("order_id", o.ID),
		zap.String("order_number", o.Number),
		zap.Uint("user_id", o.UserID),
		zap.String("total", money(o.Total)),
	)

	// 5. 发布事件(尽力而为)
	if err := s.events.OrderCreated(ctx, o); err != nil {
		log.Warn("发布订单创建事件失败", zap.String("order_number", o.Number), zap.Error(err))
	}

	return toOrderResponse(o), nil
}

// persistWithRetry 生成订单号并写入,冲突时重新生成
// 每次尝试都是独立的原子写入,失败的尝试不会留下任何数据
func (s *Service) persistWithRetry(ctx context.Context, o *order.Order) error {
	var err error
	for attempt := 1; attempt <= s.cfg.NumberRetryAttempts; attempt++ {
		o.Number = s.numbers.Next()
		err = s.repo.Create(ctx, o)
		if err == nil {
			return nil
		}
		if !errors.Is(err, apperrors.ErrDuplicateOrderNumber) {
			return err
		}

		s.metrics.OrderNumberRetries.Inc()
		s.logger(ctx).Warn("订单号冲突,重新生成",
			zap.String("order_number", o.Number),
			zap.Int("attempt", attempt),
		)
	}
	return err
}

func normalizeCreate(req CreateOrderRequest) CreateOrderRequest {
	if req.DeliveryType == "" {
		req.DeliveryType = order.DeliveryTypeDelivery
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = order.PaymentMethodCash
	}
	req.DeliveryAddress = strings.TrimSpace(req.DeliveryAddress)
	req.ContactName = strings.TrimSpace(req.ContactName)
	req.ContactPhone = strings.TrimSpace(req.ContactPhone)
	req.ContactEmail = strings.TrimSpace(req.ContactEmail)
	return req
}

// validateCreate 请求级校验,金额相关规则由计价引擎负责
func validateCreate(req CreateOrderRequest) error {
	if len(req.Items) == 0 {
		return order.ErrInvalidOrderItems
	}
	for _, item := range req.Items {
		if item.Quantity < 1 {
			return order.ErrInvalidQuantity
		}
	}
	if !req.DeliveryType.Valid() {
		return apperrors.ErrValidation.WithMessagef("不支持的配送方式: %s", req.DeliveryType)
	}
	if req.DeliveryType == order.DeliveryTypeDelivery && req.DeliveryAddress == "" {
		return order.ErrAddressRequired
	}
	if !req.PaymentMethod.Valid() {
		return apperrors.ErrValidation.WithMessagef("不支持的支付方式: %s", req.PaymentMethod)
	}
	if req.ContactName == "" || req.ContactPhone == "" {
		return apperrors.ErrValidation.WithMessage("联系人和联系电话不能为空")
	}
	return nil
}
