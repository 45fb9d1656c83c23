package order

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/xiebiao/foodorder/internal/domain/identity"
	"github.com/xiebiao/foodorder/internal/domain/order"
	apperrors "github.com/xiebiao/foodorder/pkg/errors"
	"github.com/xiebiao/foodorder/pkg/tracing"
)

// CancelOrder 取消订单
// 顾客只能取消自己的待确认订单;运营人员可以取消任意未完结订单
func (s *Service) CancelOrder(ctx context.Context, actor identity.Identity, id uint, reason string) (resp *OrderResponse, err error) {
	ctx, span := s.startSpan(ctx, "CancelOrder", actor, attribute.Int64("order.id", int64(id)))
	defer func() { tracing.EndSpan(span, err) }()

	o, err := s.transition(ctx, actor, actor.Role.IsStaff(), id, order.StatusCancelled, reason)
	if err != nil {
		return nil, err
	}
	return toOrderResponse(o), nil
}

// UpdateStatus 推进订单状态
// 运营人员与骑手为特权操作人;其他人走与取消相同的限制
func (s *Service) UpdateStatus(ctx context.Context, actor identity.Identity, id uint, target order.Status, note string) (resp *OrderResponse, err error) {
	ctx, span := s.startSpan(ctx, "UpdateStatus", actor,
		attribute.Int64("order.id", int64(id)),
		attribute.String("order.target_status", string(target)),
	)
	defer func() { tracing.EndSpan(span, err) }()

	o, err := s.transition(ctx, actor, actor.Role.CanDispatch(), id, target, note)
	if err != nil {
		return nil, err
	}
	return toOrderResponse(o), nil
}

// UpdatePaymentStatus 修改支付状态(运营人员或支付回调)
// 支付状态与订单状态相互独立,不经过状态表
func (s *Service) UpdatePaymentStatus(ctx context.Context, actor identity.Identity, id uint, status order.PaymentStatus) (resp *OrderResponse, err error) {
	ctx, span := s.startSpan(ctx, "UpdatePaymentStatus", actor,
		attribute.Int64("order.id", int64(id)),
		attribute.String("order.payment_status", string(status)),
	)
	defer func() { tracing.EndSpan(span, err) }()

	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, apperrors.ErrValidation.WithMessagef("未知的支付状态: %s", status)
	}

	if err := s.repo.UpdatePaymentStatus(ctx, id, status); err != nil {
		return nil, err
	}
	o, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	log := s.logger(ctx)
	log.Info("支付状态已更新",
		zap.Uint("order_id", id),
		zap.String("payment_status", string(status)),
		zap.Uint("actor_id", actor.UserID),
	)
	if err := s.events.PaymentUpdated(ctx, o); err != nil {
		log.Warn("发布支付状态事件失败", zap.Uint("order_id", id), zap.Error(err))
	}
	return toOrderResponse(o), nil
}

// transition 状态变更的唯一入口
// 顺序:
//  1. 读取订单,非特权操作人必须是订单所有者
//  2. 身份检查(显式条件判断)
//  3. 状态表校验,生成变更
//  4. 仓储乐观更新(WHERE status = 校验时的状态),并发修改返回INVALID_TRANSITION
func (s *Service) transition(ctx context.Context, actor identity.Identity, privileged bool, id uint, target order.Status, note string) (*order.Order, error) {
	o, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !privileged && !o.IsOwnedBy(actor.UserID) {
		return nil, order.ErrNotOwner
	}
	if err := order.Authorize(privileged, o.Status, target); err != nil {
		return nil, err
	}

	change, err := order.PlanTransition(o, target, actor.UserID, note, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, change); err != nil {
		return nil, err
	}
	o.Apply(change)

	s.metrics.StatusTransitionsTotal.WithLabelValues(string(change.From), string(change.To)).Inc()
	log := s.logger(ctx)
	log.Info("订单状态已变更",
		zap.Uint("order_id", o.ID),
		zap.String("order_number", o.Number),
		zap.String("from", string(change.From)),
		zap.String("to", string(change.To)),
		zap.Uint("actor_id", actor.UserID),
	)

	if err := s.events.StatusChanged(ctx, o, change); err != nil {
		log.Warn("发布状态变更事件失败", zap.Uint("order_id", o.ID), zap.Error(err))
	}
	return o, nil
}
