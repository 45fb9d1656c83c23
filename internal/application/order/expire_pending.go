package order

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/xiebiao/foodorder/internal/domain/identity"
	"github.com/xiebiao/foodorder/internal/domain/order"
	apperrors "github.com/xiebiao/foodorder/pkg/errors"
	"github.com/xiebiao/foodorder/pkg/tracing"
)

// ExpireNote 超时取消写入历史的备注
const ExpireNote = "超时未确认自动取消"

// ExpirePending 取消超时未确认的订单,返回取消数量
// 以系统身份走正常的状态流转,期间被商家确认的订单会因乐观检查失败而跳过
func (s *Service) ExpirePending(ctx context.Context) (cancelled int, err error) {
	if s.cfg.PendingTimeout <= 0 {
		return 0, nil
	}

	system := identity.System()
	ctx, span := s.startSpan(ctx, "ExpirePending", system)
	defer func() {
		span.SetAttributes(attribute.Int("orders.cancelled", cancelled))
		tracing.EndSpan(span, err)
	}()

	before := s.now().Add(-s.cfg.PendingTimeout)
	ids, err := s.repo.ListExpiredPending(ctx, before, s.cfg.ExpireBatchSize)
	if err != nil {
		return 0, err
	}

	log := s.logger(ctx)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return cancelled, err
		}
		if _, err := s.transition(ctx, system, true, id, order.StatusCancelled, ExpireNote); err != nil {
			if errors.Is(err, apperrors.ErrInvalidTransition) || errors.Is(err, apperrors.ErrNotFound) {
				log.Debug("订单状态已变化,跳过超时取消", zap.Uint("order_id", id), zap.Error(err))
				continue
			}
			return cancelled, err
		}
		cancelled++
	}

	if cancelled > 0 {
		log.Info("超时订单已取消", zap.Int("count", cancelled))
	}
	return cancelled, nil
}
