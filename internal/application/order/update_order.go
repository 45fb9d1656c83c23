package order

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/xiebiao/foodorder/internal/domain/identity"
	"github.com/xiebiao/foodorder/internal/domain/order"
	apperrors "github.com/xiebiao/foodorder/pkg/errors"
	"github.com/xiebiao/foodorder/pkg/tracing"
)

// UpdateOrder 修改待确认订单的地址、联系人、备注
// 只有pending状态可以修改,仓储以WHERE status='pending'保证并发安全
func (s *Service) UpdateOrder(ctx context.Context, actor identity.Identity, id uint, patch order.Patch) (resp *OrderResponse, err error) {
	ctx, span := s.startSpan(ctx, "UpdateOrder", actor, attribute.Int64("order.id", int64(id)))
	defer func() { tracing.EndSpan(span, err) }()

	patch = trimPatch(patch)
	if patch.IsEmpty() {
		return nil, order.ErrEmptyPatch
	}
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	o, err := s.loadForActor(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if o.Status != order.StatusPending {
		return nil, order.ErrNotEditable
	}
	if o.DeliveryType == order.DeliveryTypeDelivery && patch.DeliveryAddress != nil && *patch.DeliveryAddress == "" {
		return nil, order.ErrAddressRequired
	}

	if err := s.repo.UpdateDetails(ctx, id, patch); err != nil {
		return nil, err
	}

	updated, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger(ctx).Info("订单信息已修改",
		zap.Uint("order_id", id),
		zap.Uint("actor_id", actor.UserID),
	)
	return toOrderResponse(updated), nil
}

func trimPatch(p order.Patch) order.Patch {
	trim := func(v *string) *string {
		if v == nil {
			return nil
		}
		t := strings.TrimSpace(*v)
		return &t
	}
	return order.Patch{
		DeliveryAddress: trim(p.DeliveryAddress),
		ContactName:     trim(p.ContactName),
		ContactPhone:    trim(p.ContactPhone),
		CustomerNote:    trim(p.CustomerNote),
	}
}

func validatePatch(p order.Patch) error {
	if p.ContactName != nil && *p.ContactName == "" {
		return apperrors.ErrValidation.WithMessage("联系人不能为空")
	}
	if p.ContactPhone != nil && *p.ContactPhone == "" {
		return apperrors.ErrValidation.WithMessage("联系电话不能为空")
	}
	return nil
}
