package order

import "time"

// transitions 订单状态流转表
//
//	pending    -> confirmed | cancelled
//	confirmed  -> preparing | cancelled
//	preparing  -> ready     | cancelled
//	ready      -> delivering| cancelled
//	delivering -> delivered | cancelled
//	delivered, cancelled 为终态
var transitions = map[Status][]Status{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusPreparing, StatusCancelled},
	StatusPreparing:  {StatusReady, StatusCancelled},
	StatusReady:      {StatusDelivering, StatusCancelled},
	StatusDelivering: {StatusDelivered, StatusCancelled},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

// AllowedTargets 当前状态可流转到的状态
func AllowedTargets(from Status) []Status {
	targets := transitions[from]
	out := make([]Status, len(targets))
	copy(out, targets)
	return out
}

// CanTransition 状态表是否允许from->to
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Authorize 按操作人身份检查能否请求目标状态
// 普通用户(非特权)只能把待确认订单取消,其余请求一律拒绝;
// 特权操作人不受此限制,但仍需通过状态表校验。
func Authorize(privileged bool, current, target Status) error {
	if privileged {
		return nil
	}
	if target == StatusCancelled && current == StatusPending {
		return nil
	}
	return ErrCustomerCancelOnly
}

// StatusChange 一次已校验的状态变更
// 仓储据此做乐观更新(WHERE status = From),并在同一事务内追加历史
type StatusChange struct {
	OrderID     uint
	From        Status
	To          Status
	ActorID     uint
	Note        string
	At          time.Time
	DeliveredAt *time.Time
}

// PlanTransition 校验状态表并生成变更
// 不做身份检查,调用方需先调用Authorize
func PlanTransition(o *Order, target Status, actorID uint, note string, now time.Time) (*StatusChange, error) {
	if !target.Valid() || !CanTransition(o.Status, target) {
		return nil, InvalidTransitionError(o.Status, target)
	}

	change := &StatusChange{
		OrderID: o.ID,
		From:    o.Status,
		To:      target,
		ActorID: actorID,
		Note:    note,
		At:      now,
	}
	if target == StatusDelivered {
		at := now
		change.DeliveredAt = &at
	}
	return change, nil
}

// Apply 将已持久化的变更同步到内存中的订单
func (o *Order) Apply(change *StatusChange) {
	o.Status = change.To
	o.UpdatedAt = change.At
	if change.DeliveredAt != nil {
		o.DeliveredAt = change.DeliveredAt
	}
	o.History = append(o.History, StatusHistory{
		OrderID:   o.ID,
		Status:    change.To,
		Note:      change.Note,
		ChangedBy: change.ActorID,
		CreatedAt: change.At,
	})
}
