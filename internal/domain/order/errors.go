package order

import (
	"strings"

	apperrors "github.com/xiebiao/foodorder/pkg/errors"
)

// 订单领域错误定义
var (
	// ErrOrderNotFound 订单不存在
	ErrOrderNotFound = apperrors.ErrNotFound.WithMessage("订单不存在")

	// ErrNotOwner 访问他人订单
	ErrNotOwner = apperrors.ErrPermissionDenied.WithMessage("无权访问该订单")

	// ErrCustomerCancelOnly 普通用户只能取消待确认订单
	ErrCustomerCancelOnly = apperrors.ErrPermissionDenied.WithMessage("只能取消待确认的订单")

	// ErrStaffOnly 需要商家或管理员权限
	ErrStaffOnly = apperrors.ErrPermissionDenied.WithMessage("需要商家或管理员权限")

	// ErrStatusConflict 状态已被并发修改
	ErrStatusConflict = apperrors.ErrInvalidTransition.WithMessage("订单状态已变更，请刷新后重试")

	// ErrNotEditable 只有待确认订单可以修改
	ErrNotEditable = apperrors.ErrValidation.WithMessage("只能修改待确认的订单")

	// ErrEmptyPatch 没有可更新字段
	ErrEmptyPatch = apperrors.ErrValidation.WithMessage("没有需要更新的字段")

	// ErrInvalidOrderItems 订单明细不合法
	ErrInvalidOrderItems = apperrors.ErrValidation.WithMessage("订单明细不能为空")

	// ErrInvalidQuantity 购买数量不合法
	ErrInvalidQuantity = apperrors.ErrValidation.WithMessage("购买数量必须大于0")

	// ErrAddressRequired 外卖订单必须填写地址
	ErrAddressRequired = apperrors.ErrValidation.WithMessage("外卖订单必须填写配送地址")

	// ErrDuplicateNumber 订单号冲突
	ErrDuplicateNumber = apperrors.ErrDuplicateOrderNumber
)

// InvalidTransitionError 构造携带具体状态的非法流转错误
func InvalidTransitionError(from, to Status) *apperrors.AppError {
	targets := AllowedTargets(from)
	if len(targets) == 0 {
		return apperrors.ErrInvalidTransition.WithMessagef("订单状态不允许从 %s 变更为 %s(%s 为终态)", from, to, from)
	}
	names := make([]string, len(targets))
	for i, s := range targets {
		names[i] = string(s)
	}
	return apperrors.ErrInvalidTransition.WithMessagef("订单状态不允许从 %s 变更为 %s,可选: %s", from, to, strings.Join(names, ", "))
}

// InvalidStatusError 未知的订单状态
func InvalidStatusError(s Status) *apperrors.AppError {
	return apperrors.ErrValidation.WithMessagef("未知的订单状态: %s", s)
}
