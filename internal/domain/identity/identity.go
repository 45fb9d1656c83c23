package identity

import (
	"context"
)

// Role 用户角色（由认证服务下发）
type Role string

const (
	RoleCustomer Role = "customer"
	RoleCourier  Role = "courier"
	RoleManager  Role = "manager"
	RoleAdmin    Role = "admin"
)

// Valid 是否为已知角色
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleCourier, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// IsStaff 运营人员（可查看全部订单、修改支付状态、查看统计）
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleManager
}

// CanDispatch 可推进订单状态（运营人员与骑手）
func (r Role) CanDispatch() bool {
	return r.IsStaff() || r == RoleCourier
}

// Identity 已认证的调用方
type Identity struct {
	UserID uint
	Email  string
	Role   Role
}

// SystemActorID 系统任务（如超时取消）写入历史时使用的操作人ID
const SystemActorID uint = 0

// System 后台任务使用的系统身份
func System() Identity {
	return Identity{UserID: SystemActorID, Role: RoleAdmin}
}

// Resolver 根据Bearer凭证解析调用方身份
type Resolver interface {
	Resolve(ctx context.Context, token string) (*Identity, error)
}
