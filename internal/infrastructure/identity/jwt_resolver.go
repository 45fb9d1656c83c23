package identity

import (
	"context"

	"go.uber.org/zap"

	"github.com/xiebiao/foodorder/internal/domain/identity"
	apperrors "github.com/xiebiao/foodorder/pkg/errors"
	"github.com/xiebiao/foodorder/pkg/jwt"
)

// RevocationChecker Token黑名单查询
type RevocationChecker interface {
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// JWTResolver 本地校验JWT
// 设计说明：
// 1. 与认证服务共享HS256密钥，无需每次请求都调用认证服务
// 2. 先查黑名单，再校验签名与过期时间
type JWTResolver struct {
	manager     *jwt.Manager
	revocations RevocationChecker
	log         *zap.Logger
}

// NewJWTResolver 创建本地JWT解析器，revocations为nil时不检查黑名单
func NewJWTResolver(manager *jwt.Manager, revocations RevocationChecker, log *zap.Logger) *JWTResolver {
	return &JWTResolver{
		manager:     manager,
		revocations: revocations,
		log:         log,
	}
}

// Resolve 校验Token并返回身份
func (r *JWTResolver) Resolve(ctx context.Context, token string) (*identity.Identity, error) {
	if r.revocations != nil {
		revoked, err := r.revocations.IsRevoked(ctx, token)
		if err != nil {
			r.log.Error("检查Token黑名单失败", zap.Error(err))
			return nil, apperrors.ErrInternal.WithMessage("验证Token失败").WithErr(err)
		}
		if revoked {
			return nil, apperrors.ErrInvalidToken.WithMessage("Token已失效，请重新登录")
		}
	}

	claims, err := r.manager.ParseToken(token)
	if err != nil {
		return nil, err
	}

	return toIdentity(claims.UserID, claims.Email, claims.Role)
}

// toIdentity 角色为空按普通用户处理，未知角色视为无效Token
func toIdentity(userID uint, email, role string) (*identity.Identity, error) {
	r := identity.Role(role)
	if role == "" {
		r = identity.RoleCustomer
	}
	if !r.Valid() || userID == 0 {
		return nil, apperrors.ErrInvalidToken
	}
	return &identity.Identity{UserID: userID, Email: email, Role: r}, nil
}
