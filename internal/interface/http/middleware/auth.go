package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/xiebiao/foodorder/internal/domain/identity"
	apperrors "github.com/xiebiao/foodorder/pkg/errors"
	"github.com/xiebiao/foodorder/pkg/logger"
	"github.com/xiebiao/foodorder/pkg/response"
)

const identityKey = "identity"

// AuthMiddleware Bearer认证中间件
// 设计说明:
// 1. 从Header提取Token
// 2. 交给identity.Resolver解析(本地JWT或远程认证服务)
// 3. 将调用方身份注入gin.Context,并给请求级logger补充user_id
type AuthMiddleware struct {
	resolver identity.Resolver
}

// NewAuthMiddleware 创建认证中间件
func NewAuthMiddleware(resolver identity.Resolver) *AuthMiddleware {
	return &AuthMiddleware{resolver: resolver}
}

// RequireAuth 要求登录
// 使用方式:
//
//	orders := r.Group("/api/v1/orders")
//	orders.Use(authMiddleware.RequireAuth())
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 格式:Authorization: Bearer <token>
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Error(c, apperrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			response.Error(c, apperrors.ErrInvalidToken.WithMessage("Token格式错误"))
			c.Abort()
			return
		}

		id, err := m.resolver.Resolve(c.Request.Context(), strings.TrimSpace(parts[1]))
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(identityKey, *id)

		ctx := c.Request.Context()
		log := logger.FromContext(ctx).With(zap.Uint("user_id", id.UserID), zap.String("role", string(id.Role)))
		c.Request = c.Request.WithContext(logger.WithContext(ctx, log))

		c.Next()
	}
}

// GetIdentity 从Context获取当前调用方
func GetIdentity(c *gin.Context) (identity.Identity, bool) {
	v, exists := c.Get(identityKey)
	if !exists {
		return identity.Identity{}, false
	}
	id, ok := v.(identity.Identity)
	return id, ok
}

// MustGetIdentity 从Context获取当前调用方(不存在则panic)
// 说明:用于已经通过RequireAuth中间件的Handler
func MustGetIdentity(c *gin.Context) identity.Identity {
	id, ok := GetIdentity(c)
	if !ok {
		panic("identity not found in context")
	}
	return id
}

// SetIdentity 写入调用方身份(测试使用)
func SetIdentity(c *gin.Context, id identity.Identity) {
	c.Set(identityKey, id)
}
