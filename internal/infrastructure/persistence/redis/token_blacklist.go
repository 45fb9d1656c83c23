package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/xiebiao/foodorder/pkg/errors"
)

const blacklistKeyPrefix = "blacklist:"

// TokenBlacklist JWT黑名单
// 设计说明：
// 1. 登出或强制下线的Token由认证服务写入 blacklist:{token}
// 2. 本服务只读，用于拒绝已失效但未过期的Token
// 3. 过期时间与Token剩余有效期一致，过期后自动删除
type TokenBlacklist struct {
	client *redis.Client
}

// NewTokenBlacklist 创建黑名单
func NewTokenBlacklist(client *redis.Client) *TokenBlacklist {
	return &TokenBlacklist{client: client}
}

// Revoke 将Token加入黑名单（联调与测试使用）
func (b *TokenBlacklist) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if err := b.client.Set(ctx, blacklistKeyPrefix+token, "revoked", ttl).Err(); err != nil {
		return apperrors.Wrap(err, "添加Token到黑名单失败")
	}
	return nil
}

// IsRevoked 检查Token是否在黑名单中
func (b *TokenBlacklist) IsRevoked(ctx context.Context, token string) (bool, error) {
	exists, err := b.client.Exists(ctx, blacklistKeyPrefix+token).Result()
	if err != nil {
		return false, apperrors.Wrap(err, "检查黑名单失败")
	}
	return exists > 0, nil
}
