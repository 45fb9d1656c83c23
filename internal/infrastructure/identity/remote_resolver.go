package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/foodorder/internal/domain/identity"
	apperrors "github.com/xiebiao/foodorder/pkg/errors"
)

const validatePath = "/api/v1/auth/validate"

// RemoteResolver 调用认证服务校验Token
// 适用于Token签发方不共享密钥的部署方式
type RemoteResolver struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	log     *zap.Logger
}

// NewRemoteResolver 创建远程解析器
func NewRemoteResolver(baseURL string, timeout time.Duration, httpClient *http.Client, log *zap.Logger) *RemoteResolver {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &RemoteResolver{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		http:    httpClient,
		log:     log,
	}
}

type validateResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    *struct {
		ID    uint   `json:"id"`
		Email string `json:"email"`
		Role  string `json:"role"`
	} `json:"data"`
}

// Resolve 调用 GET /api/v1/auth/validate
// 401/403 视为Token无效，其他失败视为认证服务不可用
func (r *RemoteResolver) Resolve(ctx context.Context, token string) (*identity.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+validatePath, nil)
	if err != nil {
		return nil, apperrors.Wrap(err, "构造认证请求失败")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		r.log.Warn("调用认证服务失败", zap.Error(err))
		return nil, apperrors.ErrUpstreamUnavailable.WithMessage("认证服务暂不可用").WithErr(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, apperrors.ErrInvalidToken
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, apperrors.ErrUpstreamUnavailable.WithMessage("认证服务暂不可用").
			WithErr(fmt.Errorf("认证服务返回状态码 %d", resp.StatusCode))
	}

	var body validateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, apperrors.ErrUpstreamUnavailable.WithMessage("认证服务响应格式错误").WithErr(err)
	}
	if !body.Success || body.Data == nil {
		return nil, apperrors.ErrInvalidToken
	}

	return toIdentity(body.Data.ID, body.Data.Email, body.Data.Role)
}
