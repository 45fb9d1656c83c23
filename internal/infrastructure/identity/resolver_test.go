package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xiebiao/foodorder/internal/domain/identity"
	apperrors "github.com/xiebiao/foodorder/pkg/errors"
	"github.com/xiebiao/foodorder/pkg/jwt"
)

type fakeRevocations struct {
	revoked map[string]bool
	err     error
}

func (f fakeRevocations) IsRevoked(_ context.Context, token string) (bool, error) {
	return f.revoked[token], f.err
}

func TestJWTResolver(t *testing.T) {
	manager := jwt.NewManager("test-secret", "auth-service", time.Hour)

	courierToken, err := manager.GenerateToken(7, "rider@example.com", "courier")
	require.NoError(t, err)
	noRoleToken, err := manager.GenerateToken(8, "u@example.com", "")
	require.NoError(t, err)
	badRoleToken, err := manager.GenerateToken(9, "x@example.com", "root")
	require.NoError(t, err)

	t.Run("解析角色", func(t *testing.T) {
		r := NewJWTResolver(manager, fakeRevocations{}, zap.NewNop())
		id, err := r.Resolve(context.Background(), courierToken)
		require.NoError(t, err)
		assert.Equal(t, uint(7), id.UserID)
		assert.Equal(t, identity.RoleCourier, id.Role)
		assert.True(t, id.Role.CanDispatch())
		assert.False(t, id.Role.IsStaff())
	})

	t.Run("缺省角色为普通用户", func(t *testing.T) {
		r := NewJWTResolver(manager, nil, zap.NewNop())
		id, err := r.Resolve(context.Background(), noRoleToken)
		require.NoError(t, err)
		assert.Equal(t, identity.RoleCustomer, id.Role)
	})

	t.Run("未知角色", func(t *testing.T) {
		r := NewJWTResolver(manager, nil, zap.NewNop())
		_, err := r.Resolve(context.Background(), badRoleToken)
		assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})

	t.Run("黑名单中的Token", func(t *testing.T) {
		r := NewJWTResolver(manager, fakeRevocations{revoked: map[string]bool{courierToken: true}}, zap.NewNop())
		_, err := r.Resolve(context.Background(), courierToken)
		assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})

	t.Run("黑名单查询失败", func(t *testing.T) {
		r := NewJWTResolver(manager, fakeRevocations{err: errors.New("redis down")}, zap.NewNop())
		_, err := r.Resolve(context.Background(), courierToken)
		assert.ErrorIs(t, err, apperrors.ErrInternal)
	})

	t.Run("伪造的Token", func(t *testing.T) {
		r := NewJWTResolver(manager, nil, zap.NewNop())
		_, err := r.Resolve(context.Background(), "not-a-jwt")
		assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})
}

func TestRemoteResolver(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, validatePath, r.URL.Path)
		switch r.Header.Get("Authorization") {
		case "Bearer good":
			_, _ = w.Write([]byte(`{"success":true,"data":{"id":3,"email":"m@example.com","role":"manager"}}`))
		case "Bearer broken":
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"success":false,"message":"invalid token"}`))
		}
	}))
	defer srv.Close()

	r := NewRemoteResolver(srv.URL, time.Second, nil, zap.NewNop())

	id, err := r.Resolve(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, uint(3), id.UserID)
	assert.Equal(t, identity.RoleManager, id.Role)
	assert.True(t, id.Role.IsStaff())

	_, err = r.Resolve(context.Background(), "bad")
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)

	_, err = r.Resolve(context.Background(), "broken")
	assert.ErrorIs(t, err, apperrors.ErrUpstreamUnavailable)
}

func TestRemoteResolver_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewRemoteResolver(url, 200*time.Millisecond, nil, zap.NewNop()).Resolve(context.Background(), "t")
	assert.ErrorIs(t, err, apperrors.ErrUpstreamUnavailable)
}
