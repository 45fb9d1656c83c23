package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	apporder "github.com/xiebiao/foodorder/internal/application/order"
	"github.com/xiebiao/foodorder/internal/domain/identity"
	"github.com/xiebiao/foodorder/internal/domain/order"
	"github.com/xiebiao/foodorder/internal/interface/http/handler"
	"github.com/xiebiao/foodorder/internal/interface/http/middleware"
	apperrors "github.com/xiebiao/foodorder/pkg/errors"
	"github.com/xiebiao/foodorder/pkg/metrics"
)

type stubResolver struct{}

func (stubResolver) Resolve(_ context.Context, token string) (*identity.Identity, error) {
	if token != "good" {
		return nil, apperrors.ErrInvalidToken
	}
	return &identity.Identity{UserID: 7, Role: identity.RoleCustomer}, nil
}

// stubOrders 只实现路由测试用到的方法,其余方法调用会panic
type stubOrders struct {
	handler.OrderService
}

func (stubOrders) ListMyOrders(_ context.Context, actor identity.Identity, _ *order.Status, page order.Page) (*apporder.ListResult, error) {
	return &apporder.ListResult{Items: []apporder.OrderListItem{}, Page: 1, Size: 20}, nil
}

func (stubOrders) GetOrder(_ context.Context, actor identity.Identity, id uint) (*apporder.OrderResponse, error) {
	return &apporder.OrderResponse{ID: id, UserID: actor.UserID}, nil
}

func newTestRouter(m *metrics.Metrics) http.Handler {
	svc := stubOrders{}
	return New(
		Options{Mode: "test", TracerName: "test"},
		zap.NewNop(),
		m,
		middleware.NewAuthMiddleware(stubResolver{}),
		handler.NewOrderHandler(svc),
		handler.NewAdminOrderHandler(svc),
	)
}

func serve(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRouter_PublicEndpoints(t *testing.T) {
	r := newTestRouter(metrics.New(prometheus.NewRegistry()))

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/ping", "").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/metrics", "").Code)
}

func TestRouter_RequiresAuth(t *testing.T) {
	r := newTestRouter(metrics.New(prometheus.NewRegistry()))

	rec := serve(r, http.MethodGet, "/api/v1/orders/my", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), apperrors.CodeUnauthorized)

	rec = serve(r, http.MethodGet, "/api/v1/orders/my", "bad")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), apperrors.CodeInvalidToken)
}

func TestRouter_StaticAndParamRoutes(t *testing.T) {
	r := newTestRouter(metrics.New(prometheus.NewRegistry()))

	rec := serve(r, http.MethodGet, "/api/v1/orders/my", "good")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(r, http.MethodGet, "/api/v1/orders/12", "good")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":12`)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRouter_RecordsMetricsByRoute(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	r := newTestRouter(m)

	serve(r, http.MethodGet, "/api/v1/orders/12", "good")
	serve(r, http.MethodGet, "/api/v1/orders/13", "good")

	rec := serve(r, http.MethodGet, "/metrics", "")
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="GET",route="/api/v1/orders/:id",status="200"} 2`)
}
