package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apporder "github.com/xiebiao/foodorder/internal/application/order"
	"github.com/xiebiao/foodorder/internal/domain/identity"
	"github.com/xiebiao/foodorder/internal/domain/order"
	"github.com/xiebiao/foodorder/internal/interface/http/middleware"
	apperrors "github.com/xiebiao/foodorder/pkg/errors"
)

type mockOrderService struct{ mock.Mock }

func (m *mockOrderService) CreateOrder(ctx context.Context, actor identity.Identity, req apporder.CreateOrderRequest) (*apporder.OrderResponse, error) {
	args := m.Called(ctx, actor, req)
	resp, _ := args.Get(0).(*apporder.OrderResponse)
	return resp, args.Error(1)
}

func (m *mockOrderService) GetOrder(ctx context.Context, actor identity.Identity, id uint) (*apporder.OrderResponse, error) {
	args := m.Called(ctx, actor, id)
	resp, _ := args.Get(0).(*apporder.OrderResponse)
	return resp, args.Error(1)
}

func (m *mockOrderService) GetOrderByNumber(ctx context.Context, actor identity.Identity, number string) (*apporder.OrderResponse, error) {
	args := m.Called(ctx, actor, number)
	resp, _ := args.Get(0).(*apporder.OrderResponse)
	return resp, args.Error(1)
}

func (m *mockOrderService) ListMyOrders(ctx context.Context, actor identity.Identity, status *order.Status, page order.Page) (*apporder.ListResult, error) {
	args := m.Called(ctx, actor, status, page)
	resp, _ := args.Get(0).(*apporder.ListResult)
	return resp, args.Error(1)
}

func (m *mockOrderService) ListOrders(ctx context.Context, actor identity.Identity, q apporder.ListQuery) (*apporder.ListResult, error) {
	args := m.Called(ctx, actor, q)
	resp, _ := args.Get(0).(*apporder.ListResult)
	return resp, args.Error(1)
}

func (m *mockOrderService) GetHistory(ctx context.Context, actor identity.Identity, id uint) ([]apporder.HistoryResponse, error) {
	args := m.Called(ctx, actor, id)
	resp, _ := args.Get(0).([]apporder.HistoryResponse)
	return resp, args.Error(1)
}

func (m *mockOrderService) UpdateOrder(ctx context.Context, actor identity.Identity, id uint, patch order.Patch) (*apporder.OrderResponse, error) {
	args := m.Called(ctx, actor, id, patch)
	resp, _ := args.Get(0).(*apporder.OrderResponse)
	return resp, args.Error(1)
}

func (m *mockOrderService) CancelOrder(ctx context.Context, actor identity.Identity, id uint, reason string) (*apporder.OrderResponse, error) {
	args := m.Called(ctx, actor, id, reason)
	resp, _ := args.Get(0).(*apporder.OrderResponse)
	return resp, args.Error(1)
}

func (m *mockOrderService) UpdateStatus(ctx context.Context, actor identity.Identity, id uint, target order.Status, note string) (*apporder.OrderResponse, error) {
	args := m.Called(ctx, actor, id, target, note)
	resp, _ := args.Get(0).(*apporder.OrderResponse)
	return resp, args.Error(1)
}

func (m *mockOrderService) UpdatePaymentStatus(ctx context.Context, actor identity.Identity, id uint, status order.PaymentStatus) (*apporder.OrderResponse, error) {
	args := m.Called(ctx, actor, id, status)
	resp, _ := args.Get(0).(*apporder.OrderResponse)
	return resp, args.Error(1)
}

func (m *mockOrderService) GetStatistics(ctx context.Context, actor identity.Identity, filter order.ListFilter) (*apporder.StatisticsResponse, error) {
	args := m.Called(ctx, actor, filter)
	resp, _ := args.Get(0).(*apporder.StatisticsResponse)
	return resp, args.Error(1)
}

var _ OrderService = (*apporder.Service)(nil)

var (
	customer = identity.Identity{UserID: 7, Email: "c@example.com", Role: identity.RoleCustomer}
	manager  = identity.Identity{UserID: 30, Email: "m@example.com", Role: identity.RoleManager}
)

type apiResponse struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	ErrorCode string          `json:"error_code"`
	Data      json.RawMessage `json:"data"`
}

// newEngine 注册全部订单路由,跳过认证直接注入调用方身份
func newEngine(svc OrderService, actor identity.Identity) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		middleware.SetIdentity(c, actor)
		c.Next()
	})

	h := NewOrderHandler(svc)
	r.POST("/orders", h.CreateOrder)
	r.GET("/orders/my", h.ListMyOrders)
	r.GET("/orders/number/:number", h.GetOrderByNumber)
	r.GET("/orders/:id", h.GetOrder)
	r.PATCH("/orders/:id", h.UpdateOrder)
	r.POST("/orders/:id/cancel", h.CancelOrder)
	r.GET("/orders/:id/history", h.GetHistory)

	a := NewAdminOrderHandler(svc)
	r.GET("/admin/orders", a.ListOrders)
	r.GET("/admin/orders/statistics", a.Statistics)
	r.PATCH("/admin/orders/:id/status", a.UpdateStatus)
	r.PATCH("/admin/orders/:id/payment", a.UpdatePayment)
	return r
}

func do(t *testing.T, r *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var resp apiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec, resp
}

func validCreateBody() map[string]interface{} {
	return map[string]interface{}{
		"delivery_type":    "delivery",
		"delivery_address": "人民路1号",
		"contact_name":     "张三",
		"contact_phone":    "13800000000",
		"items": []map[string]interface{}{
			{"product_id": 42, "quantity": 2, "modifiers": []map[string]interface{}{{"id": 3, "name": "加蛋", "price": "2.50"}}},
		},
	}
}

func TestCreateOrder_Created(t *testing.T) {
	svc := new(mockOrderService)
	svc.On("CreateOrder", mock.Anything, customer, mock.MatchedBy(func(req apporder.CreateOrderRequest) bool {
		return len(req.Items) == 1 &&
			req.Items[0].ProductID == 42 &&
			req.Items[0].Modifiers[0].Quantity == 1 &&
			req.Items[0].Modifiers[0].Price.String() == "2.5" &&
			req.DeliveryType == order.DeliveryTypeDelivery
	})).Return(&apporder.OrderResponse{ID: 1, Total: "25.00", Status: "pending"}, nil).Once()

	rec, resp := do(t, newEngine(svc, customer), http.MethodPost, "/orders", validCreateBody())

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, resp.Success)
	assert.JSONEq(t, `"25.00"`, string(mustField(t, resp.Data, "total")))
	svc.AssertExpectations(t)
}

func TestCreateOrder_BindingError(t *testing.T) {
	svc := new(mockOrderService)
	body := validCreateBody()
	delete(body, "contact_phone")

	rec, resp := do(t, newEngine(svc, customer), http.MethodPost, "/orders", body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, apperrors.CodeValidation, resp.ErrorCode)
	svc.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateOrder_ErrorCodes(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"商品服务不可用", apperrors.ErrUpstreamUnavailable, http.StatusServiceUnavailable, apperrors.CodeUpstreamUnavailable},
		{"商品不存在", apperrors.ErrProductNotFound, http.StatusNotFound, apperrors.CodeProductNotFound},
		{"商品不可售", apperrors.ErrProductUnavailable, http.StatusUnprocessableEntity, apperrors.CodeProductUnavailable},
		{"未达起送金额", apperrors.ErrBelowMinimumOrder, http.StatusUnprocessableEntity, apperrors.CodeBelowMinimumOrder},
		{"订单号冲突", apperrors.ErrDuplicateOrderNumber, http.StatusConflict, apperrors.CodeDuplicateOrderNumber},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockOrderService)
			svc.On("CreateOrder", mock.Anything, customer, mock.Anything).Return(nil, tt.err).Once()

			rec, resp := do(t, newEngine(svc, customer), http.MethodPost, "/orders", validCreateBody())
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, resp.ErrorCode)
			assert.False(t, resp.Success)
		})
	}
}

func TestGetOrder(t *testing.T) {
	svc := new(mockOrderService)
	svc.On("GetOrder", mock.Anything, customer, uint(5)).Return(nil, order.ErrNotOwner).Once()
	r := newEngine(svc, customer)

	rec, resp := do(t, r, http.MethodGet, "/orders/5", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, apperrors.CodePermissionDenied, resp.ErrorCode)

	rec, resp = do(t, r, http.MethodGet, "/orders/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apperrors.CodeValidation, resp.ErrorCode)
	svc.AssertExpectations(t)
}

func TestListMyOrders_Page(t *testing.T) {
	svc := new(mockOrderService)
	status := order.StatusPending
	svc.On("ListMyOrders", mock.Anything, customer, &status, order.Page{Page: 2, Size: 10}).
		Return(&apporder.ListResult{
			Items: []apporder.OrderListItem{{ID: 11, Total: "25.00", ItemsCount: 2}},
			Total: 11,
			Page:  2,
			Size:  10,
		}, nil).Once()

	rec, resp := do(t, newEngine(svc, customer), http.MethodGet, "/orders/my?page=2&size=10&status=pending", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var page struct {
		Items []apporder.OrderListItem `json:"items"`
		Total int64                    `json:"total"`
		Pages int                      `json:"pages"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &page))
	assert.Equal(t, int64(11), page.Total)
	assert.Equal(t, 2, page.Pages)
	require.Len(t, page.Items, 1)
	assert.Equal(t, 2, page.Items[0].ItemsCount)
}

func TestListMyOrders_RejectsOversizedPage(t *testing.T) {
	svc := new(mockOrderService)
	rec, resp := do(t, newEngine(svc, customer), http.MethodGet, "/orders/my?size=500", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apperrors.CodeValidation, resp.ErrorCode)
}

func TestUpdateOrder_PassesOnlyProvidedFields(t *testing.T) {
	svc := new(mockOrderService)
	svc.On("UpdateOrder", mock.Anything, customer, uint(3), mock.MatchedBy(func(p order.Patch) bool {
		return p.ContactPhone != nil && *p.ContactPhone == "13900000000" && p.DeliveryAddress == nil && p.CustomerNote == nil
	})).Return(&apporder.OrderResponse{ID: 3}, nil).Once()

	rec, _ := do(t, newEngine(svc, customer), http.MethodPatch, "/orders/3", map[string]string{"contact_phone": "13900000000"})
	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestCancelOrder_Reason(t *testing.T) {
	svc := new(mockOrderService)
	svc.On("CancelOrder", mock.Anything, customer, uint(3), "不想要了").
		Return(nil, order.ErrCustomerCancelOnly).Once()

	rec, resp := do(t, newEngine(svc, customer), http.MethodPost, "/orders/3/cancel?reason="+url.QueryEscape("不想要了"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "只能取消待确认的订单", resp.Message)
}

func TestUpdateStatus(t *testing.T) {
	svc := new(mockOrderService)
	r := newEngine(svc, manager)

	rec, resp := do(t, r, http.MethodPatch, "/admin/orders/3/status", map[string]string{"status": "shipped"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apperrors.CodeValidation, resp.ErrorCode)

	svc.On("UpdateStatus", mock.Anything, manager, uint(3), order.StatusConfirmed, "接单").
		Return(nil, order.InvalidTransitionError(order.StatusDelivered, order.StatusConfirmed)).Once()
	rec, resp = do(t, r, http.MethodPatch, "/admin/orders/3/status", map[string]string{"status": "confirmed", "note": "接单"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, apperrors.CodeInvalidTransition, resp.ErrorCode)
	svc.AssertExpectations(t)
}

func TestUpdatePayment(t *testing.T) {
	svc := new(mockOrderService)
	svc.On("UpdatePaymentStatus", mock.Anything, manager, uint(3), order.PaymentStatusRefunded).
		Return(&apporder.OrderResponse{ID: 3, PaymentStatus: "refunded"}, nil).Once()

	rec, resp := do(t, newEngine(svc, manager), http.MethodPatch, "/admin/orders/3/payment", map[string]string{"payment_status": "refunded"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	svc.AssertExpectations(t)
}

func TestAdminListOrders_Filter(t *testing.T) {
	svc := new(mockOrderService)
	svc.On("ListOrders", mock.Anything, manager, mock.MatchedBy(func(q apporder.ListQuery) bool {
		f := q.Filter
		return f.UserID != nil && *f.UserID == 7 &&
			f.DateFrom != nil && f.DateFrom.Format("2006-01-02T15:04:05") == "2024-01-01T00:00:00" &&
			f.DateTo != nil && f.DateTo.Format("2006-01-02T15:04:05") == "2024-01-31T23:59:59" &&
			q.Page.Page == 1
	})).Return(&apporder.ListResult{Page: 1, Size: 20}, nil).Once()

	rec, _ := do(t, newEngine(svc, manager), http.MethodGet, "/admin/orders?page=1&user_id=7&date_from=2024-01-01&date_to=2024-01-31", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestStatistics(t *testing.T) {
	svc := new(mockOrderService)
	r := newEngine(svc, manager)

	rec, resp := do(t, r, http.MethodGet, "/admin/orders/statistics?date_from=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apperrors.CodeValidation, resp.ErrorCode)

	svc.On("GetStatistics", mock.Anything, manager, order.ListFilter{}).
		Return(&apporder.StatisticsResponse{TotalOrders: 4, AverageOrderValue: "0.00"}, nil).Once()
	rec, resp = do(t, r, http.MethodGet, "/admin/orders/statistics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `4`, string(mustField(t, resp.Data, "total_orders")))
}

func mustField(t *testing.T, raw json.RawMessage, key string) json.RawMessage {
	t.Helper()
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &m))
	v, ok := m[key]
	require.True(t, ok, "missing field %s", key)
	return v
}
