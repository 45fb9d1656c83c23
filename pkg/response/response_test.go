package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/xiebiao/foodorder/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newContext() (*gin.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestError_MapsCodeToStatus(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"状态冲突", apperrors.ErrInvalidTransition, http.StatusConflict, apperrors.CodeInvalidTransition},
		{"自定义提示", apperrors.ErrValidation.WithMessage("联系人不能为空"), http.StatusBadRequest, apperrors.CodeValidation},
		{"普通错误包装为内部错误", errors.New("disk full"), http.StatusInternalServerError, apperrors.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newContext()
			Error(c, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.wantCode, body["error_code"])
			assert.NotContains(t, body, "data")
		})
	}
}

func TestError_HidesInternalCause(t *testing.T) {
	c, rec := newContext()
	Error(c, apperrors.ErrDatabaseError.WithErr(errors.New("dial tcp 10.0.0.1:3306")))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.1")
}

func TestCreated(t *testing.T) {
	c, rec := newContext()
	Created(c, "下单成功", gin.H{"id": 1})

	assert.Equal(t, http.StatusCreated, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "下单成功", body["message"])
	assert.NotContains(t, body, "error_code")
}

func TestNewPageData_Pages(t *testing.T) {
	assert.Equal(t, 3, NewPageData(nil, 41, 1, 20).Pages)
	assert.Equal(t, 2, NewPageData(nil, 40, 1, 20).Pages)
	assert.Equal(t, 0, NewPageData(nil, 0, 1, 20).Pages)
	assert.Equal(t, 0, NewPageData(nil, 10, 1, 0).Pages)
}
