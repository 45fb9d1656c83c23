package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_IsMatchesByCode(t *testing.T) {
	derived := ErrInvalidTransition.WithMessagef("不能从 %s 转换到 %s", "ready", "confirmed")

	assert.True(t, errors.Is(derived, ErrInvalidTransition))
	assert.False(t, errors.Is(derived, ErrNotFound))

	// 包装后依然可以识别
	wrapped := fmt.Errorf("更新状态: %w", derived)
	assert.True(t, errors.Is(wrapped, ErrInvalidTransition))
	assert.Equal(t, "不能从 ready 转换到 confirmed", GetAppError(wrapped).Message)
}

func TestAppError_HTTPStatus(t *testing.T) {
	cases := map[*AppError]int{
		ErrNotFound:             http.StatusNotFound,
		ErrPermissionDenied:     http.StatusForbidden,
		ErrValidation:           http.StatusBadRequest,
		ErrInvalidTransition:    http.StatusConflict,
		ErrUpstreamUnavailable:  http.StatusServiceUnavailable,
		ErrBelowMinimumOrder:    http.StatusUnprocessableEntity,
	}
	for appErr, want := range cases {
		assert.Equal(t, want, appErr.HTTPStatus(), appErr.Code)
	}

	// 未登记的错误码按500处理
	assert.Equal(t, http.StatusInternalServerError, New("SOMETHING_ELSE", "").HTTPStatus())
}

func TestGetAppError_WrapsPlainErrors(t *testing.T) {
	plain := errors.New("connection reset")

	appErr := GetAppError(plain)

	assert.Equal(t, CodeInternal, appErr.Code)
	assert.ErrorIs(t, appErr, plain)
	assert.True(t, HasCode(ErrDatabaseError.WithErr(plain), CodeDatabaseError))
}
