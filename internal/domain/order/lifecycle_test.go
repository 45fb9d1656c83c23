package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/xiebiao/foodorder/pkg/errors"
)

var allStatuses = []Status{
	StatusPending, StatusConfirmed, StatusPreparing, StatusReady,
	StatusDelivering, StatusDelivered, StatusCancelled,
}

func TestCanTransition_Table(t *testing.T) {
	allowed := map[Status][]Status{
		StatusPending:    {StatusConfirmed, StatusCancelled},
		StatusConfirmed:  {StatusPreparing, StatusCancelled},
		StatusPreparing:  {StatusReady, StatusCancelled},
		StatusReady:      {StatusDelivering, StatusCancelled},
		StatusDelivering: {StatusDelivered, StatusCancelled},
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			want := false
			for _, s := range allowed[from] {
				if s == to {
					want = true
				}
			}
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestStatus_Terminal(t *testing.T) {
	assert.True(t, StatusDelivered.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.Empty(t, AllowedTargets(StatusDelivered))
	assert.Empty(t, AllowedTargets(StatusCancelled))
	assert.False(t, StatusReady.IsTerminal())
	assert.False(t, Status("shipped").Valid())
}

func TestAuthorize(t *testing.T) {
	t.Run("普通用户取消待确认订单", func(t *testing.T) {
		assert.NoError(t, Authorize(false, StatusPending, StatusCancelled))
	})

	t.Run("普通用户请求其他状态被拒绝", func(t *testing.T) {
		err := Authorize(false, StatusPending, StatusDelivering)
		assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
	})

	t.Run("普通用户取消已确认订单被拒绝", func(t *testing.T) {
		err := Authorize(false, StatusConfirmed, StatusCancelled)
		assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
	})

	t.Run("特权用户不受身份限制", func(t *testing.T) {
		for _, from := range allStatuses {
			for _, to := range allStatuses {
				assert.NoError(t, Authorize(true, from, to))
			}
		}
	})
}

func TestPlanTransition(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	t.Run("ready到delivering再到confirmed", func(t *testing.T) {
		o := &Order{ID: 7, Status: StatusReady}

		change, err := PlanTransition(o, StatusDelivering, 3, "骑手已取餐", now)
		require.NoError(t, err)
		assert.Equal(t, StatusReady, change.From)
		assert.Equal(t, StatusDelivering, change.To)
		assert.Nil(t, change.DeliveredAt)

		o.Apply(change)
		assert.Equal(t, StatusDelivering, o.Status)
		require.Len(t, o.History, 1)
		assert.Equal(t, uint(3), o.History[0].ChangedBy)

		_, err = PlanTransition(o, StatusConfirmed, 3, "", now)
		assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
		assert.Contains(t, err.Error(), "delivering")
	})

	t.Run("送达时记录送达时间", func(t *testing.T) {
		o := &Order{ID: 1, Status: StatusDelivering}

		change, err := PlanTransition(o, StatusDelivered, 2, "", now)
		require.NoError(t, err)
		require.NotNil(t, change.DeliveredAt)
		assert.Equal(t, now, *change.DeliveredAt)

		o.Apply(change)
		require.NotNil(t, o.DeliveredAt)
		assert.True(t, o.Status.IsTerminal())
	})

	t.Run("终态不能再流转", func(t *testing.T) {
		for _, to := range allStatuses {
			_, err := PlanTransition(&Order{Status: StatusCancelled}, to, 1, "", now)
			assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
		}
	})

	t.Run("未知目标状态", func(t *testing.T) {
		_, err := PlanTransition(&Order{Status: StatusPending}, Status("lost"), 1, "", now)
		assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	})
}

func TestInvalidTransitionError_ListsAllowedTargets(t *testing.T) {
	err := InvalidTransitionError(StatusDelivering, StatusConfirmed)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	assert.Contains(t, err.Message, "可选: delivered, cancelled")

	terminal := InvalidTransitionError(StatusDelivered, StatusConfirmed)
	assert.Contains(t, terminal.Message, "终态")
}
