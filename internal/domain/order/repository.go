package order

import (
	"context"
	"time"
)

// ListFilter 订单查询/统计过滤条件,nil字段表示不过滤
type ListFilter struct {
	UserID   *uint
	Status   *Status
	DateFrom *time.Time // created_at >= DateFrom
	DateTo   *time.Time // created_at <= DateTo
}

// Page 分页参数
type Page struct {
	Page int
	Size int
}

// 分页默认值
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Normalize 修正非法分页参数
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Size < 1 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

// Offset 偏移量
func (p Page) Offset() int {
	return (p.Page - 1) * p.Size
}

// Repository 订单仓储接口(依赖倒置原则)
// 教学要点:
// 1. 由domain层定义接口,infrastructure层实现
// 2. 写操作各自保证原子性,调用方无需感知事务
type Repository interface {
	// Create 在一个事务中写入订单、明细和初始状态记录
	// 订单号冲突返回ErrDuplicateNumber
	Create(ctx context.Context, order *Order) error

	// FindByID 根据ID查找订单(包含明细和状态记录)
	FindByID(ctx context.Context, id uint) (*Order, error)

	// FindByNumber 根据订单号查找订单
	FindByNumber(ctx context.Context, number string) (*Order, error)

	// List 分页查询订单(加载明细用于统计件数,不加载历史),按创建时间倒序
	List(ctx context.Context, filter ListFilter, page Page) ([]*Order, int64, error)

	// UpdateDetails 更新可修改字段,仅当订单仍为pending时生效
	// 订单已不是pending时返回ErrNotEditable
	UpdateDetails(ctx context.Context, id uint, patch Patch) error

	// UpdateStatus 乐观更新状态并追加历史记录(同一事务)
	// 当前状态已不是change.From时返回ErrStatusConflict
	UpdateStatus(ctx context.Context, change *StatusChange) error

	// UpdatePaymentStatus 更新支付状态
	UpdatePaymentStatus(ctx context.Context, id uint, status PaymentStatus) error

	// ListExpiredPending 查询创建时间早于before的pending订单ID
	ListExpiredPending(ctx context.Context, before time.Time, limit int) ([]uint, error)

	// Totals 按过滤条件聚合各状态数量和已送达金额
	Totals(ctx context.Context, filter ListFilter) (StatusTotals, error)
}
