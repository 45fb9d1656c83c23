package mysql

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/xiebiao/foodorder/internal/domain/order"
	apperrors "github.com/xiebiao/foodorder/pkg/errors"
)

// orderRepository 订单仓储实现(MySQL)
// 教学要点:
// 1. Order、OrderItem、OrderStatusHistory是聚合关系,必须在同一事务中写入
// 2. 查询时使用Preload预加载明细和状态记录,避免N+1问题
// 3. 状态更新使用乐观检查(WHERE status = 校验时的状态),不加行锁
type orderRepository struct {
	tx *TxManager
}

// NewOrderRepository 创建订单仓储
func NewOrderRepository(db *gorm.DB) order.Repository {
	return &orderRepository{tx: NewTxManager(db)}
}

// Create 创建订单
// 教学要点:
// 1. 订单、明细、初始状态记录在一个事务中插入,任何一步失败都整体回滚
// 2. 订单号唯一索引冲突转换为ErrDuplicateNumber,由调用方重新生成订单号重试
func (r *orderRepository) Create(ctx context.Context, o *order.Order) error {
	model := toOrderModel(o)

	err := r.tx.Transaction(ctx, func(ctx context.Context) error {
		// GORM会在同一事务内按foreignKey写入Items和History
		return r.tx.DB(ctx).Create(model).Error
	})
	if err != nil {
		if isDuplicateError(err) {
			return order.ErrDuplicateNumber.WithErr(err)
		}
		return apperrors.ErrDatabaseError.WithMessage("创建订单失败").WithErr(err)
	}

	// 回填自增ID与时间戳
	o.ID = model.ID
	o.CreatedAt = model.CreatedAt
	o.UpdatedAt = model.UpdatedAt
	for i := range o.Items {
		o.Items[i].ID = model.Items[i].ID
		o.Items[i].OrderID = model.ID
	}
	for i := range o.History {
		o.History[i].ID = model.History[i].ID
		o.History[i].OrderID = model.ID
		o.History[i].CreatedAt = model.History[i].CreatedAt
	}
	return nil
}

// FindByID 根据ID查找订单
// Preload会执行:
// 1. SELECT * FROM orders WHERE id = ?
// 2. SELECT * FROM order_items WHERE order_id IN (?)
// 3. SELECT * FROM order_status_history WHERE order_id IN (?) ORDER BY created_at, id
func (r *orderRepository) FindByID(ctx context.Context, id uint) (*order.Order, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByNumber 根据订单号查找订单
func (r *orderRepository) FindByNumber(ctx context.Context, number string) (*order.Order, error) {
	return r.findOne(ctx, "order_number = ?", number)
}

func (r *orderRepository) findOne(ctx context.Context, query string, arg interface{}) (*order.Order, error) {
	var model OrderModel
	err := r.tx.DB(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("History", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Where(query, arg).
		First(&model).Error
	if err != nil {
		if isNotFound(err) {
			return nil, order.ErrOrderNotFound
		}
		return nil, apperrors.ErrDatabaseError.WithMessage("查询订单失败").WithErr(err)
	}
	return toOrderEntity(&model), nil
}

// List 分页查询订单
// 列表需要明细数量,只预加载明细,不加载状态记录
func (r *orderRepository) List(ctx context.Context, filter order.ListFilter, page order.Page) ([]*order.Order, int64, error) {
	page = page.Normalize()

	var total int64
	query := applyFilter(r.tx.DB(ctx).Model(&OrderModel{}), filter)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.ErrDatabaseError.WithMessage("查询订单总数失败").WithErr(err)
	}
	if total == 0 {
		return []*order.Order{}, 0, nil
	}

	var models []OrderModel
	err := applyFilter(r.tx.DB(ctx), filter).
		Preload("Items").
		Order("created_at DESC, id DESC").
		Limit(page.Size).
		Offset(page.Offset()).
		Find(&models).Error
	if err != nil {
		return nil, 0, apperrors.ErrDatabaseError.WithMessage("查询订单列表失败").WithErr(err)
	}

	orders := make([]*order.Order, len(models))
	for i := range models {
		orders[i] = toOrderEntity(&models[i])
	}
	return orders, total, nil
}

// UpdateDetails 更新订单可修改字段
// 条件 status = pending 与更新在同一条SQL中完成,避免检查后状态被并发修改
func (r *orderRepository) UpdateDetails(ctx context.Context, id uint, patch order.Patch) error {
	updates := map[string]interface{}{}
	if patch.DeliveryAddress != nil {
		updates["delivery_address"] = *patch.DeliveryAddress
	}
	if patch.ContactName != nil {
		updates["contact_name"] = *patch.ContactName
	}
	if patch.ContactPhone != nil {
		updates["contact_phone"] = *patch.ContactPhone
	}
	if patch.CustomerNote != nil {
		updates["customer_note"] = *patch.CustomerNote
	}
	if len(updates) == 0 {
		return order.ErrEmptyPatch
	}
	updates["updated_at"] = time.Now().UTC()

	result := r.tx.DB(ctx).Model(&OrderModel{}).
		Where("id = ? AND status = ?", id, string(order.StatusPending)).
		Updates(updates)
	if result.Error != nil {
		return apperrors.ErrDatabaseError.WithMessage("更新订单失败").WithErr(result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	// 没有行被更新:订单不存在、已不是pending,或者新值与旧值相同
	status, err := r.currentStatus(ctx, id)
	if err != nil {
		return err
	}
	if status != order.StatusPending {
		return order.ErrNotEditable
	}
	return nil
}

// UpdateStatus 更新订单状态并追加状态记录
// 教学要点:
// 1. UPDATE ... WHERE id = ? AND status = <校验时的状态>,影响行数为0说明状态已被并发修改
// 2. 状态更新和历史插入在同一事务中,要么都成功,要么都回滚
func (r *orderRepository) UpdateStatus(ctx context.Context, change *order.StatusChange) error {
	return r.tx.Transaction(ctx, func(ctx context.Context) error {
		db := r.tx.DB(ctx)

		updates := map[string]interface{}{
			"status":     string(change.To),
			"updated_at": change.At,
		}
		if change.DeliveredAt != nil {
			updates["delivered_at"] = *change.DeliveredAt
		}

		result := db.Model(&OrderModel{}).
			Where("id = ? AND status = ?", change.OrderID, string(change.From)).
			Updates(updates)
		if result.Error != nil {
			return apperrors.ErrDatabaseError.WithMessage("更新订单状态失败").WithErr(result.Error)
		}
		if result.RowsAffected == 0 {
			if _, err := r.currentStatus(ctx, change.OrderID); err != nil {
				return err
			}
			return order.ErrStatusConflict
		}

		history := OrderStatusHistoryModel{
			OrderID:   change.OrderID,
			Status:    string(change.To),
			Note:      change.Note,
			ChangedBy: change.ActorID,
			CreatedAt: change.At,
		}
		if err := db.Create(&history).Error; err != nil {
			return apperrors.ErrDatabaseError.WithMessage("写入状态记录失败").WithErr(err)
		}
		return nil
	})
}

// UpdatePaymentStatus 更新支付状态(与订单状态相互独立)
func (r *orderRepository) UpdatePaymentStatus(ctx context.Context, id uint, status order.PaymentStatus) error {
	result := r.tx.DB(ctx).Model(&OrderModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"payment_status": string(status),
			"updated_at":     time.Now().UTC(),
		})
	if result.Error != nil {
		return apperrors.ErrDatabaseError.WithMessage("更新支付状态失败").WithErr(result.Error)
	}
	if result.RowsAffected == 0 {
		_, err := r.currentStatus(ctx, id)
		return err
	}
	return nil
}

// ListExpiredPending 查询超时未确认的订单ID
func (r *orderRepository) ListExpiredPending(ctx context.Context, before time.Time, limit int) ([]uint, error) {
	var ids []uint
	err := r.tx.DB(ctx).Model(&OrderModel{}).
		Where("status = ? AND created_at < ?", string(order.StatusPending), before).
		Order("id ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, apperrors.ErrDatabaseError.WithMessage("查询超时订单失败").WithErr(err)
	}
	return ids, nil
}

// statusRow 按状态分组的聚合结果
type statusRow struct {
	Status  string
	Cnt     int64
	Revenue decimal.Decimal
}

// Totals 按状态分组统计数量与金额
// 一条GROUP BY查询得到所有状态的数量,金额只取delivered分组
func (r *orderRepository) Totals(ctx context.Context, filter order.ListFilter) (order.StatusTotals, error) {
	var rows []statusRow
	err := applyFilter(r.tx.DB(ctx).Model(&OrderModel{}), filter).
		Select("status, COUNT(*) AS cnt, COALESCE(SUM(total), 0) AS revenue").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return order.StatusTotals{}, apperrors.ErrDatabaseError.WithMessage("统计订单失败").WithErr(err)
	}

	totals := order.StatusTotals{
		Counts:           make(map[order.Status]int64, len(rows)),
		DeliveredRevenue: decimal.Zero,
	}
	for _, row := range rows {
		s := order.Status(row.Status)
		totals.Counts[s] = row.Cnt
		if s == order.StatusDelivered {
			totals.DeliveredRevenue = row.Revenue
		}
	}
	return totals, nil
}

// currentStatus 查询订单当前状态,订单不存在返回ErrOrderNotFound
func (r *orderRepository) currentStatus(ctx context.Context, id uint) (order.Status, error) {
	var model OrderModel
	err := r.tx.DB(ctx).Select("id", "status").First(&model, id).Error
	if err != nil {
		if isNotFound(err) {
			return "", order.ErrOrderNotFound
		}
		return "", apperrors.ErrDatabaseError.WithMessage("查询订单失败").WithErr(err)
	}
	return order.Status(model.Status), nil
}

// applyFilter 列表与统计共用的过滤条件
func applyFilter(db *gorm.DB, f order.ListFilter) *gorm.DB {
	if f.UserID != nil {
		db = db.Where("user_id = ?", *f.UserID)
	}
	if f.Status != nil {
		db = db.Where("status = ?", string(*f.Status))
	}
	if f.DateFrom != nil {
		db = db.Where("created_at >= ?", *f.DateFrom)
	}
	if f.DateTo != nil {
		db = db.Where("created_at <= ?", *f.DateTo)
	}
	return db
}

// =========================================
// 辅助函数:模型转换
// =========================================

// toOrderModel 领域实体 → GORM模型
func toOrderModel(o *order.Order) *OrderModel {
	items := make([]OrderItemModel, len(o.Items))
	for i, item := range o.Items {
		items[i] = OrderItemModel{
			ID:             item.ID,
			OrderID:        item.OrderID,
			ProductID:      item.ProductID,
			ProductName:    item.ProductName,
			ProductPrice:   item.ProductPrice,
			Quantity:       item.Quantity,
			Modifiers:      item.Modifiers,
			ModifiersTotal: item.ModifiersTotal,
			Subtotal:       item.Subtotal,
			Note:           item.Note,
		}
	}

	history := make([]OrderStatusHistoryModel, len(o.History))
	for i, h := range o.History {
		history[i] = OrderStatusHistoryModel{
			ID:        h.ID,
			OrderID:   h.OrderID,
			Status:    string(h.Status),
			Note:      h.Note,
			ChangedBy: h.ChangedBy,
			CreatedAt: h.CreatedAt,
		}
	}

	return &OrderModel{
		ID:                o.ID,
		OrderNumber:       o.Number,
		UserID:            o.UserID,
		Status:            string(o.Status),
		DeliveryType:      string(o.DeliveryType),
		DeliveryAddress:   o.DeliveryAddress,
		DeliveryLat:       toNullDecimal(o.DeliveryLat),
		DeliveryLng:       toNullDecimal(o.DeliveryLng),
		ContactName:       o.ContactName,
		ContactPhone:      o.ContactPhone,
		ContactEmail:      o.ContactEmail,
		Subtotal:          o.Subtotal,
		DeliveryFee:       o.DeliveryFee,
		Discount:          o.Discount,
		Total:             o.Total,
		PaymentMethod:     string(o.PaymentMethod),
		PaymentStatus:     string(o.PaymentStatus),
		CustomerNote:      o.CustomerNote,
		InternalNote:      o.InternalNote,
		EstimatedDelivery: o.EstimatedDelivery,
		DeliveredAt:       o.DeliveredAt,
		Items:             items,
		History:           history,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}
}

// toOrderEntity GORM模型 → 领域实体
func toOrderEntity(model *OrderModel) *order.Order {
	items := make([]order.OrderItem, len(model.Items))
	for i, item := range model.Items {
		items[i] = order.OrderItem{
			ID:             item.ID,
			OrderID:        item.OrderID,
			ProductID:      item.ProductID,
			ProductName:    item.ProductName,
			ProductPrice:   item.ProductPrice,
			Quantity:       item.Quantity,
			Modifiers:      item.Modifiers,
			ModifiersTotal: item.ModifiersTotal,
			Subtotal:       item.Subtotal,
			Note:           item.Note,
		}
	}

	history := make([]order.StatusHistory, len(model.History))
	for i, h := range model.History {
		history[i] = order.StatusHistory{
			ID:        h.ID,
			OrderID:   h.OrderID,
			Status:    order.Status(h.Status),
			Note:      h.Note,
			ChangedBy: h.ChangedBy,
			CreatedAt: h.CreatedAt,
		}
	}

	return &order.Order{
		ID:                model.ID,
		Number:            model.OrderNumber,
		UserID:            model.UserID,
		Status:            order.Status(model.Status),
		DeliveryType:      order.DeliveryType(model.DeliveryType),
		DeliveryAddress:   model.DeliveryAddress,
		DeliveryLat:       fromNullDecimal(model.DeliveryLat),
		DeliveryLng:       fromNullDecimal(model.DeliveryLng),
		ContactName:       model.ContactName,
		ContactPhone:      model.ContactPhone,
		ContactEmail:      model.ContactEmail,
		Subtotal:          model.Subtotal,
		DeliveryFee:       model.DeliveryFee,
		Discount:          model.Discount,
		Total:             model.Total,
		PaymentMethod:     order.PaymentMethod(model.PaymentMethod),
		PaymentStatus:     order.PaymentStatus(model.PaymentStatus),
		CustomerNote:      model.CustomerNote,
		InternalNote:      model.InternalNote,
		EstimatedDelivery: model.EstimatedDelivery,
		DeliveredAt:       model.DeliveredAt,
		Items:             items,
		History:           history,
		CreatedAt:         model.CreatedAt,
		UpdatedAt:         model.UpdatedAt,
	}
}

func toNullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func fromNullDecimal(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}
