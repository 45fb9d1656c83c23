package mysql

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/xiebiao/foodorder/internal/domain/order"
	"github.com/xiebiao/foodorder/internal/infrastructure/config"
	"github.com/xiebiao/foodorder/pkg/logger"
)

// NewDB 创建数据库连接
// 设计说明：
// 1. 使用GORM v2作为ORM框架，TranslateError把唯一索引冲突转换为gorm.ErrDuplicatedKey
// 2. 配置连接池参数（MaxOpenConns、MaxIdleConns、ConnMaxLifetime）
// 3. SQL日志输出到zap，开发环境打印全部SQL，其他环境只记录慢查询
// 4. 连接的关闭由进程入口负责
func NewDB(ctx context.Context, cfg config.DatabaseConfig, mode string, log *zap.Logger) (*gorm.DB, error) {
	logLevel := gormlogger.Warn
	if mode == "debug" {
		logLevel = gormlogger.Info
	}

	db, err := Open(mysql.Open(cfg.DSN()), logLevel, log)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取SQL DB失败: %w", err)
	}

	// 最大打开连接数（建议：CPU核数 * 2 + 磁盘数量）
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	// 最大空闲连接数（建议：MaxOpenConns的1/4到1/2）
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	// 连接最大存活时间（防止数据库主动断开连接）
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("数据库连接测试失败: %w", err)
	}

	log.Info("数据库连接成功", zap.String("host", cfg.Host), zap.String("db", cfg.DBName))

	// 注意：生产环境应使用版本化的迁移脚本，不要依赖AutoMigrate
	if cfg.AutoMigrate {
		if err := AutoMigrate(db); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("数据库迁移失败: %w", err)
		}
	}

	return db, nil
}

// Open 按统一的GORM配置打开连接（测试直接使用）
func Open(dialector gorm.Dialector, level gormlogger.LogLevel, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.New(logger.NewPrintfAdapter(log), gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}
	return db, nil
}

// AutoMigrate 自动迁移表结构
// 学习要点：
// 1. AutoMigrate只会创建表、添加字段，不会删除或修改现有字段
// 2. 子表声明了 ON DELETE CASCADE 外键，删除订单时明细和状态记录一并删除
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&OrderModel{},
		&OrderItemModel{},
		&OrderStatusHistoryModel{},
	)
}

// OrderModel GORM订单模型
// 设计说明：
// 1. 这是infrastructure层的数据模型，包含GORM tag
// 2. domain/order/entity.go是领域实体，不依赖GORM
// 3. 金额使用decimal(10,2)存储，经纬度使用decimal(10,8)/decimal(11,8)
// 4. 复合索引覆盖"我的订单(按状态)"和"后台按状态+时间"两类列表查询
type OrderModel struct {
	ID          uint   `gorm:"primaryKey"`
	OrderNumber string `gorm:"uniqueIndex;size:32;not null;comment:订单号"`
	UserID      uint   `gorm:"not null;index:idx_orders_user_status,priority:1;comment:下单用户ID"`
	Status      string `gorm:"size:20;not null;default:pending;index:idx_orders_user_status,priority:2;index:idx_orders_status_created,priority:1;comment:订单状态"`

	DeliveryType    string              `gorm:"size:20;not null;default:delivery;comment:配送方式"`
	DeliveryAddress string              `gorm:"type:text;comment:配送地址"`
	DeliveryLat     decimal.NullDecimal `gorm:"type:decimal(10,8);comment:纬度"`
	DeliveryLng     decimal.NullDecimal `gorm:"type:decimal(11,8);comment:经度"`

	ContactName  string `gorm:"size:200;not null;comment:联系人"`
	ContactPhone string `gorm:"size:20;not null;comment:联系电话"`
	ContactEmail string `gorm:"size:255;comment:联系邮箱"`

	Subtotal    decimal.Decimal `gorm:"type:decimal(10,2);not null;comment:商品小计"`
	DeliveryFee decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0;comment:配送费"`
	Discount    decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0;comment:优惠金额"`
	Total       decimal.Decimal `gorm:"type:decimal(10,2);not null;comment:实付金额"`

	PaymentMethod string `gorm:"size:20;not null;default:cash;comment:支付方式"`
	PaymentStatus string `gorm:"size:20;not null;default:pending;comment:支付状态"`

	CustomerNote string `gorm:"type:text;comment:顾客备注"`
	InternalNote string `gorm:"type:text;comment:内部备注"`

	EstimatedDelivery *time.Time `gorm:"comment:预计送达时间"`
	DeliveredAt       *time.Time `gorm:"comment:送达时间"`

	Items   []OrderItemModel          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	History []OrderStatusHistoryModel `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"index:idx_orders_status_created,priority:2;index:idx_orders_created_at;comment:创建时间"`
	UpdatedAt time.Time `gorm:"comment:更新时间"`
}

// TableName 指定表名
func (OrderModel) TableName() string {
	return "orders"
}

// OrderItemModel GORM订单明细模型
// 教学要点:
// 1. 记录下单时的商品名称与价格快照
// 2. 加料选项以JSON存储，随明细一起读取
type OrderItemModel struct {
	ID             uint             `gorm:"primaryKey"`
	OrderID        uint             `gorm:"index;not null;comment:订单ID"`
	ProductID      uint             `gorm:"index;not null;comment:商品ID"`
	ProductName    string           `gorm:"size:200;not null;comment:商品名称快照"`
	ProductPrice   decimal.Decimal  `gorm:"type:decimal(10,2);not null;comment:下单时单价"`
	Quantity       int              `gorm:"not null;comment:数量"`
	Modifiers      []order.Modifier `gorm:"serializer:json;type:json;comment:加料选项"`
	ModifiersTotal decimal.Decimal  `gorm:"type:decimal(10,2);not null;default:0;comment:加料金额"`
	Subtotal       decimal.Decimal  `gorm:"type:decimal(10,2);not null;comment:明细小计"`
	Note           string           `gorm:"type:text;comment:备注"`
	CreatedAt      time.Time
}

// TableName 指定表名
func (OrderItemModel) TableName() string {
	return "order_items"
}

// OrderStatusHistoryModel 订单状态变更记录
// 只插入，不更新、不删除
type OrderStatusHistoryModel struct {
	ID        uint      `gorm:"primaryKey"`
	OrderID   uint      `gorm:"index;not null;comment:订单ID"`
	Status    string    `gorm:"size:20;not null;comment:变更后状态"`
	Note      string    `gorm:"type:text;comment:备注"`
	ChangedBy uint      `gorm:"not null;default:0;comment:操作人ID(0为系统)"`
	CreatedAt time.Time `gorm:"comment:变更时间"`
}

// TableName 指定表名
func (OrderStatusHistoryModel) TableName() string {
	return "order_status_history"
}
