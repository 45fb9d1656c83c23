package order

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xiebiao/foodorder/internal/domain/identity"
	"github.com/xiebiao/foodorder/internal/domain/order"
	"github.com/xiebiao/foodorder/internal/domain/pricing"
	"github.com/xiebiao/foodorder/pkg/logger"
	"github.com/xiebiao/foodorder/pkg/metrics"
	"github.com/xiebiao/foodorder/pkg/tracing"
)

const tracerName = "order-service"

// EventPublisher 订单事件发布
// 事件在数据库提交之后发布,发布失败只记录日志,不影响接口结果
type EventPublisher interface {
	OrderCreated(ctx context.Context, o *order.Order) error
	StatusChanged(ctx context.Context, o *order.Order, change *order.StatusChange) error
	PaymentUpdated(ctx context.Context, o *order.Order) error
}

// Config 订单服务配置
type Config struct {
	NumberRetryAttempts int           // 订单号冲突时的最大尝试次数
	EstimatedDelivery   time.Duration // 预计送达时长
	PendingTimeout      time.Duration // 待确认订单超时时长,0表示不自动取消
	ExpireBatchSize     int           // 每次处理的超时订单数量
}

// Service 订单服务
// 教学要点:
// 1. 只负责编排:参数校验、权限检查、调用领域对象和仓储
// 2. 计价规则在pricing.Engine,状态规则在order包的状态表,这里不重复实现
// 3. 所有依赖通过构造函数注入,不使用全局变量
type Service struct {
	repo     order.Repository
	resolver pricing.Resolver
	engine   *pricing.Engine
	numbers  *order.NumberGenerator
	events   EventPublisher
	metrics  *metrics.Metrics
	log      *zap.Logger
	cfg      Config
	now      func() time.Time
}

// Option 服务选项
type Option func(*Service)

// WithClock 注入时钟(测试使用)
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService 创建订单服务
func NewService(
	repo order.Repository,
	resolver pricing.Resolver,
	engine *pricing.Engine,
	numbers *order.NumberGenerator,
	events EventPublisher,
	m *metrics.Metrics,
	log *zap.Logger,
	cfg Config,
	opts ...Option,
) *Service {
	if cfg.NumberRetryAttempts < 1 {
		cfg.NumberRetryAttempts = 1
	}
	if cfg.ExpireBatchSize < 1 {
		cfg.ExpireBatchSize = 100
	}

	s := &Service{
		repo:     repo,
		resolver: resolver,
		engine:   engine,
		numbers:  numbers,
		events:   events,
		metrics:  m,
		log:      log,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// logger 优先使用请求级logger(带request_id/trace_id)
func (s *Service) logger(ctx context.Context) *zap.Logger {
	return logger.FromContextOr(ctx, s.log)
}

func (s *Service) startSpan(ctx context.Context, name string, actor identity.Identity, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs,
		attribute.Int64("actor.id", int64(actor.UserID)),
		attribute.String("actor.role", string(actor.Role)),
	)
	return tracing.StartSpan(ctx, tracerName, name, attrs...)
}

// loadForActor 读取订单并检查访问权限
// 运营人员可以访问任意订单,其他人只能访问自己的订单
func (s *Service) loadForActor(ctx context.Context, actor identity.Identity, id uint) (*order.Order, error) {
	o, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Role.IsStaff() && !o.IsOwnedBy(actor.UserID) {
		return nil, order.ErrNotOwner
	}
	return o, nil
}

// requireStaff 运营人员权限检查
func requireStaff(actor identity.Identity) error {
	if !actor.Role.IsStaff() {
		return order.ErrStaffOnly
	}
	return nil
}
