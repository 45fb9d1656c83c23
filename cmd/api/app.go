package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	apporder "github.com/xiebiao/foodorder/internal/application/order"
	"github.com/xiebiao/foodorder/internal/domain/identity"
	"github.com/xiebiao/foodorder/internal/domain/order"
	"github.com/xiebiao/foodorder/internal/domain/pricing"
	"github.com/xiebiao/foodorder/internal/infrastructure/catalog"
	"github.com/xiebiao/foodorder/internal/infrastructure/config"
	identityinfra "github.com/xiebiao/foodorder/internal/infrastructure/identity"
	"github.com/xiebiao/foodorder/internal/infrastructure/messaging"
	"github.com/xiebiao/foodorder/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/foodorder/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/foodorder/internal/infrastructure/scheduler"
	grpcserver "github.com/xiebiao/foodorder/internal/interface/grpc"
	"github.com/xiebiao/foodorder/internal/interface/http/handler"
	"github.com/xiebiao/foodorder/internal/interface/http/middleware"
	"github.com/xiebiao/foodorder/internal/interface/http/router"
	"github.com/xiebiao/foodorder/pkg/jwt"
	"github.com/xiebiao/foodorder/pkg/logger"
	"github.com/xiebiao/foodorder/pkg/metrics"
	"github.com/xiebiao/foodorder/pkg/mq"
	"github.com/xiebiao/foodorder/pkg/tracing"
)

const exchangeType = "topic"

// App 进程内所有长期运行的组件
type App struct {
	cfg      *config.Config
	log      *zap.Logger
	http     *http.Server
	health   *grpcserver.HealthServer
	expire   *scheduler.ExpireJob
	payments *PaymentConsumer
}

// Run 启动全部组件,阻塞直到ctx取消或任一组件失败
// 教学要点:
// 1. errgroup中任一goroutine返回错误,gctx随之取消,其他组件一起退出
// 2. HTTP服务在ctx取消后用独立的超时context优雅关闭
func (a *App) Run(ctx context.Context) error {
	if a.expire != nil {
		if err := a.expire.Start(); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.log.Info("HTTP服务启动", zap.String("addr", a.http.Addr))
		if err := a.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP服务异常退出: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		return a.http.Shutdown(shutdownCtx)
	})

	if a.health != nil {
		g.Go(func() error {
			return a.health.Serve(gctx, a.cfg.GRPC.Port)
		})
	}

	if a.expire != nil {
		g.Go(func() error {
			<-gctx.Done()
			stopCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
			defer cancel()
			return a.expire.Stop(stopCtx)
		})
	}

	if a.payments != nil {
		g.Go(func() error {
			return a.payments.consumer.Consume(gctx, a.payments.handler.Handle)
		})
	}

	return g.Wait()
}

// PaymentConsumer 支付事件消费者与处理器
type PaymentConsumer struct {
	consumer *mq.Consumer
	handler  *messaging.PaymentHandler
}

// TracerShutdown 链路追踪的关闭函数
type TracerShutdown func(context.Context) error

// ========================================
// Providers
// ========================================
// 教学说明:
// 带条件的组装(身份解析方式、是否启用MQ)放在自定义Provider中,
// Wire只负责按依赖顺序调用并串联cleanup

func provideLogger(cfg *config.Config) (*zap.Logger, func(), error) {
	log, err := logger.New(logger.Options{
		Level:        cfg.Log.Level,
		Format:       cfg.Log.Format,
		Output:       cfg.Log.Output,
		EnableCaller: cfg.Log.EnableCaller,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("初始化日志失败: %w", err)
	}
	// 没有请求级logger的位置(logger.FromContext兜底)也输出到同一目标
	restore := zap.ReplaceGlobals(log)
	return log, func() {
		_ = log.Sync()
		restore()
	}, nil
}

func provideTracing(ctx context.Context, cfg *config.Config, log *zap.Logger) (TracerShutdown, func(), error) {
	if !cfg.Tracing.Enabled {
		noop := func(context.Context) error { return nil }
		return noop, func() {}, nil
	}

	shutdown, err := tracing.Init(ctx, tracing.Options{
		ServiceName: cfg.Tracing.ServiceName,
		Endpoint:    cfg.Tracing.Endpoint,
		SampleRatio: cfg.Tracing.SampleRatio,
		Insecure:    true,
	})
	if err != nil {
		return nil, nil, err
	}
	log.Info("链路追踪已启用", zap.String("endpoint", cfg.Tracing.Endpoint))

	cleanup := func() {
		if err := shutdown(context.Background()); err != nil {
			log.Warn("关闭链路追踪失败", zap.Error(err))
		}
	}
	return shutdown, cleanup, nil
}

func provideDB(ctx context.Context, cfg *config.Config, log *zap.Logger) (*gorm.DB, func(), error) {
	db, err := mysql.NewDB(ctx, cfg.Database, cfg.Server.Mode, log)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return db, cleanup, nil
}

// provideIdentityResolver 按identity.mode选择身份解析方式
// jwt模式才需要Redis(Token黑名单)
func provideIdentityResolver(ctx context.Context, cfg *config.Config, log *zap.Logger) (identity.Resolver, func(), error) {
	if cfg.Identity.Mode == config.IdentityModeRemote {
		resolver := identityinfra.NewRemoteResolver(cfg.Identity.AuthURL, cfg.Identity.Timeout, nil, log)
		return resolver, func() {}, nil
	}

	client, err := redis.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		return nil, nil, err
	}
	manager := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.Issuer, 0)
	resolver := identityinfra.NewJWTResolver(manager, redis.NewTokenBlacklist(client), log)
	return resolver, func() { _ = client.Close() }, nil
}

func provideCatalog(cfg *config.Config, m *metrics.Metrics, log *zap.Logger) pricing.Resolver {
	return catalog.NewClient(catalog.Options{
		BaseURL:            cfg.Catalog.BaseURL,
		Timeout:            cfg.Catalog.Timeout,
		BreakerMaxFailures: cfg.Catalog.BreakerMaxFailures,
		BreakerOpenTimeout: cfg.Catalog.BreakerOpenTimeout,
		BreakerInterval:    cfg.Catalog.BreakerInterval,
	}, nil, m, log)
}

func providePricingEngine(cfg *config.Config) (*pricing.Engine, error) {
	money, err := cfg.Order.Money()
	if err != nil {
		return nil, err
	}
	return pricing.NewEngine(pricing.Policy{
		MinOrderAmount:        money.MinOrderAmount,
		DeliveryFee:           money.DeliveryFee,
		FreeDeliveryThreshold: money.FreeDeliveryThreshold,
	}), nil
}

func provideNumberGenerator(cfg *config.Config) *order.NumberGenerator {
	return order.NewNumberGenerator(cfg.Order.NumberPrefix)
}

// provideEventPublisher MQ未启用时使用NoopPublisher
func provideEventPublisher(cfg *config.Config, m *metrics.Metrics, log *zap.Logger) (apporder.EventPublisher, func(), error) {
	if !cfg.MQ.Enabled {
		return messaging.NoopPublisher{}, func() {}, nil
	}

	publisher, err := mq.NewPublisher(cfg.MQ.URL, cfg.MQ.Exchange, exchangeType, log)
	if err != nil {
		return nil, nil, err
	}
	return messaging.NewEventPublisher(publisher, m, log), func() { _ = publisher.Close() }, nil
}

func provideOrderService(
	repo order.Repository,
	resolver pricing.Resolver,
	engine *pricing.Engine,
	numbers *order.NumberGenerator,
	events apporder.EventPublisher,
	m *metrics.Metrics,
	log *zap.Logger,
	cfg *config.Config,
) *apporder.Service {
	return apporder.NewService(repo, resolver, engine, numbers, events, m, log, apporder.Config{
		NumberRetryAttempts: cfg.Order.NumberRetryAttempts,
		EstimatedDelivery:   cfg.Order.EstimatedDelivery(),
		PendingTimeout:      cfg.Order.PendingTimeout,
		ExpireBatchSize:     100,
	})
}

func provideRouter(
	cfg *config.Config,
	log *zap.Logger,
	m *metrics.Metrics,
	auth *middleware.AuthMiddleware,
	orders *handler.OrderHandler,
	admin *handler.AdminOrderHandler,
) *gin.Engine {
	return router.New(router.Options{
		Mode:          cfg.Server.Mode,
		TracerName:    cfg.Tracing.ServiceName,
		EnableSwagger: cfg.Server.Mode != gin.ReleaseMode,
	}, log, m, auth, orders, admin)
}

func provideHTTPServer(cfg *config.Config, engine *gin.Engine) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}

// provideHealthServer grpc.port为0时不启动
func provideHealthServer(cfg *config.Config, db *gorm.DB, log *zap.Logger) *grpcserver.HealthServer {
	if cfg.GRPC.Port == 0 {
		return nil
	}
	checks := map[string]grpcserver.Checker{
		"mysql": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	return grpcserver.NewHealthServer(checks, 10*time.Second, log)
}

// provideExpireJob pending_timeout为0时不启动
func provideExpireJob(cfg *config.Config, orders *apporder.Service, log *zap.Logger) *scheduler.ExpireJob {
	if cfg.Order.PendingTimeout <= 0 {
		return nil
	}
	return scheduler.NewExpireJob(orders, cfg.Order.ExpireCron, time.Minute, log)
}

func providePaymentConsumer(cfg *config.Config, orders *apporder.Service, log *zap.Logger) (*PaymentConsumer, func(), error) {
	if !cfg.MQ.Enabled {
		return nil, func() {}, nil
	}

	consumer, err := mq.NewConsumer(cfg.MQ.URL, cfg.MQ.Exchange, exchangeType, cfg.MQ.PaymentQueue, messaging.PaymentRoutingKeys, log)
	if err != nil {
		return nil, nil, err
	}
	pc := &PaymentConsumer{
		consumer: consumer,
		handler:  messaging.NewPaymentHandler(orders, log),
	}
	return pc, func() { _ = consumer.Close() }, nil
}

func newApp(
	cfg *config.Config,
	log *zap.Logger,
	_ TracerShutdown,
	server *http.Server,
	health *grpcserver.HealthServer,
	expire *scheduler.ExpireJob,
	payments *PaymentConsumer,
) *App {
	return &App{
		cfg:      cfg,
		log:      log,
		http:     server,
		health:   health,
		expire:   expire,
		payments: payments,
	}
}
