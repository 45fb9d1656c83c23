//go:build wireinject
// +build wireinject

// Wire依赖注入配置文件
//
// 教学说明:
// 1. Wire在编译期生成依赖创建代码(wire_gen.go),零运行时反射
// 2. 修改Provider后运行 `wire gen ./cmd/api` 重新生成
// 3. Provider返回的cleanup函数由Wire按创建的逆序串联

package main

import (
	"context"

	"github.com/google/wire"

	apporder "github.com/xiebiao/foodorder/internal/application/order"
	"github.com/xiebiao/foodorder/internal/infrastructure/config"
	"github.com/xiebiao/foodorder/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/foodorder/internal/interface/http/handler"
	"github.com/xiebiao/foodorder/internal/interface/http/middleware"
	"github.com/xiebiao/foodorder/pkg/metrics"
)

// infrastructureSet 日志、追踪、指标、数据库、身份解析
var infrastructureSet = wire.NewSet(
	provideLogger,
	provideTracing,
	metrics.NewDefault,
	provideDB,
	provideIdentityResolver,
)

// repositorySet 仓储层
var repositorySet = wire.NewSet(
	mysql.NewOrderRepository,
)

// domainSet 计价引擎、订单号生成器、商品服务客户端
var domainSet = wire.NewSet(
	provideCatalog,
	providePricingEngine,
	provideNumberGenerator,
)

// applicationSet 订单服务及事件发布
var applicationSet = wire.NewSet(
	provideEventPublisher,
	provideOrderService,
)

// interfaceSet HTTP、gRPC健康检查、定时任务、消息消费
var interfaceSet = wire.NewSet(
	wire.Bind(new(handler.OrderService), new(*apporder.Service)),
	middleware.NewAuthMiddleware,
	handler.NewOrderHandler,
	handler.NewAdminOrderHandler,
	provideRouter,
	provideHTTPServer,
	provideHealthServer,
	provideExpireJob,
	providePaymentConsumer,
)

// InitializeApp 组装整个应用
func InitializeApp(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	wire.Build(
		infrastructureSet,
		repositorySet,
		domainSet,
		applicationSet,
		interfaceSet,
		newApp,
	)
	return nil, nil, nil
}
