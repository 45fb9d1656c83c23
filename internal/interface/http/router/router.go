package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/xiebiao/foodorder/docs"
	"github.com/xiebiao/foodorder/internal/interface/http/handler"
	"github.com/xiebiao/foodorder/internal/interface/http/middleware"
	"github.com/xiebiao/foodorder/pkg/metrics"
	"github.com/xiebiao/foodorder/pkg/response"
)

// Options 路由配置
type Options struct {
	Mode          string // debug | release | test
	TracerName    string
	EnableSwagger bool
}

// New 创建Gin引擎并注册全部路由
// 中间件顺序:Tracing → Logger → Metrics → Recovery → 路由(Auth按分组)
func New(
	opts Options,
	log *zap.Logger,
	m *metrics.Metrics,
	auth *middleware.AuthMiddleware,
	orders *handler.OrderHandler,
	admin *handler.AdminOrderHandler,
) *gin.Engine {
	switch opts.Mode {
	case gin.ReleaseMode, gin.TestMode, gin.DebugMode:
		gin.SetMode(opts.Mode)
	}

	r := gin.New()
	r.Use(
		middleware.Tracing(opts.TracerName),
		middleware.Logger(log),
		middleware.Metrics(m),
		middleware.Recovery(),
	)

	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{"message": "pong", "status": "healthy"})
	})
	r.GET("/metrics", gin.WrapH(m.Handler()))
	if opts.EnableSwagger {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	v1 := r.Group("/api/v1")
	v1.Use(auth.RequireAuth())
	{
		o := v1.Group("/orders")
		{
			o.POST("", orders.CreateOrder)
			o.GET("/my", orders.ListMyOrders)
			o.GET("/number/:number", orders.GetOrderByNumber)
			o.GET("/:id", orders.GetOrder)
			o.PATCH("/:id", orders.UpdateOrder)
			o.POST("/:id/cancel", orders.CancelOrder)
			o.GET("/:id/history", orders.GetHistory)
		}

		a := v1.Group("/admin/orders")
		{
			a.GET("", admin.ListOrders)
			a.GET("/statistics", admin.Statistics)
			a.PATCH("/:id/status", admin.UpdateStatus)
			a.PATCH("/:id/payment", admin.UpdatePayment)
		}
	}

	return r
}
