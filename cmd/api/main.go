package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/xiebiao/foodorder/internal/infrastructure/config"
)

// @title           外卖订单服务 API
// @version         1.0
// @description     订单创建、查询、修改、状态流转与统计
// @BasePath        /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

// main 主程序入口
// 说明:依赖由Wire生成的InitializeApp组装,收到SIGINT/SIGTERM后优雅关闭
func main() {
	if err := run(); err != nil {
		log.Fatalf("服务异常退出: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := InitializeApp(ctx, cfg)
	if err != nil {
		return fmt.Errorf("初始化应用失败: %w", err)
	}
	defer cleanup()

	app.log.Info("订单服务启动",
		zap.Int("http_port", cfg.Server.Port),
		zap.Int("grpc_port", cfg.GRPC.Port),
		zap.String("mode", cfg.Server.Mode),
		zap.String("identity_mode", cfg.Identity.Mode),
		zap.Bool("mq_enabled", cfg.MQ.Enabled),
	)

	if err := app.Run(ctx); err != nil {
		return err
	}
	app.log.Info("服务已关闭")
	return nil
}
