package grpc

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName 健康检查中的服务名
const ServiceName = "foodorder.OrderService"

// Checker 依赖检查(如数据库Ping),返回错误表示不可用
type Checker func(ctx context.Context) error

// HealthServer gRPC健康检查服务
// 定期执行Checker更新状态,供Kubernetes探针和grpcurl使用
type HealthServer struct {
	server   *grpc.Server
	health   *health.Server
	checks   map[string]Checker
	interval time.Duration
	log      *zap.Logger
}

// NewHealthServer 创建健康检查服务并启用反射
func NewHealthServer(checks map[string]Checker, interval time.Duration, log *zap.Logger) *HealthServer {
	srv := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	// 启用反射(便于grpcurl调试)
	reflection.Register(srv)

	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &HealthServer{
		server:   srv,
		health:   hs,
		checks:   checks,
		interval: interval,
		log:      log,
	}
}

// Serve 在指定端口监听,阻塞直到ctx取消
func (s *HealthServer) Serve(ctx context.Context, port int) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("gRPC监听失败: %w", err)
	}
	return s.ServeListener(ctx, lis)
}

// ServeListener 使用已有的Listener(测试使用)
func (s *HealthServer) ServeListener(ctx context.Context, lis net.Listener) error {
	s.refresh(ctx)
	go s.watch(ctx)

	go func() {
		<-ctx.Done()
		s.health.Shutdown()
		s.server.GracefulStop()
	}()

	s.log.Info("gRPC健康检查服务启动", zap.String("addr", lis.Addr().String()))
	if err := s.server.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return err
	}
	return nil
}

func (s *HealthServer) watch(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refresh(ctx)
		}
	}
}

// refresh 执行全部检查,任一失败则整体NOT_SERVING
func (s *HealthServer) refresh(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	for name, check := range s.checks {
		checkCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := check(checkCtx)
		cancel()
		if err != nil {
			status = healthpb.HealthCheckResponse_NOT_SERVING
			s.log.Warn("依赖检查失败", zap.String("dependency", name), zap.Error(err))
		}
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}
