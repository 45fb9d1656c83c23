package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xiebiao/foodorder/pkg/logger"
	"github.com/xiebiao/foodorder/pkg/tracing"
)

const (
	requestIDHeader = "X-Request-ID"
	slowRequest     = 3 * time.Second
)

// Logger 请求日志中间件
// 教学要点:
// 1. 生成(或透传)请求ID,写回响应头
// 2. 派生带request_id/trace_id的logger放入请求Context,下游统一用logger.FromContext
// 3. 每个请求一行结构化日志,不记录请求体和Token
func Logger(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		ctx := c.Request.Context()
		fields := []zap.Field{zap.String("request_id", requestID)}
		if traceID := tracing.ExtractTraceID(ctx); traceID != "" {
			fields = append(fields, zap.String("trace_id", traceID))
		}
		c.Request = c.Request.WithContext(logger.WithContext(ctx, base.With(fields...)))

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		// 认证中间件可能已经补充了user_id,这里取最新的logger
		log := logger.FromContextOr(c.Request.Context(), base)
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		entry := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			entry = append(entry, zap.String("errors", c.Errors.String()))
		}

		switch {
		case c.Writer.Status() >= 500:
			log.Error("http request", entry...)
		case latency > slowRequest:
			log.Warn("slow http request", entry...)
		default:
			log.Info("http request", entry...)
		}
	}
}
