package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Expirer 取消超时未确认的订单
type Expirer interface {
	ExpirePending(ctx context.Context) (int, error)
}

// ExpireJob 超时订单定时任务
// 上一轮未结束时跳过本轮,避免同一批订单被重复处理
type ExpireJob struct {
	expirer Expirer
	spec    string
	timeout time.Duration
	cron    *cron.Cron
	log     *zap.Logger
}

// NewExpireJob 创建定时任务,spec支持标准5段表达式和@every描述符
func NewExpireJob(expirer Expirer, spec string, timeout time.Duration, log *zap.Logger) *ExpireJob {
	log = log.With(zap.String("component", "expire_job"))
	cl := cronLogger{log: log}
	return &ExpireJob{
		expirer: expirer,
		spec:    spec,
		timeout: timeout,
		cron:    cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		log:     log,
	}
}

// Start 注册并启动任务
func (j *ExpireJob) Start() error {
	if _, err := j.cron.AddFunc(j.spec, j.run); err != nil {
		return fmt.Errorf("注册定时任务失败(%s): %w", j.spec, err)
	}
	j.cron.Start()
	j.log.Info("超时订单任务已启动", zap.String("spec", j.spec))
	return nil
}

// Stop 停止调度并等待正在执行的任务结束(或ctx超时)
func (j *ExpireJob) Stop(ctx context.Context) error {
	done := j.cron.Stop()
	select {
	case <-done.Done():
		j.log.Info("超时订单任务已停止")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (j *ExpireJob) run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	n, err := j.expirer.ExpirePending(ctx)
	if err != nil {
		j.log.Error("超时订单任务执行失败", zap.Int("cancelled", n), zap.Error(err))
		return
	}
	if n > 0 {
		j.log.Info("超时订单任务执行完成", zap.Int("cancelled", n))
	}
}

// cronLogger 把cron内部日志转到zap
type cronLogger struct {
	log *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
