package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"

	"github.com/xiebiao/foodorder/internal/domain/pricing"
	"github.com/xiebiao/foodorder/pkg/circuitbreaker"
	apperrors "github.com/xiebiao/foodorder/pkg/errors"
	"github.com/xiebiao/foodorder/pkg/metrics"
)

const productsByIDsPath = "/internal/products/by-ids"

// Options 商品服务客户端配置
type Options struct {
	BaseURL string
	Timeout time.Duration

	BreakerMaxFailures uint32
	BreakerOpenTimeout time.Duration
	BreakerInterval    time.Duration
}

// Client 商品服务客户端(pricing.Resolver实现)
//
// 教学要点:
// 1. 每次请求都带超时,防止下游hang住拖垮下单链路
// 2. 熔断器打开后快速失败,不再请求商品服务
// 3. 不做缓存,下单必须使用实时价格
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	breaker *circuitbreaker.CircuitBreaker
	metrics *metrics.Metrics
	log     *zap.Logger
}

// NewClient 创建商品服务客户端
// httpClient为nil时使用http.DefaultClient
func NewClient(opts Options, httpClient *http.Client, m *metrics.Metrics, log *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	c := &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		timeout: opts.Timeout,
		http:    httpClient,
		metrics: m,
		log:     log,
	}

	maxFailures := opts.BreakerMaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	c.breaker = circuitbreaker.New(circuitbreaker.Settings{
		Name:     "catalog",
		Interval: opts.BreakerInterval,
		Timeout:  opts.BreakerOpenTimeout,
		ReadyToTrip: func(counts circuitbreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		// 调用方主动取消不算商品服务故障
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to circuitbreaker.State) {
			log.Warn("熔断器状态变化",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			if m != nil {
				m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			}
		},
	})

	return c
}

// product 商品服务返回的单个商品
type product struct {
	ID     uint            `json:"id"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
	Status string          `json:"status"`
}

// envelope 商品服务统一响应
type envelope struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Data    []product `json:"data"`
}

// Resolve 批量查询商品
// 超时、网络错误、非2xx响应、success=false 一律返回UpstreamUnavailable
func (c *Client) Resolve(ctx context.Context, ids []uint) (map[uint]pricing.Product, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return map[uint]pricing.Product{}, nil
	}

	start := time.Now()
	var products []product
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		products, err = c.fetch(ctx, ids)
		return err
	})
	c.observe(start, err)

	if err != nil {
		c.log.Warn("查询商品服务失败",
			zap.Uints("product_ids", ids),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return nil, apperrors.ErrUpstreamUnavailable.WithMessage("商品服务暂不可用，请稍后重试").WithErr(err)
	}

	out := make(map[uint]pricing.Product, len(products))
	for _, p := range products {
		out[p.ID] = pricing.Product{
			ID:     p.ID,
			Name:   p.Name,
			Price:  p.Price,
			Status: p.Status,
		}
	}
	return out, nil
}

func (c *Client) fetch(ctx context.Context, ids []uint) ([]product, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("序列化商品ID失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+productsByIDsPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("构造请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	// 透传trace上下文,商品服务的Span挂在同一条链路下
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求商品服务失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("商品服务返回状态码 %d", resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("解析商品服务响应失败: %w", err)
	}
	if !env.Success {
		return nil, fmt.Errorf("商品服务返回失败: %s", env.Message)
	}
	return env.Data, nil
}

func (c *Client) observe(start time.Time, err error) {
	if c.metrics == nil {
		return
	}
	result := "success"
	switch {
	case errors.Is(err, circuitbreaker.ErrOpenState), errors.Is(err, circuitbreaker.ErrTooManyRequests):
		result = "rejected"
	case errors.Is(err, context.DeadlineExceeded):
		result = "timeout"
	case err != nil:
		result = "error"
	}
	c.metrics.CatalogRequestDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
}

// BreakerState 熔断器当前状态
func (c *Client) BreakerState() circuitbreaker.State {
	return c.breaker.State()
}

func dedupe(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
