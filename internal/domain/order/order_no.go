package order

import (
	"math/rand/v2"
	"strings"
	"time"
)

const (
	// DefaultNumberPrefix 默认订单号前缀
	DefaultNumberPrefix = "ORD"

	numberAlphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	numberSuffixLen  = 4
	numberTimeLayout = "20060102150405"
)

// NumberGenerator 订单号生成器
// 格式: {前缀}-{UTC时间 YYYYMMDDHHMMSS}-{4位大写字母数字}
// 示例: ORD-20240115103000-A7K2
//
// 教学要点:
// 1. 时间有序,便于按号排查
// 2. 同一秒内靠随机后缀区分,冲突由数据库唯一索引兜底,调用方负责重试
// 3. 时钟与随机源可注入,测试可得到确定结果
type NumberGenerator struct {
	prefix string
	now    func() time.Time
	intn   func(n int) int
}

// NumberOption 生成器选项
type NumberOption func(*NumberGenerator)

// WithClock 注入时钟
func WithClock(now func() time.Time) NumberOption {
	return func(g *NumberGenerator) { g.now = now }
}

// WithRandom 注入随机源,intn返回[0,n)
func WithRandom(intn func(n int) int) NumberOption {
	return func(g *NumberGenerator) { g.intn = intn }
}

// NewNumberGenerator 创建生成器,prefix为空时使用ORD
func NewNumberGenerator(prefix string, opts ...NumberOption) *NumberGenerator {
	if prefix == "" {
		prefix = DefaultNumberPrefix
	}
	g := &NumberGenerator{
		prefix: prefix,
		now:    time.Now,
		intn:   rand.IntN,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Next 生成下一个订单号
func (g *NumberGenerator) Next() string {
	var b strings.Builder
	b.Grow(len(g.prefix) + 2 + len(numberTimeLayout) + numberSuffixLen)

	b.WriteString(g.prefix)
	b.WriteByte('-')
	b.WriteString(g.now().UTC().Format(numberTimeLayout))
	b.WriteByte('-')
	for i := 0; i < numberSuffixLen; i++ {
		b.WriteByte(numberAlphabet[g.intn(len(numberAlphabet))])
	}
	return b.String()
}
