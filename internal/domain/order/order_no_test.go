package order

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var numberPattern = regexp.MustCompile(`^ORD-\d{14}-[A-Z0-9]{4}$`)

func TestNumberGenerator_Deterministic(t *testing.T) {
	// 北京时间18:30对应UTC 10:30
	cst := time.FixedZone("CST", 8*3600)
	clock := func() time.Time { return time.Date(2024, 1, 15, 18, 30, 0, 0, cst) }

	seq := []int{0, 25, 26, 35}
	i := 0
	random := func(n int) int {
		v := seq[i%len(seq)]
		i++
		return v
	}

	g := NewNumberGenerator("", WithClock(clock), WithRandom(random))
	assert.Equal(t, "ORD-20240115103000-AZ09", g.Next())
}

func TestNumberGenerator_Format(t *testing.T) {
	g := NewNumberGenerator("ORD")
	for i := 0; i < 200; i++ {
		assert.Regexp(t, numberPattern, g.Next())
	}
}

func TestNumberGenerator_CustomPrefix(t *testing.T) {
	g := NewNumberGenerator("FD")
	assert.Regexp(t, `^FD-\d{14}-[A-Z0-9]{4}$`, g.Next())
}
