package mq

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// 需要本地RabbitMQ，未设置 FOODORDER_TEST_AMQP_URL 时跳过
func amqpURL(t *testing.T) string {
	t.Helper()
	url := os.Getenv("FOODORDER_TEST_AMQP_URL")
	if url == "" || testing.Short() {
		t.Skip("未配置 FOODORDER_TEST_AMQP_URL，跳过RabbitMQ集成测试")
	}
	return url
}

type testEvent struct {
	OrderID uint   `json:"order_id"`
	Status  string `json:"status"`
}

func TestPubSub_RoundTrip(t *testing.T) {
	url := amqpURL(t)
	log := zap.NewNop()
	exchange := "foodorder.test.events"

	consumer, err := NewConsumer(url, exchange, "topic", "foodorder.test.queue", []string{"order.*"}, log)
	require.NoError(t, err)
	defer consumer.Close()

	publisher, err := NewPublisher(url, exchange, "topic", log)
	require.NoError(t, err)
	defer publisher.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, publisher.Publish(ctx, "order.status_changed", testEvent{OrderID: 1, Status: "confirmed"}))

	received := make(chan Delivery, 1)
	go func() {
		_ = consumer.Consume(ctx, func(_ context.Context, d Delivery) error {
			received <- d
			cancel()
			return nil
		})
	}()

	select {
	case d := <-received:
		var evt testEvent
		require.NoError(t, json.Unmarshal(d.Body, &evt))
		assert.Equal(t, "order.status_changed", d.RoutingKey)
		assert.NotEmpty(t, d.MessageID)
		assert.Equal(t, testEvent{OrderID: 1, Status: "confirmed"}, evt)
	case <-ctx.Done():
		t.Fatal("超时未收到消息")
	}
}
