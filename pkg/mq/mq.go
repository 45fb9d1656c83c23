package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher RabbitMQ消息发布者
// 说明：amqp Channel不是并发安全的，发布时加锁
type Publisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	log      *zap.Logger
	mu       sync.Mutex
}

// NewPublisher 连接RabbitMQ并声明Exchange
func NewPublisher(url, exchange, exchangeType string, log *zap.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("连接RabbitMQ失败: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("创建Channel失败: %w", err)
	}

	if err := declareExchange(channel, exchange, exchangeType); err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}

	log.Info("消息发布者已创建", zap.String("exchange", exchange), zap.String("type", exchangeType))

	return &Publisher{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
		log:      log,
	}, nil
}

// Publish 发布JSON消息（持久化）
func (p *Publisher) Publish(ctx context.Context, routingKey string, message interface{}) error {
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("消息序列化失败: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(ctx,
		p.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    uuid.NewString(),
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("发布消息失败: %w", err)
	}

	p.log.Debug("消息已发布", zap.String("routing_key", routingKey), zap.Int("bytes", len(body)))
	return nil
}

// Close 关闭Channel与连接
func (p *Publisher) Close() error {
	var errs []error
	if p.channel != nil {
		errs = append(errs, p.channel.Close())
	}
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
	}
	return errors.Join(errs...)
}

// Delivery 消费到的消息
type Delivery struct {
	RoutingKey string
	MessageID  string
	Body       []byte
}

// Handler 消息处理函数
// 返回ErrDrop表示消息无法处理且不应重新入队（如格式错误）
type Handler func(ctx context.Context, d Delivery) error

// ErrDrop 丢弃消息，不重新入队
var ErrDrop = errors.New("mq: drop message")

// Consumer RabbitMQ消息消费者
type Consumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	log     *zap.Logger
}

// NewConsumer 声明Exchange、Queue并按routingKeys绑定
func NewConsumer(url, exchange, exchangeType, queue string, routingKeys []string, log *zap.Logger) (*Consumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("连接RabbitMQ失败: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("创建Channel失败: %w", err)
	}

	cleanup := func(err error) (*Consumer, error) {
		channel.Close()
		conn.Close()
		return nil, err
	}

	if err := declareExchange(channel, exchange, exchangeType); err != nil {
		return cleanup(err)
	}

	q, err := channel.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		return cleanup(fmt.Errorf("声明Queue失败: %w", err))
	}

	for _, key := range routingKeys {
		if err := channel.QueueBind(q.Name, key, exchange, false, nil); err != nil {
			return cleanup(fmt.Errorf("绑定Queue失败: %w", err))
		}
	}

	log.Info("消息消费者已创建", zap.String("queue", q.Name), zap.Strings("routing_keys", routingKeys))

	return &Consumer{
		conn:    conn,
		channel: channel,
		queue:   q.Name,
		log:     log,
	}, nil
}

// Consume 阻塞消费直到ctx取消
// 处理成功Ack；返回ErrDrop则Nack不重新入队；其他错误Nack并重新入队
func (c *Consumer) Consume(ctx context.Context, handler Handler) error {
	if err := c.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("设置Qos失败: %w", err)
	}

	msgs, err := c.channel.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("开始消费失败: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return errors.New("消息Channel已关闭")
			}

			err := handler(ctx, Delivery{
				RoutingKey: msg.RoutingKey,
				MessageID:  msg.MessageId,
				Body:       msg.Body,
			})
			switch {
			case err == nil:
				_ = msg.Ack(false)
			case errors.Is(err, ErrDrop):
				c.log.Warn("消息被丢弃", zap.String("routing_key", msg.RoutingKey), zap.Error(err))
				_ = msg.Nack(false, false)
			default:
				c.log.Error("消息处理失败，重新入队", zap.String("routing_key", msg.RoutingKey), zap.Error(err))
				_ = msg.Nack(false, true)
			}
		}
	}
}

// Close 关闭Channel与连接
func (c *Consumer) Close() error {
	var errs []error
	if c.channel != nil {
		errs = append(errs, c.channel.Close())
	}
	if c.conn != nil {
		errs = append(errs, c.conn.Close())
	}
	return errors.Join(errs...)
}

func declareExchange(ch *amqp.Channel, exchange, exchangeType string) error {
	err := ch.ExchangeDeclare(exchange, exchangeType, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("声明Exchange失败: %w", err)
	}
	return nil
}
