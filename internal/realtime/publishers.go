package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/hoangvu1420/YummyZoom-sub001/pkg/contracts"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/kafka"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/logging"
)

// LogPublisher writes notifications to the log. It is the default when no
// broker is configured.
type LogPublisher struct {
	Logger *slog.Logger
}

func (p LogPublisher) Publish(ctx context.Context, n contracts.StatusNotification) error {
	p.Logger.InfoContext(ctx, "order status notification",
		logging.KeyOrderID, n.Broadcast.OrderID,
		logging.KeyEventID, n.Broadcast.EventID,
		logging.KeyStatus, n.Broadcast.Status,
		"audience", n.Audience,
		"recipient_id", n.RecipientID,
	)
	return nil
}

// KafkaPublisher writes to the status topic keyed by order id, so a consumer
// sees each order's notifications in order.
type KafkaPublisher struct {
	Writer kafka.Writer
}

func (p KafkaPublisher) Publish(ctx context.Context, n contracts.StatusNotification) error {
	if err := kafka.PublishJSON(ctx, p.Writer, n.Broadcast.OrderID, n.Broadcast.EventType, n); err != nil {
		return fmt.Errorf("kafka publish: %w", err)
	}
	return nil
}

// AMQPChannel is the slice of *amqp.Channel the publisher uses.
type AMQPChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// RabbitPublisher publishes to a topic exchange with RoutingKey(n).
type RabbitPublisher struct {
	Channel  AMQPChannel
	Exchange string
}

func (p RabbitPublisher) Publish(ctx context.Context, n contracts.StatusNotification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	err = p.Channel.PublishWithContext(ctx, p.Exchange, RoutingKey(n), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    n.Broadcast.EventID,
		Type:         n.Broadcast.EventType,
		Timestamp:    n.Broadcast.OccurredAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	return nil
}

// RabbitConn owns the connection behind a RabbitPublisher.
type RabbitConn struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// DialRabbit connects and declares exchange as a durable topic exchange.
func DialRabbit(url, exchange string) (*RabbitConn, RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, RabbitPublisher{}, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, RabbitPublisher{}, fmt.Errorf("rabbitmq channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, RabbitPublisher{}, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &RabbitConn{conn: conn, ch: ch}, RabbitPublisher{Channel: ch, Exchange: exchange}, nil
}

func (c *RabbitConn) Close() error {
	_ = c.ch.Close()
	return c.conn.Close()
}

// RedisClient is the slice of redis.Cmdable the publisher uses.
type RedisClient interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// RedisPublisher publishes on ChannelPrefix + RoutingKey(n).
type RedisPublisher struct {
	Client        RedisClient
	ChannelPrefix string
}

func NewRedisPublisher(addr, prefix string) (*redis.Client, RedisPublisher) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	return client, RedisPublisher{Client: client, ChannelPrefix: prefix}
}

func (p RedisPublisher) Publish(ctx context.Context, n contracts.StatusNotification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := p.Client.Publish(ctx, p.ChannelPrefix+RoutingKey(n), body).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}
