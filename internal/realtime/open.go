package realtime

import (
	"fmt"
	"log/slog"

	"github.com/hoangvu1420/YummyZoom-sub001/pkg/config"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/kafka"
)

// Open builds the notifier selected by cfg.Notifier. The returned close
// function releases the transport and is never nil.
func Open(cfg config.Config, logger *slog.Logger) (*BroadcastNotifier, func() error, error) {
	noop := func() error { return nil }
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Notifier {
	case "", "log":
		return NewNotifier(LogPublisher{Logger: logger}), noop, nil
	case "kafka":
		w, err := kafka.NewClient(cfg.Kafka.Brokers).NewWriter(cfg.Kafka.StatusTopic)
		if err != nil {
			return nil, noop, err
		}
		return NewNotifier(KafkaPublisher{Writer: w}), w.Close, nil
	case "rabbitmq":
		conn, pub, err := DialRabbit(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			return nil, noop, err
		}
		return NewNotifier(pub), conn.Close, nil
	case "redis":
		client, pub := NewRedisPublisher(cfg.Redis.Addr, cfg.Redis.ChannelPrefix)
		return NewNotifier(pub), client.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown notifier %q", cfg.Notifier)
	}
}
