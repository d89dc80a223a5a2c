package kafka

import (
	"context"
	"time"

	"service_market/internal/domain"

	"github.com/segmentio/kafka-go"
)

// KafkaGoPublisher writes events with segmentio/kafka-go.
type KafkaGoPublisher struct {
	writer *kafka.Writer
}

var _ domain.Publisher = (*KafkaGoPublisher)(nil)

func NewKafkaGoPublisher(brokers []string, topic string) *KafkaGoPublisher {
	return &KafkaGoPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

// Publish blocks until the broker acknowledges the message.
func (p *KafkaGoPublisher) Publish(ctx context.Context, key, value []byte) error {
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   key,
		Value: value,
	})
	if err != nil {
		return domain.NewNetworkError("kafka-go publish", err)
	}
	return nil
}

func (p *KafkaGoPublisher) Close() error {
	return p.writer.Close()
}
