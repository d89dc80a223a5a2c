package kafka

import (
	"context"

	"service_market/internal/domain"

	"github.com/IBM/sarama"
)

// SaramaPublisher writes events with a synchronous sarama producer.
type SaramaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

var _ domain.Publisher = (*SaramaPublisher)(nil)

// NewSaramaConfig returns the producer settings: wait for all replicas, retry in the client.
func NewSaramaConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Partitioner = sarama.NewHashPartitioner
	return cfg
}

func NewSaramaPublisher(brokers []string, topic string) (*SaramaPublisher, error) {
	producer, err := sarama.NewSyncProducer(brokers, NewSaramaConfig())
	if err != nil {
		return nil, domain.NewNetworkError("sarama connect", err)
	}
	return NewSaramaPublisherWithProducer(producer, topic), nil
}

// NewSaramaPublisherWithProducer wraps an existing producer.
func NewSaramaPublisherWithProducer(producer sarama.SyncProducer, topic string) *SaramaPublisher {
	return &SaramaPublisher{producer: producer, topic: topic}
}

// Publish sends one message. sarama's SyncProducer has no context support;
// ctx is only checked before sending.
func (p *SaramaPublisher) Publish(ctx context.Context, key, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.ByteEncoder(key),
		Value: sarama.ByteEncoder(value),
	}
	if _, _, err := p.producer.SendMessage(msg); err != nil {
		return domain.NewNetworkError("sarama publish", err)
	}
	return nil
}

func (p *SaramaPublisher) Close() error {
	return p.producer.Close()
}
