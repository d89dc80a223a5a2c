package kafka

import (
	"fmt"

	"service_market/internal/domain"
)

// Publisher drivers accepted in configuration.
const (
	DriverNone    = "none"
	DriverKafkaGo = "kafka-go"
	DriverSarama  = "sarama"
)

// NewPublisher builds the publisher for driver. DriverNone returns nil.
func NewPublisher(driver string, brokers []string, topic string) (domain.Publisher, error) {
	switch driver {
	case "", DriverNone:
		return nil, nil
	case DriverKafkaGo:
		return NewKafkaGoPublisher(brokers, topic), nil
	case DriverSarama:
		p, err := NewSaramaPublisher(brokers, topic)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, &domain.ConfigError{Field: "publisher.driver", Err: fmt.Errorf("unknown driver %q", driver)}
	}
}
