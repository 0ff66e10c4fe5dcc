// Package broker carries collect requests and snapshot notices between
// arcalog processes.
package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"arcalog/src/logger"
)

// Broker abstracts message publishing and consumption.
type Broker interface {
	// Publish sends a message to a topic. The key selects the partition on
	// Redpanda and is carried through unchanged in memory.
	Publish(ctx context.Context, topic string, key string, value []byte) error

	// Subscribe returns a channel for consuming messages from a topic.
	// Every group receives every message once. The channel is closed when
	// ctx is done or the broker is closed.
	Subscribe(ctx context.Context, topic string, groupID string) (<-chan Message, error)

	// Close shuts down the broker connection gracefully.
	Close() error
}

// Message represents a consumed message from a broker.
type Message struct {
	Topic     string
	Key       string
	Value     []byte
	Offset    int64
	Partition int32
	Timestamp int64
}

// New returns a RedpandaBroker when brokers are configured and an
// InMemoryBroker otherwise.
func New(brokers []string, log logger.Logger) (Broker, error) {
	if len(brokers) == 0 {
		log.Debug("[Broker] No brokers configured, using in-memory broker")
		return NewInMemoryBroker(), nil
	}
	return NewRedpandaBroker(brokers, log)
}

// PublishJSON encodes v as JSON and publishes it.
func PublishJSON(ctx context.Context, b Broker, topic, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s message: %w", topic, err)
	}
	return b.Publish(ctx, topic, key, data)
}
