package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/twmb/franz-go/pkg/kgo"

	"arcalog/src/logger"
)

const clientID = "arcalog"

var errClosed = errors.New("broker is closed")

// RedpandaBroker talks to Redpanda, or any Kafka-compatible cluster, with
// franz-go. One client produces; every subscription gets its own group
// client.
type RedpandaBroker struct {
	seeds    []string
	producer *kgo.Client
	logger   logger.Logger

	mu     sync.Mutex
	groups map[groupKey]*kgo.Client
	closed bool
}

type groupKey struct{ topic, group string }

// NewRedpandaBroker connects a producer to the seed brokers
// (e.g. ["localhost:19092"]).
func NewRedpandaBroker(seeds []string, log logger.Logger) (*RedpandaBroker, error) {
	if len(seeds) == 0 {
		return nil, fmt.Errorf("at least one broker address is required")
	}

	producer, err := kgo.NewClient(clientOpts(seeds, kgo.AllowAutoTopicCreation())...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka client: %w", err)
	}
	return &RedpandaBroker{
		seeds:    seeds,
		producer: producer,
		logger:   log,
		groups:   make(map[groupKey]*kgo.Client),
	}, nil
}

func clientOpts(seeds []string, extra ...kgo.Opt) []kgo.Opt {
	return append([]kgo.Opt{kgo.SeedBrokers(seeds...), kgo.ClientID(clientID)}, extra...)
}

func (b *RedpandaBroker) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Publish waits until the record is acknowledged.
func (b *RedpandaBroker) Publish(ctx context.Context, topic string, key string, value []byte) error {
	if b.isClosed() {
		return errClosed
	}
	rec := &kgo.Record{Topic: topic, Key: []byte(key), Value: value}
	if err := b.producer.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("failed to produce message to %s: %w", topic, err)
	}
	return nil
}

// Subscribe joins group on topic. A group without a committed offset starts
// at the oldest record. Offsets are committed only for records that were
// handed to the channel, so a crash redelivers what was never read.
func (b *RedpandaBroker) Subscribe(ctx context.Context, topic string, group string) (<-chan Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, errClosed
	}
	sub := groupKey{topic, group}
	if _, ok := b.groups[sub]; ok {
		return nil, fmt.Errorf("consumer already exists for topic %s and group %s", topic, group)
	}

	client, err := kgo.NewClient(clientOpts(b.seeds,
		kgo.ConsumerGroup(group),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
		kgo.AutoCommitMarks(),
	)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}
	b.groups[sub] = client

	out := make(chan Message, 100)
	go b.poll(ctx, client, out)
	return out, nil
}

func (b *RedpandaBroker) poll(ctx context.Context, client *kgo.Client, out chan<- Message) {
	defer close(out)

	for {
		fetches := client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			if !errors.Is(err, context.Canceled) {
				b.logger.Error("[Broker] Fetch error on %s/%d: %v", topic, partition, err)
			}
		})

		for it := fetches.RecordIter(); !it.Done(); {
			rec := it.Next()
			select {
			case out <- toMessage(rec):
				client.MarkCommitRecords(rec)
			case <-ctx.Done():
				return
			}
		}
	}
}

func toMessage(rec *kgo.Record) Message {
	return Message{
		Topic:     rec.Topic,
		Key:       string(rec.Key),
		Value:     rec.Value,
		Offset:    rec.Offset,
		Partition: rec.Partition,
		Timestamp: rec.Timestamp.UnixMilli(),
	}
}

// Close leaves every group and shuts the producer down. It is safe to call
// more than once.
func (b *RedpandaBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for sub, client := range b.groups {
		client.Close()
		delete(b.groups, sub)
	}
	b.producer.Close()
	return nil
}
