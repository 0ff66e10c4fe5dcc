package broker

import (
	"context"
	"sync"
	"time"
)

// InMemoryBroker is a process-local Broker. Each topic keeps its full log,
// and a new group starts from the first message, matching the Redpanda
// consumers which reset to the start of the topic.
type InMemoryBroker struct {
	mu     sync.Mutex
	topics map[string][]Message
	subs   map[string][]*subscription
	closed bool
}

type subscription struct {
	mu     sync.Mutex
	queue  []Message
	notify chan struct{}
	done   chan struct{}
	once   sync.Once
}

func (s *subscription) push(msgs ...Message) {
	s.mu.Lock()
	s.queue = append(s.queue, msgs...)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *subscription) stop() {
	s.once.Do(func() { close(s.done) })
}

// NewInMemoryBroker creates a new InMemoryBroker instance.
func NewInMemoryBroker() *InMemoryBroker {
	return &InMemoryBroker{
		topics: make(map[string][]Message),
		subs:   make(map[string][]*subscription),
	}
}

// Publish appends the message to the topic log and hands it to every group.
func (b *InMemoryBroker) Publish(ctx context.Context, topic string, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return errClosed
	}

	msg := Message{
		Topic:     topic,
		Key:       key,
		Value:     append([]byte(nil), value...),
		Offset:    int64(len(b.topics[topic])),
		Timestamp: time.Now().UnixMilli(),
	}
	b.topics[topic] = append(b.topics[topic], msg)

	for _, sub := range b.subs[topic] {
		sub.push(msg)
	}
	return nil
}

// Subscribe starts a group at the beginning of the topic log.
func (b *InMemoryBroker) Subscribe(ctx context.Context, topic string, groupID string) (<-chan Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, errClosed
	}

	sub := &subscription{
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	sub.push(b.topics[topic]...)
	b.subs[topic] = append(b.subs[topic], sub)

	out := make(chan Message, 100)
	go b.deliver(ctx, topic, sub, out)
	return out, nil
}

func (b *InMemoryBroker) deliver(ctx context.Context, topic string, sub *subscription, out chan<- Message) {
	defer close(out)
	defer b.unsubscribe(topic, sub)

	for {
		sub.mu.Lock()
		pending := sub.queue
		sub.queue = nil
		sub.mu.Unlock()

		for _, msg := range pending {
			select {
			case out <- msg:
			case <-ctx.Done():
				return
			case <-sub.done:
				return
			}
		}

		select {
		case <-sub.notify:
		case <-ctx.Done():
			return
		case <-sub.done:
			return
		}
	}
}

func (b *InMemoryBroker) unsubscribe(topic string, sub *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[topic]
	for i, s := range subs {
		if s == sub {
			b.subs[topic] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
}

// Close stops every subscription.
func (b *InMemoryBroker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	var all []*subscription
	for _, subs := range b.subs {
		all = append(all, subs...)
	}
	b.mu.Unlock()

	for _, sub := range all {
		sub.stop()
	}
	return nil
}
