package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// defaultQueueDepth bounds each in-memory queue. The durable broker
// has no such bound; this one exists to keep a runaway producer from
// exhausting memory in tests and single-process runs.
const defaultQueueDepth = 128

// MemoryBroker is a channel-backed Broker implementation with the same
// ack/requeue semantics as the durable broker. It backs tests and
// single-process development runs; it is not durable across restarts.
type MemoryBroker struct {
	mu     sync.Mutex
	queues map[string]chan []byte
	closed bool
	logger *slog.Logger
}

// NewMemoryBroker creates an in-memory broker.
func NewMemoryBroker(logger *slog.Logger) *MemoryBroker {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryBroker{
		queues: make(map[string]chan []byte),
		logger: logger.With("component", "memory_broker"),
	}
}

var _ Broker = (*MemoryBroker)(nil)

// queue returns the channel for queueName, creating it if needed.
func (b *MemoryBroker) queue(queueName string) (chan []byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBrokerClosed
	}

	ch, ok := b.queues[queueName]
	if !ok {
		ch = make(chan []byte, defaultQueueDepth)
		b.queues[queueName] = ch
	}
	return ch, nil
}

// Declare idempotently creates the named queue.
func (b *MemoryBroker) Declare(ctx context.Context, queueName string) error {
	_, err := b.queue(queueName)
	return err
}

// Publish makes the payload available to a consumer of the named
// queue. Declaration is implicit, matching the durable broker's
// declare-before-publish habit.
func (b *MemoryBroker) Publish(ctx context.Context, queueName string, body []byte) error {
	ch, err := b.queue(queueName)
	if err != nil {
		return err
	}

	select {
	case ch <- body:
		b.logger.Debug("message published",
			"queue", queueName,
			"queue_len", len(ch),
			"queue_cap", cap(ch))
		return nil
	default:
		return fmt.Errorf("queue %q is full (capacity %d)", queueName, cap(ch))
	}
}

// Consume delivers messages one at a time to handler until ctx is
// cancelled. A handler error requeues the message for redelivery.
func (b *MemoryBroker) Consume(ctx context.Context, queueName string, handler HandlerFunc) error {
	ch, err := b.queue(queueName)
	if err != nil {
		return err
	}

	b.logger.Info("consuming", "queue", queueName)

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("consumer stopping", "queue", queueName)
			return nil
		case body := <-ch:
			if err := handler(ctx, body); err != nil {
				b.logger.Warn("handler failed, requeueing delivery",
					"queue", queueName,
					"error", err)
				// Requeue without blocking the consume loop. If the
				// queue is full the message is dropped, which the
				// durable broker never does; acceptable for the
				// non-durable implementation.
				select {
				case ch <- body:
				default:
					b.logger.Error("requeue failed, queue full; dropping delivery",
						"queue", queueName)
				}
			}
		}
	}
}

// Close marks the broker closed. Subsequent publishes and consumes
// fail with ErrBrokerClosed; running consumers exit via their context.
func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		b.logger.Info("memory broker closed")
	}
	return nil
}
