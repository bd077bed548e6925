// Package rabbitmq provides the durable RabbitMQ implementation of the
// queue.Broker abstraction: durable queues, persistent deliveries,
// prefetch=1, explicit acknowledgment, and reconnect-with-retry on
// connection loss.
package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/phrazzld/murmur-api/internal/queue"
)

// Broker is a queue.Broker backed by a RabbitMQ connection. All
// methods are safe for concurrent use; Consume is typically run once
// per process from a dedicated goroutine.
type Broker struct {
	url            string
	prefetchCount  int
	reconnectDelay time.Duration
	logger         *slog.Logger

	mu     sync.Mutex
	conn   *amqp.Connection
	ch     *amqp.Channel
	closed bool
}

// NewBroker creates a Broker for the given AMQP URL. Call Connect
// before publishing; Consume connects (and reconnects) on its own.
func NewBroker(url string, prefetchCount int, reconnectDelay time.Duration, logger *slog.Logger) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	if prefetchCount < 1 {
		prefetchCount = 1
	}
	if reconnectDelay <= 0 {
		reconnectDelay = 5 * time.Second
	}
	return &Broker{
		url:            url,
		prefetchCount:  prefetchCount,
		reconnectDelay: reconnectDelay,
		logger:         logger.With("component", "rabbitmq_broker"),
	}
}

var _ queue.Broker = (*Broker)(nil)

// Connect establishes the connection and channel. It is idempotent; a
// live connection is reused.
func (b *Broker) Connect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connectLocked(ctx)
}

func (b *Broker) connectLocked(ctx context.Context) error {
	if b.closed {
		return queue.ErrBrokerClosed
	}
	if b.conn != nil && !b.conn.IsClosed() && b.ch != nil {
		return nil
	}

	conn, err := amqp.Dial(b.url)
	if err != nil {
		return fmt.Errorf("failed to connect to broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.Qos(b.prefetchCount, 0, false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("failed to set prefetch: %w", err)
	}

	b.conn = conn
	b.ch = ch
	b.logger.Info("connected to broker", "prefetch_count", b.prefetchCount)
	return nil
}

// channel returns the live channel or queue.ErrNotConnected.
func (b *Broker) channel() (*amqp.Channel, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, queue.ErrBrokerClosed
	}
	if b.conn == nil || b.conn.IsClosed() || b.ch == nil {
		return nil, queue.ErrNotConnected
	}
	return b.ch, nil
}

// Declare idempotently creates a durable named queue. Safe to call
// repeatedly from both producers and consumers.
func (b *Broker) Declare(ctx context.Context, queueName string) error {
	ch, err := b.channel()
	if err != nil {
		return err
	}

	_, err = ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %q: %w", queueName, err)
	}
	return nil
}

// Publish persists the payload durably on the named queue. It fails
// loudly if the connection is down; callers decide whether that is
// fatal (see the transcription worker's enqueue-after-commit policy).
func (b *Broker) Publish(ctx context.Context, queueName string, body []byte) error {
	if err := b.Declare(ctx, queueName); err != nil {
		return err
	}

	ch, err := b.channel()
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(
		ctx,
		"",        // default exchange, routing key = queue name
		queueName, // routing key
		false,     // mandatory
		false,     // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish to queue %q: %w", queueName, err)
	}

	b.logger.Debug("message published", "queue", queueName, "bytes", len(body))
	return nil
}

// Consume delivers messages one at a time to handler until ctx is
// cancelled. Handler success acknowledges the delivery; handler error
// nacks it back onto the queue for redelivery. Connection loss
// triggers reconnect-with-retry; in-flight unacknowledged deliveries
// are the broker's to redeliver once reconnected.
func (b *Broker) Consume(ctx context.Context, queueName string, handler queue.HandlerFunc) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		if err := b.consumeOnce(ctx, queueName, handler); err != nil {
			if err == queue.ErrBrokerClosed {
				return err
			}
			b.logger.Error("consumer disconnected, reconnecting",
				"queue", queueName,
				"error", err,
				"reconnect_delay", b.reconnectDelay)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(b.reconnectDelay):
		}
	}
}

// consumeOnce runs a single consume session on a live connection and
// returns when the session ends (context cancelled, connection lost,
// or broker closed).
func (b *Broker) consumeOnce(ctx context.Context, queueName string, handler queue.HandlerFunc) error {
	b.mu.Lock()
	err := b.connectLocked(ctx)
	b.mu.Unlock()
	if err != nil {
		return err
	}

	if err := b.Declare(ctx, queueName); err != nil {
		return err
	}

	ch, err := b.channel()
	if err != nil {
		return err
	}

	deliveries, err := ch.Consume(
		queueName,
		"",    // consumer tag, broker-assigned
		false, // autoAck: acknowledgment is explicit
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming queue %q: %w", queueName, err)
	}

	b.logger.Info("consuming", "queue", queueName)

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("consumer stopping", "queue", queueName)
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return queue.ErrNotConnected
			}

			if err := handler(ctx, d.Body); err != nil {
				b.logger.Warn("handler failed, requeueing delivery",
					"queue", queueName,
					"redelivered", d.Redelivered,
					"error", err)
				if nackErr := d.Nack(false, true); nackErr != nil {
					b.logger.Error("failed to nack delivery",
						"queue", queueName,
						"error", nackErr)
				}
				continue
			}

			if ackErr := d.Ack(false); ackErr != nil {
				// The delivery will be redelivered; the handler's
				// status guard absorbs the duplicate.
				b.logger.Error("failed to ack delivery",
					"queue", queueName,
					"error", ackErr)
			}
		}
	}
}

// Close releases the channel and connection. Unacknowledged
// deliveries return to their queues.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	var firstErr error
	if b.ch != nil {
		if err := b.ch.Close(); err != nil {
			firstErr = err
		}
		b.ch = nil
	}
	if b.conn != nil && !b.conn.IsClosed() {
		if err := b.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		b.conn = nil
	}

	b.logger.Info("broker connection closed")
	return firstErr
}
