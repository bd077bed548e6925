package queue

import (
	"context"
	"errors"
)

// Logical queue names. The producer and both workers declare these on
// startup; declaration is idempotent on every Broker implementation.
const (
	// QueueTranscription carries upload-completion tasks from the
	// producer tier to the transcription worker.
	QueueTranscription = "transcription"

	// QueueSummarization carries transcription-completion tasks from
	// the transcription worker to the summarization worker.
	QueueSummarization = "summarization"
)

// Common errors returned by Broker implementations.
var (
	// ErrBrokerClosed is returned when publishing or consuming on a
	// closed broker. Publish failures surface loudly so callers can
	// decide how to handle a missed hand-off (see the transcription
	// worker's enqueue-after-commit policy).
	ErrBrokerClosed = errors.New("broker is closed")

	// ErrNotConnected is returned when the broker has no live
	// connection to the underlying transport.
	ErrNotConnected = errors.New("broker is not connected")
)

// HandlerFunc processes a single delivery. Returning nil acknowledges
// the delivery and removes it permanently from the queue. Returning an
// error causes the delivery to be requeued for another attempt
// (at-least-once semantics).
type HandlerFunc func(ctx context.Context, body []byte) error

// Broker is a durable, at-least-once message broker abstraction with
// queue semantics. Deliveries go to exactly one consumer at a time;
// unacknowledged deliveries (handler error, consumer crash) are
// redelivered, possibly to another consumer instance.
type Broker interface {
	// Declare idempotently creates a durable named queue. Safe to call
	// repeatedly from both producers and consumers.
	Declare(ctx context.Context, queueName string) error

	// Publish persists the payload durably and makes it available to a
	// consumer. It returns an error if the underlying connection is
	// down rather than buffering silently.
	Publish(ctx context.Context, queueName string, body []byte) error

	// Consume delivers tasks one at a time to handler until ctx is
	// cancelled. A delivery is acknowledged only after handler returns
	// nil; on error the delivery is requeued. Consume blocks for the
	// lifetime of the consumer.
	Consume(ctx context.Context, queueName string, handler HandlerFunc) error

	// Close releases the broker connection. In-flight unacknowledged
	// deliveries return to the queue.
	Close() error
}

// Publisher is the narrow producer-side view of a Broker.
type Publisher interface {
	Declare(ctx context.Context, queueName string) error
	Publish(ctx context.Context, queueName string, body []byte) error
}
