// Package worker contains the two background task handlers of the
// processing pipeline: transcription and summarization. Each handler
// consumes one task kind from the task queue, drives the note through
// its status state machine, and absorbs failures at the handler
// boundary so that a bad input can never put a delivery into an
// infinite redelivery loop.
package worker

import (
	"context"
	"errors"

	"github.com/phrazzld/murmur-api/internal/queue"
)

// Common construction errors shared by both workers.
var (
	ErrNilNoteStore   = errors.New("note store cannot be nil")
	ErrNilTranscriber = errors.New("transcriber cannot be nil")
	ErrNilSummarizer  = errors.New("summarizer cannot be nil")
	ErrNilPublisher   = errors.New("publisher cannot be nil")
	ErrNilLogger      = errors.New("logger cannot be nil")
)

// Consumer is the broker surface a worker needs to receive work.
type Consumer interface {
	Declare(ctx context.Context, queueName string) error
	Consume(ctx context.Context, queueName string, handler queue.HandlerFunc) error
}
