package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/murmur-api/internal/domain"
	"github.com/phrazzld/murmur-api/internal/platform/logger"
	"github.com/phrazzld/murmur-api/internal/queue"
	"github.com/phrazzld/murmur-api/internal/retry"
	"github.com/phrazzld/murmur-api/internal/store"
	"github.com/phrazzld/murmur-api/internal/summarization"
)

// fallbackSummaryPrefix marks summaries synthesized locally after the
// external summarizer exhausted its retries.
const fallbackSummaryPrefix = "Audio note. Content: "

// defaultFallbackPreviewLen bounds the transcript prefix used in a
// fallback summary.
const defaultFallbackPreviewLen = 200

// SummarizationNoteStore is the persistence surface the summarization
// worker needs.
type SummarizationNoteStore interface {
	// GetByID retrieves a note by its ID.
	// Returns store.ErrNoteNotFound if the note does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Note, error)

	// UpdateStatus updates only the note's status.
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.NoteStatus) error

	// SaveSummary persists the summary and the new status atomically.
	SaveSummary(ctx context.Context, id uuid.UUID, summary string, status domain.NoteStatus) error
}

// Summarization consumes transcription-completion tasks, calls the
// external summarization service, persists the summary, and finalizes
// the note status.
//
// Unlike the transcription worker it never fails a note over an
// exhausted external call: a note with an imperfect local fallback
// summary is more useful than one stuck in failed, and the transcript
// (the higher-value artifact) is already safely persisted.
type Summarization struct {
	notes      SummarizationNoteStore
	summarizer summarization.Summarizer
	policy     retry.Policy
	previewLen int
	logger     *slog.Logger
}

// NewSummarization creates the summarization worker. previewLen bounds
// the transcript prefix in fallback summaries; non-positive values use
// the default.
func NewSummarization(
	notes SummarizationNoteStore,
	summarizer summarization.Summarizer,
	policy retry.Policy,
	previewLen int,
	log *slog.Logger,
) (*Summarization, error) {
	if notes == nil {
		return nil, ErrNilNoteStore
	}
	if summarizer == nil {
		return nil, ErrNilSummarizer
	}
	if log == nil {
		return nil, ErrNilLogger
	}
	if previewLen <= 0 {
		previewLen = defaultFallbackPreviewLen
	}

	return &Summarization{
		notes:      notes,
		summarizer: summarizer,
		policy:     policy,
		previewLen: previewLen,
		logger:     log.With("component", "summarization_worker"),
	}, nil
}

// Run declares the summarization queue and consumes it until ctx is
// cancelled.
func (w *Summarization) Run(ctx context.Context, consumer Consumer) error {
	if err := consumer.Declare(ctx, queue.QueueSummarization); err != nil {
		return fmt.Errorf("failed to declare summarization queue: %w", err)
	}
	return consumer.Consume(ctx, queue.QueueSummarization, w.HandleTask)
}

// HandleTask processes one summarization task delivery.
//
// Returning nil acknowledges the delivery. An error is returned only
// when no outcome could be persisted; permanent input problems
// (missing note, missing transcript) are terminal here, not retried.
func (w *Summarization) HandleTask(ctx context.Context, body []byte) error {
	task, err := queue.DecodeSummarizationTask(body)
	if err != nil {
		w.logger.Error("dropping malformed summarization task", "error", err)
		return nil
	}

	log := w.logger.With("note_id", task.NoteID)
	ctx = logger.WithLogger(ctx, log)

	start := time.Now()
	log.Info("processing summarization task")

	note, err := w.notes.GetByID(ctx, task.NoteID)
	if err != nil {
		if errors.Is(err, store.ErrNoteNotFound) {
			// Cannot recover a deleted note; a normal race, not an error.
			log.Warn("note not found, dropping task")
			return nil
		}
		log.Error("failed to load note", "error", err)
		return fmt.Errorf("failed to load note %s: %w", task.NoteID, err)
	}

	if note.Status.IsTerminal() {
		log.Info("dropping stale summarization task", "status", note.Status)
		return nil
	}

	if !note.HasTranscription() {
		// Malformed pipeline state; should not occur if transcription
		// ran correctly, but retrying cannot produce a transcript.
		log.Error("note has no transcription, marking failed")
		if updateErr := w.notes.UpdateStatus(ctx, task.NoteID, domain.NoteStatusFailed); updateErr != nil {
			log.Error("failed to update note status to failed", "error", updateErr)
			return fmt.Errorf("failed to mark note %s failed: %w", task.NoteID, updateErr)
		}
		return nil
	}

	if note.Status != domain.NoteStatusProcessingSummary {
		if err := w.notes.UpdateStatus(ctx, task.NoteID, domain.NoteStatusProcessingSummary); err != nil {
			log.Error("failed to update note status to processing_summary", "error", err)
			return fmt.Errorf("failed to mark note %s processing_summary: %w", task.NoteID, err)
		}
	}

	transcript := *note.Transcription
	summary, err := w.summarizeWithRetry(ctx, transcript)
	if err != nil {
		summary = fallbackSummary(transcript, w.previewLen)
		log.Warn("all summarization attempts failed, using fallback summary",
			"error", err,
			"fallback_length", len(summary))
	}

	if err := w.notes.SaveSummary(ctx, task.NoteID, summary, domain.NoteStatusCompleted); err != nil {
		// No outcome persisted; let the broker redeliver.
		log.Error("failed to save summary", "error", err)
		return fmt.Errorf("failed to save summary for note %s: %w", task.NoteID, err)
	}

	log.Info("summarization task completed",
		"summary_length", len(summary),
		"duration", time.Since(start))
	return nil
}

// summarizeWithRetry calls the external summarization service under
// the shared retry policy.
func (w *Summarization) summarizeWithRetry(ctx context.Context, transcript string) (string, error) {
	var summary string
	err := retry.Do(ctx, w.policy, func(ctx context.Context) error {
		var callErr error
		summary, callErr = w.summarizer.Summarize(ctx, transcript)
		return callErr
	})
	if err != nil {
		return "", err
	}
	return summary, nil
}

// fallbackSummary synthesizes a degraded but always-available summary
// from a transcript prefix. It is never empty for a non-empty
// transcript.
func fallbackSummary(transcript string, previewLen int) string {
	runes := []rune(transcript)
	if len(runes) > previewLen {
		return fallbackSummaryPrefix + string(runes[:previewLen]) + "..."
	}
	return fallbackSummaryPrefix + transcript
}
