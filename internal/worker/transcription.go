package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/murmur-api/internal/domain"
	"github.com/phrazzld/murmur-api/internal/platform/logger"
	"github.com/phrazzld/murmur-api/internal/queue"
	"github.com/phrazzld/murmur-api/internal/retry"
	"github.com/phrazzld/murmur-api/internal/store"
	"github.com/phrazzld/murmur-api/internal/transcription"
)

// TranscriptionNoteStore is the persistence surface the transcription
// worker needs.
type TranscriptionNoteStore interface {
	// GetByID retrieves a note by its ID.
	// Returns store.ErrNoteNotFound if the note does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Note, error)

	// UpdateStatus updates only the note's status.
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.NoteStatus) error

	// SaveTranscription persists the transcript and the new status
	// atomically.
	SaveTranscription(ctx context.Context, id uuid.UUID, transcription string, status domain.NoteStatus) error
}

// Transcription consumes upload-completion tasks, calls the external
// speech-to-text service, persists the transcript, and forwards a
// summarization task.
type Transcription struct {
	notes       TranscriptionNoteStore
	transcriber transcription.Transcriber
	publisher   queue.Publisher
	policy      retry.Policy
	language    string
	logger      *slog.Logger

	// readFile loads the audio payload; swapped in tests.
	readFile func(path string) ([]byte, error)
}

// NewTranscription creates the transcription worker.
func NewTranscription(
	notes TranscriptionNoteStore,
	transcriber transcription.Transcriber,
	publisher queue.Publisher,
	policy retry.Policy,
	language string,
	log *slog.Logger,
) (*Transcription, error) {
	if notes == nil {
		return nil, ErrNilNoteStore
	}
	if transcriber == nil {
		return nil, ErrNilTranscriber
	}
	if publisher == nil {
		return nil, ErrNilPublisher
	}
	if log == nil {
		return nil, ErrNilLogger
	}

	return &Transcription{
		notes:       notes,
		transcriber: transcriber,
		publisher:   publisher,
		policy:      policy,
		language:    language,
		logger:      log.With("component", "transcription_worker"),
		readFile:    os.ReadFile,
	}, nil
}

// Run declares the transcription queue and consumes it until ctx is
// cancelled.
func (w *Transcription) Run(ctx context.Context, consumer Consumer) error {
	if err := consumer.Declare(ctx, queue.QueueTranscription); err != nil {
		return fmt.Errorf("failed to declare transcription queue: %w", err)
	}
	return consumer.Consume(ctx, queue.QueueTranscription, w.HandleTask)
}

// HandleTask processes one transcription task delivery.
//
// Returning nil acknowledges the delivery. The handler returns an
// error only when it could not persist any outcome for the note
// (store unavailable); everything else, including exhausted
// transcription retries and bad inputs, is absorbed here and recorded
// as a terminal status so redelivery cannot loop on an input a retry
// cannot fix.
func (w *Transcription) HandleTask(ctx context.Context, body []byte) error {
	task, err := queue.DecodeTranscriptionTask(body)
	if err != nil {
		// Redelivery cannot repair a malformed payload.
		w.logger.Error("dropping malformed transcription task", "error", err)
		return nil
	}

	log := w.logger.With(
		"note_id", task.NoteID,
		"user_id", task.UserID,
		"file_path", task.FilePath,
	)
	ctx = logger.WithLogger(ctx, log)

	start := time.Now()
	log.Info("processing transcription task")

	note, err := w.notes.GetByID(ctx, task.NoteID)
	if err != nil {
		if errors.Is(err, store.ErrNoteNotFound) {
			// Note deleted between enqueue and delivery; a normal race.
			log.Warn("note not found, dropping task")
			return nil
		}
		log.Error("failed to load note", "error", err)
		return fmt.Errorf("failed to load note %s: %w", task.NoteID, err)
	}

	// Stale-delivery guard: a redelivered task for a note that already
	// holds a transcript (or reached a terminal state) must not re-run
	// the step or publish a duplicate summarization task.
	if note.Status != domain.NoteStatusPending && note.Status != domain.NoteStatusProcessing {
		log.Info("dropping stale transcription task", "status", note.Status)
		return nil
	}

	// Persist processing before the external call so a crash after
	// this point is observable rather than silently lost.
	if note.Status != domain.NoteStatusProcessing {
		if err := w.notes.UpdateStatus(ctx, task.NoteID, domain.NoteStatusProcessing); err != nil {
			log.Error("failed to update note status to processing", "error", err)
			return fmt.Errorf("failed to mark note %s processing: %w", task.NoteID, err)
		}
	}

	result, err := w.transcribeWithRetry(ctx, task.FilePath)
	if err != nil {
		log.Error("transcription failed",
			"error", err,
			"duration", time.Since(start))
		if updateErr := w.notes.UpdateStatus(ctx, task.NoteID, domain.NoteStatusFailed); updateErr != nil {
			log.Error("failed to update note status to failed", "error", updateErr)
			return fmt.Errorf("failed to mark note %s failed: %w", task.NoteID, updateErr)
		}
		return nil
	}

	if err := w.notes.SaveTranscription(
		ctx,
		task.NoteID,
		result.Text,
		domain.NoteStatusPendingSummarization,
	); err != nil {
		// No outcome persisted; let the broker redeliver.
		log.Error("failed to save transcription", "error", err)
		return fmt.Errorf("failed to save transcription for note %s: %w", task.NoteID, err)
	}

	log.Info("transcription saved",
		"transcription_length", len(result.Text),
		"confidence", result.Confidence,
		"status", domain.NoteStatusPendingSummarization)

	w.publishSummarizationTask(ctx, log, task.NoteID)

	log.Info("transcription task completed",
		"duration", time.Since(start))
	return nil
}

// transcribeWithRetry loads the audio payload and calls the external
// speech-to-text service under the shared retry policy.
func (w *Transcription) transcribeWithRetry(
	ctx context.Context,
	filePath string,
) (transcription.Result, error) {
	audio, err := w.readFile(filePath)
	if err != nil {
		// A missing or unreadable file will not appear on retry.
		return transcription.Result{}, retry.Permanent(
			fmt.Errorf("failed to read audio file %s: %w", filePath, err))
	}

	var result transcription.Result
	err = retry.Do(ctx, w.policy, func(ctx context.Context) error {
		var callErr error
		result, callErr = w.transcriber.Transcribe(ctx, audio, w.language)
		return callErr
	})
	if err != nil {
		return transcription.Result{}, err
	}
	return result, nil
}

// publishSummarizationTask forwards the note to the summarization
// queue. A publish failure is logged but never reverts the stored
// transcript or status: the note stays recoverable as
// pending_summarization with a transcript present.
func (w *Transcription) publishSummarizationTask(ctx context.Context, log *slog.Logger, noteID uuid.UUID) {
	body, err := json.Marshal(queue.SummarizationTask{NoteID: noteID})
	if err != nil {
		log.Error("failed to marshal summarization task", "error", err)
		return
	}

	if err := w.publisher.Publish(ctx, queue.QueueSummarization, body); err != nil {
		log.Error("failed to publish summarization task; note left pending_summarization",
			"error", err)
		return
	}

	log.Info("summarization task published")
}
