// Package service provides application-level operations for audio
// notes: creating a note record and handing it to the processing
// pipeline, and reading notes back for the API tier.
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/murmur-api/internal/domain"
	"github.com/phrazzld/murmur-api/internal/queue"
	"github.com/phrazzld/murmur-api/internal/store"
)

// NoteRepository is the persistence surface the note service needs.
type NoteRepository interface {
	// Create saves a new note to the store.
	Create(ctx context.Context, note *domain.Note) error

	// GetByID retrieves a note by its unique ID.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Note, error)

	// FindNotesByStatus retrieves notes with the given status, newest
	// first.
	FindNotesByStatus(ctx context.Context, status domain.NoteStatus, limit, offset int) ([]*domain.Note, error)

	// WithTx returns a repository bound to the given transaction.
	WithTx(tx *sql.Tx) NoteRepository

	// DB returns the underlying database handle, used to open
	// transactions.
	DB() *sql.DB
}

// NoteService provides note-related operations.
type NoteService interface {
	// CreateNoteAndEnqueueTask persists a new pending note and
	// publishes a transcription task for it.
	CreateNoteAndEnqueueTask(ctx context.Context, userID, title, filePath string) (*domain.Note, error)

	// GetNote retrieves a note by its ID.
	GetNote(ctx context.Context, noteID uuid.UUID) (*domain.Note, error)

	// ListNotesByStatus retrieves notes in the given status, newest
	// first.
	ListNotesByStatus(ctx context.Context, status domain.NoteStatus, limit, offset int) ([]*domain.Note, error)
}

// ErrNoteNotFound indicates that the note does not exist.
var ErrNoteNotFound = errors.New("note not found")

// NoteServiceError wraps errors from the note service with the failed
// operation for context.
type NoteServiceError struct {
	Operation string
	Message   string
	Err       error
}

func (e *NoteServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("note service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("note service %s failed: %s", e.Operation, e.Message)
}

func (e *NoteServiceError) Unwrap() error {
	return e.Err
}

// NewNoteServiceError wraps err with operation context. Known
// sentinel errors pass through unwrapped so callers can match them
// with errors.Is.
func NewNoteServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNoteNotFound) || errors.Is(err, store.ErrNoteNotFound) {
		return ErrNoteNotFound
	}
	return &NoteServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

type noteServiceImpl struct {
	noteRepo  NoteRepository
	publisher queue.Publisher
	logger    *slog.Logger
}

// NewNoteService creates a new NoteService. It returns an error if a
// required dependency is nil.
func NewNoteService(
	noteRepo NoteRepository,
	publisher queue.Publisher,
	logger *slog.Logger,
) (NoteService, error) {
	if noteRepo == nil {
		return nil, &NoteServiceError{
			Operation: "create_service",
			Message:   "noteRepo cannot be nil",
		}
	}
	if publisher == nil {
		return nil, &NoteServiceError{
			Operation: "create_service",
			Message:   "publisher cannot be nil",
		}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &noteServiceImpl{
		noteRepo:  noteRepo,
		publisher: publisher,
		logger:    logger.With("component", "note_service"),
	}, nil
}

// CreateNoteAndEnqueueTask creates a new note with pending status and
// publishes a transcription task for it. The database write commits
// before the publish; if the publish then fails the note stays
// pending with no task in flight and the error is returned so the
// caller can retry the enqueue.
func (s *noteServiceImpl) CreateNoteAndEnqueueTask(
	ctx context.Context,
	userID, title, filePath string,
) (*domain.Note, error) {
	note, err := domain.NewNote(userID, title, filePath)
	if err != nil {
		s.logger.Error("failed to create note object",
			"error", err,
			"user_id", userID)
		return nil, NewNoteServiceError("create_note", "failed to create note object", err)
	}

	err = store.RunInTransaction(ctx, s.noteRepo.DB(), func(ctx context.Context, tx *sql.Tx) error {
		txRepo := s.noteRepo.WithTx(tx)
		if err := txRepo.Create(ctx, note); err != nil {
			s.logger.Error("failed to create note in transaction",
				"error", err,
				"user_id", userID,
				"note_id", note.ID)
			return NewNoteServiceError("create_note", "failed to save note to database", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("note created with pending status",
		"note_id", note.ID,
		"user_id", userID)

	body, err := json.Marshal(queue.TranscriptionTask{
		NoteID:   note.ID,
		FilePath: note.FilePath,
		UserID:   note.UserID,
	})
	if err != nil {
		return nil, NewNoteServiceError("create_note", "failed to encode transcription task", err)
	}

	if err := s.publisher.Publish(ctx, queue.QueueTranscription, body); err != nil {
		s.logger.Error("failed to publish transcription task",
			"error", err,
			"note_id", note.ID,
			"user_id", userID)
		return nil, NewNoteServiceError("create_note", "failed to publish transcription task", err)
	}

	s.logger.Info("transcription task published",
		"note_id", note.ID,
		"user_id", userID)

	return note, nil
}

// GetNote retrieves a note by its ID.
func (s *noteServiceImpl) GetNote(ctx context.Context, noteID uuid.UUID) (*domain.Note, error) {
	note, err := s.noteRepo.GetByID(ctx, noteID)
	if err != nil {
		if errors.Is(err, store.ErrNoteNotFound) {
			return nil, ErrNoteNotFound
		}
		s.logger.Error("failed to retrieve note",
			"error", err,
			"note_id", noteID)
		return nil, NewNoteServiceError("get_note", "failed to retrieve note", err)
	}
	return note, nil
}

// ListNotesByStatus retrieves notes in the given status, newest first.
func (s *noteServiceImpl) ListNotesByStatus(
	ctx context.Context,
	status domain.NoteStatus,
	limit, offset int,
) ([]*domain.Note, error) {
	if !status.IsValid() {
		return nil, NewNoteServiceError("list_notes", "invalid status filter", domain.ErrInvalidNoteStatus)
	}

	notes, err := s.noteRepo.FindNotesByStatus(ctx, status, limit, offset)
	if err != nil {
		s.logger.Error("failed to list notes by status",
			"error", err,
			"status", status)
		return nil, NewNoteServiceError("list_notes", "failed to list notes", err)
	}
	return notes, nil
}
