package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/murmur-api/internal/domain"
)

// NoteStore defines the interface for note persistence. From the
// pipeline's perspective this is a narrow record store: single-record
// reads and field-scoped writes, each atomic at the record level.
type NoteStore interface {
	// Create saves a new note to the store.
	// It handles domain validation internally.
	Create(ctx context.Context, note *domain.Note) error

	// GetByID retrieves a note by its unique ID.
	// Returns ErrNoteNotFound if the note does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Note, error)

	// UpdateStatus updates only the status of an existing note.
	// Returns ErrNoteNotFound if the note does not exist.
	// Returns domain validation errors if the status is invalid.
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.NoteStatus) error

	// SaveTranscription persists the transcript and moves the note to
	// the given status in a single statement.
	// Returns ErrNoteNotFound if the note does not exist.
	SaveTranscription(ctx context.Context, id uuid.UUID, transcription string, status domain.NoteStatus) error

	// SaveSummary persists the summary and moves the note to the given
	// status in a single statement.
	// Returns ErrNoteNotFound if the note does not exist.
	SaveSummary(ctx context.Context, id uuid.UUID, summary string, status domain.NoteStatus) error

	// FindNotesByStatus retrieves notes with the specified status,
	// newest first. Returns an empty slice if none match.
	FindNotesByStatus(ctx context.Context, status domain.NoteStatus, limit, offset int) ([]*domain.Note, error)

	// WithTx returns a new NoteStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller.
	WithTx(tx *sql.Tx) NoteStore
}
