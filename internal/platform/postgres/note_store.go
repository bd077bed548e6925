package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/murmur-api/internal/domain"
	"github.com/phrazzld/murmur-api/internal/platform/logger"
	"github.com/phrazzld/murmur-api/internal/store"
)

// PostgreSQL error codes
const pgForeignKeyViolationCode = "23503"

// PostgresNoteStore implements the store.NoteStore interface
// using a PostgreSQL database as the storage backend.
type PostgresNoteStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresNoteStore creates a new PostgreSQL implementation of the
// NoteStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresNoteStore(db store.DBTX, logger *slog.Logger) *PostgresNoteStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresNoteStore{
		db:     db,
		logger: logger.With(slog.String("component", "note_store")),
	}
}

// Ensure PostgresNoteStore implements store.NoteStore interface
var _ store.NoteStore = (*PostgresNoteStore)(nil)

// WithTx implements store.NoteStore.WithTx
func (s *PostgresNoteStore) WithTx(tx *sql.Tx) store.NoteStore {
	return &PostgresNoteStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.NoteStore.Create
// It saves a new note to the database, handling domain validation.
// Returns store.ErrInvalidEntity if the user ID doesn't exist
// (foreign key violation).
func (s *PostgresNoteStore) Create(ctx context.Context, note *domain.Note) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := note.Validate(); err != nil {
		log.Warn("note validation failed during create",
			slog.String("error", err.Error()),
			slog.String("note_id", note.ID.String()))
		return err
	}

	query := `
		INSERT INTO notes (id, user_id, title, tags, file_path, text_notes, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		note.ID,
		note.UserID,
		note.Title,
		note.Tags,
		note.FilePath,
		note.TextNotes,
		note.Status,
		note.CreatedAt,
		note.UpdatedAt,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolationCode {
			log.Warn("foreign key violation during note creation",
				slog.String("error", err.Error()),
				slog.String("note_id", note.ID.String()),
				slog.String("user_id", note.UserID))
			return fmt.Errorf("%w: user with ID %s not found",
				store.ErrInvalidEntity, note.UserID)
		}

		log.Error("failed to create note",
			slog.String("error", err.Error()),
			slog.String("note_id", note.ID.String()),
			slog.String("user_id", note.UserID))
		return err
	}

	log.Info("note created successfully",
		slog.String("note_id", note.ID.String()),
		slog.String("user_id", note.UserID),
		slog.String("status", string(note.Status)))
	return nil
}

// GetByID implements store.NoteStore.GetByID
// It retrieves a note by its unique ID.
// Returns store.ErrNoteNotFound if the note does not exist.
func (s *PostgresNoteStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Note, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	log.Debug("retrieving note by ID", slog.String("note_id", id.String()))

	query := `
		SELECT id, user_id, title, tags, file_path, text_notes, transcription, summary, status, created_at, updated_at
		FROM notes
		WHERE id = $1
	`

	var note domain.Note
	var status string
	var tags sql.NullString

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&note.ID,
		&note.UserID,
		&note.Title,
		&tags,
		&note.FilePath,
		&note.TextNotes,
		&note.Transcription,
		&note.Summary,
		&status,
		&note.CreatedAt,
		&note.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("note not found", slog.String("note_id", id.String()))
			return nil, store.ErrNoteNotFound
		}
		log.Error("failed to get note by ID",
			slog.String("error", err.Error()),
			slog.String("note_id", id.String()))
		return nil, err
	}

	note.Status = domain.NoteStatus(status)
	if tags.Valid {
		note.Tags = tags.String
	}

	log.Debug("note retrieved successfully",
		slog.String("note_id", id.String()),
		slog.String("status", string(note.Status)))
	return &note, nil
}

// UpdateStatus implements store.NoteStore.UpdateStatus
// It updates only the status field of an existing note.
// Returns store.ErrNoteNotFound if the note does not exist.
// Returns domain.ErrInvalidNoteStatus if the status is unknown.
func (s *PostgresNoteStore) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.NoteStatus) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	log.Debug("updating note status",
		slog.String("note_id", id.String()),
		slog.String("status", string(status)))

	if !status.IsValid() {
		log.Warn("rejected unknown note status",
			slog.String("note_id", id.String()),
			slog.String("status", string(status)))
		return domain.ErrInvalidNoteStatus
	}

	query := `
		UPDATE notes
		SET status = $1, updated_at = $2
		WHERE id = $3
	`

	return s.execScopedUpdate(ctx, log, id, "status", query, status, time.Now().UTC(), id)
}

// SaveTranscription implements store.NoteStore.SaveTranscription
// It persists the transcript and the new status in one statement so a
// crash cannot leave a transcript without its status advance.
func (s *PostgresNoteStore) SaveTranscription(
	ctx context.Context,
	id uuid.UUID,
	transcriptionText string,
	status domain.NoteStatus,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	log.Debug("saving transcription",
		slog.String("note_id", id.String()),
		slog.Int("transcription_length", len(transcriptionText)),
		slog.String("status", string(status)))

	if !status.IsValid() {
		return domain.ErrInvalidNoteStatus
	}

	query := `
		UPDATE notes
		SET transcription = $1, status = $2, updated_at = $3
		WHERE id = $4
	`

	return s.execScopedUpdate(ctx, log, id, "transcription", query,
		transcriptionText, status, time.Now().UTC(), id)
}

// SaveSummary implements store.NoteStore.SaveSummary
// It persists the summary and the new status in one statement.
func (s *PostgresNoteStore) SaveSummary(
	ctx context.Context,
	id uuid.UUID,
	summaryText string,
	status domain.NoteStatus,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	log.Debug("saving summary",
		slog.String("note_id", id.String()),
		slog.Int("summary_length", len(summaryText)),
		slog.String("status", string(status)))

	if !status.IsValid() {
		return domain.ErrInvalidNoteStatus
	}

	query := `
		UPDATE notes
		SET summary = $1, status = $2, updated_at = $3
		WHERE id = $4
	`

	return s.execScopedUpdate(ctx, log, id, "summary", query,
		summaryText, status, time.Now().UTC(), id)
}

// FindNotesByStatus implements store.NoteStore.FindNotesByStatus
// It retrieves notes with the specified status, newest first.
// Returns an empty slice if no notes match the criteria.
func (s *PostgresNoteStore) FindNotesByStatus(
	ctx context.Context,
	status domain.NoteStatus,
	limit, offset int,
) ([]*domain.Note, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	log.Debug("finding notes by status",
		slog.String("status", string(status)),
		slog.Int("limit", limit),
		slog.Int("offset", offset))

	query := `
		SELECT id, user_id, title, tags, file_path, text_notes, transcription, summary, status, created_at, updated_at
		FROM notes
		WHERE status = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := s.db.QueryContext(ctx, query, status, limit, offset)
	if err != nil {
		log.Error("failed to query notes by status",
			slog.String("error", err.Error()),
			slog.String("status", string(status)))
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	var notes []*domain.Note
	for rows.Next() {
		var note domain.Note
		var statusStr string
		var tags sql.NullString

		err := rows.Scan(
			&note.ID,
			&note.UserID,
			&note.Title,
			&tags,
			&note.FilePath,
			&note.TextNotes,
			&note.Transcription,
			&note.Summary,
			&statusStr,
			&note.CreatedAt,
			&note.UpdatedAt,
		)
		if err != nil {
			log.Error("failed to scan note row",
				slog.String("error", err.Error()))
			return nil, err
		}

		note.Status = domain.NoteStatus(statusStr)
		if tags.Valid {
			note.Tags = tags.String
		}
		notes = append(notes, &note)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows",
			slog.String("error", err.Error()))
		return nil, err
	}

	if notes == nil {
		notes = []*domain.Note{}
	}

	log.Debug("found notes by status",
		slog.String("status", string(status)),
		slog.Int("count", len(notes)))
	return notes, nil
}

// execScopedUpdate runs a single-record UPDATE and maps zero affected
// rows to store.ErrNoteNotFound.
func (s *PostgresNoteStore) execScopedUpdate(
	ctx context.Context,
	log *slog.Logger,
	id uuid.UUID,
	field string,
	query string,
	args ...any,
) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to update note",
			slog.String("error", err.Error()),
			slog.String("note_id", id.String()),
			slog.String("field", field))
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Error("failed to get rows affected",
			slog.String("error", err.Error()),
			slog.String("note_id", id.String()))
		return err
	}

	if rowsAffected == 0 {
		log.Debug("note not found for update",
			slog.String("note_id", id.String()),
			slog.String("field", field))
		return store.ErrNoteNotFound
	}

	log.Info("note updated successfully",
		slog.String("note_id", id.String()),
		slog.String("field", field))
	return nil
}
