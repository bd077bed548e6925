package domain

import (
	"time"

	"github.com/google/uuid"
)

// NoteStatus represents the processing state of an audio note.
type NoteStatus string

// Possible note status values, in pipeline order.
const (
	NoteStatusPending              NoteStatus = "pending"
	NoteStatusProcessing           NoteStatus = "processing"
	NoteStatusPendingSummarization NoteStatus = "pending_summarization"
	NoteStatusProcessingSummary    NoteStatus = "processing_summary"
	NoteStatusCompleted            NoteStatus = "completed"
	NoteStatusFailed               NoteStatus = "failed"
)

// statusRank orders the non-terminal pipeline states so transitions
// can be checked for forward progress.
var statusRank = map[NoteStatus]int{
	NoteStatusPending:              0,
	NoteStatusProcessing:           1,
	NoteStatusPendingSummarization: 2,
	NoteStatusProcessingSummary:    3,
	NoteStatusCompleted:            4,
}

// IsValid reports whether the status is one of the known values.
func (s NoteStatus) IsValid() bool {
	switch s {
	case NoteStatusPending, NoteStatusProcessing, NoteStatusPendingSummarization,
		NoteStatusProcessingSummary, NoteStatusCompleted, NoteStatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status permits no further transitions.
func (s NoteStatus) IsTerminal() bool {
	return s == NoteStatusCompleted || s == NoteStatusFailed
}

// CanTransitionTo reports whether moving from s to next is a legal
// state-machine transition. Statuses only move forward along the
// pipeline; failed is reachable from any non-terminal state; terminal
// states absorb.
func (s NoteStatus) CanTransitionTo(next NoteStatus) bool {
	if !s.IsValid() || !next.IsValid() {
		return false
	}
	if s.IsTerminal() {
		return false
	}
	if next == NoteStatusFailed {
		return true
	}
	return statusRank[next] > statusRank[s]
}

// Note represents an audio note submitted by a user and its progress
// through the transcription/summarization pipeline. Status is the
// single source of truth for pipeline progress.
type Note struct {
	ID            uuid.UUID  `json:"id"`
	UserID        string     `json:"user_id"`
	Title         string     `json:"title"`
	Tags          string     `json:"tags,omitempty"`
	FilePath      string     `json:"file_path"`
	TextNotes     *string    `json:"text_notes,omitempty"`
	Transcription *string    `json:"transcription,omitempty"`
	Summary       *string    `json:"summary,omitempty"`
	Status        NoteStatus `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// NewNote creates a new Note with pending status and a fresh ID.
// Returns an error if validation fails.
func NewNote(userID, title, filePath string) (*Note, error) {
	now := time.Now().UTC()
	note := &Note{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     title,
		FilePath:  filePath,
		Status:    NoteStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := note.Validate(); err != nil {
		return nil, err
	}

	return note, nil
}

// Validate checks if the Note has valid data.
func (n *Note) Validate() error {
	if n.ID == uuid.Nil {
		return ErrEmptyNoteID
	}

	if n.UserID == "" {
		return ErrEmptyNoteUserID
	}

	if n.FilePath == "" {
		return ErrEmptyNoteFilePath
	}

	if !n.Status.IsValid() {
		return ErrInvalidNoteStatus
	}

	return nil
}

// UpdateStatus moves the note to the given status, enforcing the
// state machine. Returns ErrInvalidStatusTransition if the move is
// illegal and ErrInvalidNoteStatus if the status is unknown.
func (n *Note) UpdateStatus(status NoteStatus) error {
	if !status.IsValid() {
		return ErrInvalidNoteStatus
	}

	if !n.Status.CanTransitionTo(status) {
		return ErrInvalidStatusTransition
	}

	n.Status = status
	n.UpdatedAt = time.Now().UTC()
	return nil
}

// HasTranscription reports whether a transcript has been stored.
func (n *Note) HasTranscription() bool {
	return n.Transcription != nil && *n.Transcription != ""
}
