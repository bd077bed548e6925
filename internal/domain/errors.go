package domain

import "errors"

// Common validation errors for Note.
var (
	ErrEmptyNoteID       = errors.New("note ID cannot be empty")
	ErrEmptyNoteUserID   = errors.New("note user ID cannot be empty")
	ErrEmptyNoteFilePath = errors.New("note file path cannot be empty")
	ErrInvalidNoteStatus = errors.New("invalid note status")

	// ErrInvalidStatusTransition is returned when a status change would
	// move a note backward through the pipeline or out of a terminal
	// state.
	ErrInvalidStatusTransition = errors.New("invalid note status transition")
)
