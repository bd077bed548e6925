package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNote(t *testing.T) {
	t.Parallel()

	t.Run("creates pending note with valid parameters", func(t *testing.T) {
		note, err := NewNote("u1", "standup recap", "audio/a.mp3")

		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, note.ID)
		assert.Equal(t, "u1", note.UserID)
		assert.Equal(t, NoteStatusPending, note.Status)
		assert.Nil(t, note.Transcription)
		assert.Nil(t, note.Summary)
		assert.False(t, note.CreatedAt.IsZero())
	})

	t.Run("fails with empty user ID", func(t *testing.T) {
		note, err := NewNote("", "title", "audio/a.mp3")

		assert.ErrorIs(t, err, ErrEmptyNoteUserID)
		assert.Nil(t, note)
	})

	t.Run("fails with empty file path", func(t *testing.T) {
		note, err := NewNote("u1", "title", "")

		assert.ErrorIs(t, err, ErrEmptyNoteFilePath)
		assert.Nil(t, note)
	})
}

func TestNoteStatusCanTransitionTo(t *testing.T) {
	t.Parallel()

	t.Run("allows the happy path in order", func(t *testing.T) {
		path := []NoteStatus{
			NoteStatusPending,
			NoteStatusProcessing,
			NoteStatusPendingSummarization,
			NoteStatusProcessingSummary,
			NoteStatusCompleted,
		}
		for i := 0; i < len(path)-1; i++ {
			assert.True(t, path[i].CanTransitionTo(path[i+1]),
				"%s -> %s should be legal", path[i], path[i+1])
		}
	})

	t.Run("allows failed from any non-terminal state", func(t *testing.T) {
		for _, s := range []NoteStatus{
			NoteStatusPending,
			NoteStatusProcessing,
			NoteStatusPendingSummarization,
			NoteStatusProcessingSummary,
		} {
			assert.True(t, s.CanTransitionTo(NoteStatusFailed), "%s -> failed", s)
		}
	})

	t.Run("forbids moving backward", func(t *testing.T) {
		assert.False(t, NoteStatusProcessing.CanTransitionTo(NoteStatusPending))
		assert.False(t, NoteStatusPendingSummarization.CanTransitionTo(NoteStatusProcessing))
		assert.False(t, NoteStatusProcessingSummary.CanTransitionTo(NoteStatusPendingSummarization))
	})

	t.Run("terminal states absorb", func(t *testing.T) {
		for _, s := range []NoteStatus{NoteStatusCompleted, NoteStatusFailed} {
			assert.False(t, s.CanTransitionTo(NoteStatusPending))
			assert.False(t, s.CanTransitionTo(NoteStatusProcessing))
			assert.False(t, s.CanTransitionTo(NoteStatusFailed))
			assert.False(t, s.CanTransitionTo(NoteStatusCompleted))
		}
	})

	t.Run("rejects unknown statuses", func(t *testing.T) {
		assert.False(t, NoteStatus("bogus").CanTransitionTo(NoteStatusFailed))
		assert.False(t, NoteStatusPending.CanTransitionTo(NoteStatus("bogus")))
	})
}

func TestNoteUpdateStatus(t *testing.T) {
	t.Parallel()

	t.Run("applies a legal transition and bumps UpdatedAt", func(t *testing.T) {
		note, err := NewNote("u1", "t", "a.mp3")
		require.NoError(t, err)
		before := note.UpdatedAt

		require.NoError(t, note.UpdateStatus(NoteStatusProcessing))
		assert.Equal(t, NoteStatusProcessing, note.Status)
		assert.False(t, note.UpdatedAt.Before(before))
	})

	t.Run("rejects an illegal transition", func(t *testing.T) {
		note, err := NewNote("u1", "t", "a.mp3")
		require.NoError(t, err)
		require.NoError(t, note.UpdateStatus(NoteStatusCompleted))

		err = note.UpdateStatus(NoteStatusProcessing)
		assert.ErrorIs(t, err, ErrInvalidStatusTransition)
		assert.Equal(t, NoteStatusCompleted, note.Status)
	})

	t.Run("rejects an unknown status", func(t *testing.T) {
		note, err := NewNote("u1", "t", "a.mp3")
		require.NoError(t, err)

		err = note.UpdateStatus(NoteStatus("bogus"))
		assert.ErrorIs(t, err, ErrInvalidNoteStatus)
	})
}

func TestNoteHasTranscription(t *testing.T) {
	t.Parallel()

	note, err := NewNote("u1", "t", "a.mp3")
	require.NoError(t, err)
	assert.False(t, note.HasTranscription())

	empty := ""
	note.Transcription = &empty
	assert.False(t, note.HasTranscription())

	text := "hello world"
	note.Transcription = &text
	assert.True(t, note.HasTranscription())
}
