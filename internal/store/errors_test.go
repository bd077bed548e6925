package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNotFoundError(t *testing.T) {
	t.Parallel()

	assert.True(t, IsNotFoundError(ErrNotFound))
	assert.True(t, IsNotFoundError(ErrNoteNotFound))
	assert.True(t, IsNotFoundError(fmt.Errorf("loading note: %w", ErrNoteNotFound)))
	assert.False(t, IsNotFoundError(ErrUpdateFailed))
	assert.False(t, IsNotFoundError(errors.New("something else")))
	assert.False(t, IsNotFoundError(nil))
}

func TestStoreError(t *testing.T) {
	t.Parallel()

	t.Run("formats with wrapped error", func(t *testing.T) {
		inner := errors.New("connection refused")
		err := NewStoreError("note", "update", "status write failed", inner)

		assert.Contains(t, err.Error(), "update operation on note failed")
		assert.Contains(t, err.Error(), "connection refused")
		assert.ErrorIs(t, err, inner)
	})

	t.Run("formats without wrapped error", func(t *testing.T) {
		err := NewStoreError("note", "create", "no rows affected", nil)

		assert.Equal(t, "create operation on note failed: no rows affected", err.Error())
		assert.Nil(t, errors.Unwrap(err))
	})
}
