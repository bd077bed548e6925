package service

import (
	"database/sql"

	"github.com/phrazzld/murmur-api/internal/store"
)

// NoteRepositoryAdapter adapts a store.NoteStore to NoteRepository so
// the service layer does not depend on a store implementation
// directly.
type NoteRepositoryAdapter struct {
	store.NoteStore
	db *sql.DB
}

// NewNoteRepositoryAdapter creates an adapter that implements
// NoteRepository by delegating to a store.NoteStore implementation.
func NewNoteRepositoryAdapter(noteStore store.NoteStore, db *sql.DB) *NoteRepositoryAdapter {
	return &NoteRepositoryAdapter{
		NoteStore: noteStore,
		db:        db,
	}
}

// WithTx returns a repository bound to the given transaction.
func (a *NoteRepositoryAdapter) WithTx(tx *sql.Tx) NoteRepository {
	return &NoteRepositoryAdapter{
		NoteStore: a.NoteStore.WithTx(tx),
		db:        a.db,
	}
}

// DB returns the underlying database handle.
func (a *NoteRepositoryAdapter) DB() *sql.DB {
	return a.db
}

var _ NoteRepository = (*NoteRepositoryAdapter)(nil)
