package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/murmur-api/internal/domain"
	"github.com/phrazzld/murmur-api/internal/queue"
	"github.com/phrazzld/murmur-api/internal/store"
)

// MockNoteRepository is a mock implementation of NoteRepository.
type MockNoteRepository struct {
	mock.Mock
	db *sql.DB
}

func (m *MockNoteRepository) Create(ctx context.Context, note *domain.Note) error {
	args := m.Called(ctx, note)
	return args.Error(0)
}

func (m *MockNoteRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Note, error) {
	args := m.Called(ctx, id)
	note, _ := args.Get(0).(*domain.Note)
	return note, args.Error(1)
}

func (m *MockNoteRepository) FindNotesByStatus(
	ctx context.Context,
	status domain.NoteStatus,
	limit, offset int,
) ([]*domain.Note, error) {
	args := m.Called(ctx, status, limit, offset)
	notes, _ := args.Get(0).([]*domain.Note)
	return notes, args.Error(1)
}

func (m *MockNoteRepository) WithTx(tx *sql.Tx) NoteRepository {
	return m
}

func (m *MockNoteRepository) DB() *sql.DB {
	return m.db
}

// fakePublisher records Publish calls for assertions.
type fakePublisher struct {
	mu        sync.Mutex
	queueName string
	body      []byte
	calls     int
	err       error
}

func (p *fakePublisher) Declare(_ context.Context, _ string) error {
	return nil
}

func (p *fakePublisher) Publish(_ context.Context, queueName string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return p.err
	}
	p.queueName = queueName
	p.body = body
	return nil
}

// newMockRepo returns a repository mock backed by a sqlmock database
// that accepts one begin/commit pair.
func newMockRepo(t *testing.T) (*MockNoteRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &MockNoteRepository{db: db}, dbMock
}

func TestNewNoteService_Validation(t *testing.T) {
	t.Parallel()

	repo := &MockNoteRepository{}
	pub := &fakePublisher{}

	_, err := NewNoteService(nil, pub, slog.Default())
	assert.Error(t, err)

	_, err = NewNoteService(repo, nil, slog.Default())
	assert.Error(t, err)

	svc, err := NewNoteService(repo, pub, nil)
	assert.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestCreateNoteAndEnqueueTask_Success(t *testing.T) {
	t.Parallel()

	repo, dbMock := newMockRepo(t)
	dbMock.ExpectBegin()
	dbMock.ExpectCommit()

	repo.On("Create", mock.Anything, mock.MatchedBy(func(note *domain.Note) bool {
		return note.UserID == "user-1" &&
			note.FilePath == "/uploads/standup.mp3" &&
			note.Status == domain.NoteStatusPending
	})).Return(nil)

	pub := &fakePublisher{}
	svc, err := NewNoteService(repo, pub, slog.Default())
	require.NoError(t, err)

	note, err := svc.CreateNoteAndEnqueueTask(
		context.Background(), "user-1", "standup notes", "/uploads/standup.mp3")
	require.NoError(t, err)
	require.NotNil(t, note)
	assert.Equal(t, domain.NoteStatusPending, note.Status)

	assert.Equal(t, queue.QueueTranscription, pub.queueName)
	task, err := queue.DecodeTranscriptionTask(pub.body)
	require.NoError(t, err)
	assert.Equal(t, note.ID, task.NoteID)
	assert.Equal(t, "/uploads/standup.mp3", task.FilePath)
	assert.Equal(t, "user-1", task.UserID)

	repo.AssertExpectations(t)
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestCreateNoteAndEnqueueTask_InvalidInput(t *testing.T) {
	t.Parallel()

	repo, _ := newMockRepo(t)
	pub := &fakePublisher{}
	svc, err := NewNoteService(repo, pub, slog.Default())
	require.NoError(t, err)

	_, err = svc.CreateNoteAndEnqueueTask(context.Background(), "", "title", "/uploads/a.mp3")
	assert.Error(t, err)

	_, err = svc.CreateNoteAndEnqueueTask(context.Background(), "user-1", "title", "")
	assert.Error(t, err)

	repo.AssertNotCalled(t, "Create")
	assert.Zero(t, pub.calls)
}

func TestCreateNoteAndEnqueueTask_CreateFails(t *testing.T) {
	t.Parallel()

	repo, dbMock := newMockRepo(t)
	dbMock.ExpectBegin()
	dbMock.ExpectRollback()

	createErr := errors.New("insert failed")
	repo.On("Create", mock.Anything, mock.Anything).Return(createErr)

	pub := &fakePublisher{}
	svc, err := NewNoteService(repo, pub, slog.Default())
	require.NoError(t, err)

	_, err = svc.CreateNoteAndEnqueueTask(
		context.Background(), "user-1", "standup notes", "/uploads/standup.mp3")
	require.Error(t, err)

	var svcErr *NoteServiceError
	assert.ErrorAs(t, err, &svcErr)
	assert.Zero(t, pub.calls)
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestCreateNoteAndEnqueueTask_PublishFails(t *testing.T) {
	t.Parallel()

	repo, dbMock := newMockRepo(t)
	dbMock.ExpectBegin()
	dbMock.ExpectCommit()
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	pub := &fakePublisher{err: errors.New("broker down")}
	svc, err := NewNoteService(repo, pub, slog.Default())
	require.NoError(t, err)

	_, err = svc.CreateNoteAndEnqueueTask(
		context.Background(), "user-1", "standup notes", "/uploads/standup.mp3")
	require.Error(t, err)

	// The note row committed before the publish was attempted; the
	// caller gets the error and can retry the enqueue.
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestGetNote(t *testing.T) {
	t.Parallel()

	t.Run("found", func(t *testing.T) {
		t.Parallel()

		repo, _ := newMockRepo(t)
		want, err := domain.NewNote("user-1", "standup notes", "/uploads/standup.mp3")
		require.NoError(t, err)
		repo.On("GetByID", mock.Anything, want.ID).Return(want, nil)

		svc, err := NewNoteService(repo, &fakePublisher{}, slog.Default())
		require.NoError(t, err)

		got, err := svc.GetNote(context.Background(), want.ID)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()

		repo, _ := newMockRepo(t)
		id := uuid.New()
		repo.On("GetByID", mock.Anything, id).Return(nil, store.ErrNoteNotFound)

		svc, err := NewNoteService(repo, &fakePublisher{}, slog.Default())
		require.NoError(t, err)

		_, err = svc.GetNote(context.Background(), id)
		assert.ErrorIs(t, err, ErrNoteNotFound)
	})
}

func TestListNotesByStatus(t *testing.T) {
	t.Parallel()

	t.Run("valid status", func(t *testing.T) {
		t.Parallel()

		repo, _ := newMockRepo(t)
		repo.On("FindNotesByStatus", mock.Anything, domain.NoteStatusCompleted, 10, 0).
			Return([]*domain.Note{}, nil)

		svc, err := NewNoteService(repo, &fakePublisher{}, slog.Default())
		require.NoError(t, err)

		notes, err := svc.ListNotesByStatus(context.Background(), domain.NoteStatusCompleted, 10, 0)
		require.NoError(t, err)
		assert.Empty(t, notes)
	})

	t.Run("invalid status", func(t *testing.T) {
		t.Parallel()

		repo, _ := newMockRepo(t)
		svc, err := NewNoteService(repo, &fakePublisher{}, slog.Default())
		require.NoError(t, err)

		_, err = svc.ListNotesByStatus(context.Background(), domain.NoteStatus("bogus"), 10, 0)
		assert.Error(t, err)
		repo.AssertNotCalled(t, "FindNotesByStatus")
	})
}
