package worker

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/murmur-api/internal/domain"
	"github.com/phrazzld/murmur-api/internal/retry"
	"github.com/phrazzld/murmur-api/internal/transcription"
)

// fastPolicy keeps retry loops in tests effectively instantaneous
// while preserving the real attempt count.
var fastPolicy = retry.Policy{
	MaxAttempts: 3,
	BaseDelay:   time.Microsecond,
	MaxDelay:    time.Microsecond,
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeNoteStore is a single-note in-memory store used by both worker
// test suites. Error fields inject failures per method; statusHistory
// records every status write in order.
type fakeNoteStore struct {
	mu            sync.Mutex
	note          *domain.Note
	statusHistory []domain.NoteStatus

	getErr         error
	updateErr      error
	saveTransErr   error
	saveSummaryErr error
}

func newFakeNoteStore(note *domain.Note) *fakeNoteStore {
	return &fakeNoteStore{note: note}
}

func (s *fakeNoteStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	copied := *s.note
	return &copied, nil
}

func (s *fakeNoteStore) UpdateStatus(_ context.Context, id uuid.UUID, status domain.NoteStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	s.note.Status = status
	s.statusHistory = append(s.statusHistory, status)
	return nil
}

func (s *fakeNoteStore) SaveTranscription(_ context.Context, id uuid.UUID, text string, status domain.NoteStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveTransErr != nil {
		return s.saveTransErr
	}
	s.note.Transcription = &text
	s.note.Status = status
	s.statusHistory = append(s.statusHistory, status)
	return nil
}

func (s *fakeNoteStore) SaveSummary(_ context.Context, id uuid.UUID, summary string, status domain.NoteStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveSummaryErr != nil {
		return s.saveSummaryErr
	}
	s.note.Summary = &summary
	s.note.Status = status
	s.statusHistory = append(s.statusHistory, status)
	return nil
}

func (s *fakeNoteStore) currentStatus() domain.NoteStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.note.Status
}

func (s *fakeNoteStore) snapshot() (domain.Note, []domain.NoteStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := make([]domain.NoteStatus, len(s.statusHistory))
	copy(history, s.statusHistory)
	return *s.note, history
}

// stubTranscriber returns a fixed result or error and counts calls.
type stubTranscriber struct {
	mu     sync.Mutex
	result transcription.Result
	err    error
	calls  int
}

func (t *stubTranscriber) Transcribe(_ context.Context, _ []byte, _ string) (transcription.Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls++
	if t.err != nil {
		return transcription.Result{}, t.err
	}
	return t.result, nil
}

func (t *stubTranscriber) callCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

// stubSummarizer returns a fixed summary or error and counts calls.
type stubSummarizer struct {
	mu      sync.Mutex
	summary string
	err     error
	calls   int
}

func (s *stubSummarizer) Summarize(_ context.Context, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.summary, nil
}

func (s *stubSummarizer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// publishedMessage records one Publish call on recordingPublisher.
type publishedMessage struct {
	queueName string
	body      []byte
}

// recordingPublisher captures published messages for assertions.
type recordingPublisher struct {
	mu        sync.Mutex
	published []publishedMessage
	err       error
}

func (p *recordingPublisher) Declare(_ context.Context, _ string) error {
	return nil
}

func (p *recordingPublisher) Publish(_ context.Context, queueName string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, publishedMessage{queueName: queueName, body: body})
	return nil
}

func (p *recordingPublisher) messages() []publishedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]publishedMessage, len(p.published))
	copy(out, p.published)
	return out
}

func stringPtr(s string) *string {
	return &s
}

func pendingNote(status domain.NoteStatus) *domain.Note {
	now := time.Now().UTC()
	return &domain.Note{
		ID:        uuid.New(),
		UserID:    "user-1",
		Title:     "standup notes",
		FilePath:  "/uploads/standup.mp3",
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
