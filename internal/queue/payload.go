package queue

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// TranscriptionTask is the wire payload published to the transcription
// queue when an upload completes.
type TranscriptionTask struct {
	NoteID   uuid.UUID `json:"note_id"`
	FilePath string    `json:"file_path"`
	UserID   string    `json:"user_id"`
}

// SummarizationTask is the wire payload published to the summarization
// queue after a transcript has been persisted.
type SummarizationTask struct {
	NoteID uuid.UUID `json:"note_id"`
}

// DecodeTranscriptionTask parses a transcription task payload.
func DecodeTranscriptionTask(body []byte) (TranscriptionTask, error) {
	var task TranscriptionTask
	if err := json.Unmarshal(body, &task); err != nil {
		return TranscriptionTask{}, fmt.Errorf("malformed transcription task payload: %w", err)
	}
	if task.NoteID == uuid.Nil {
		return TranscriptionTask{}, fmt.Errorf("transcription task payload missing note_id")
	}
	return task, nil
}

// DecodeSummarizationTask parses a summarization task payload.
func DecodeSummarizationTask(body []byte) (SummarizationTask, error) {
	var task SummarizationTask
	if err := json.Unmarshal(body, &task); err != nil {
		return SummarizationTask{}, fmt.Errorf("malformed summarization task payload: %w", err)
	}
	if task.NoteID == uuid.Nil {
		return SummarizationTask{}, fmt.Errorf("summarization task payload missing note_id")
	}
	return task, nil
}
