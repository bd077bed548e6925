package transcription

import "errors"

// Common errors returned by Transcriber implementations.
var (
	// ErrTranscriptionFailed is returned when the external service
	// fails for any general reason (timeout, non-success status).
	ErrTranscriptionFailed = errors.New("failed to transcribe audio")

	// ErrInvalidResponse is returned when the service response cannot
	// be parsed or is missing the transcript.
	ErrInvalidResponse = errors.New("invalid response from speech-to-text service")

	// ErrEmptyAudio is returned when the audio payload is empty.
	// Retrying cannot help.
	ErrEmptyAudio = errors.New("audio payload is empty")
)
