// Package transcription defines the boundary between the pipeline and
// external speech-to-text services. Concrete clients live under
// internal/platform; the worker owns all retry logic, so
// implementations make exactly one attempt per call.
package transcription

import "context"

// Result holds the outcome of a successful transcription call.
type Result struct {
	// Text is the transcript of the audio payload.
	Text string

	// Confidence is the service's confidence score in [0, 1].
	Confidence float64
}

// Transcriber converts raw audio bytes into text.
type Transcriber interface {
	// Transcribe sends the audio to the external speech-to-text
	// service with a language hint and returns the transcript.
	// Implementations make a single attempt; failures are returned to
	// the caller, which owns retries.
	Transcribe(ctx context.Context, audio []byte, language string) (Result, error)
}
