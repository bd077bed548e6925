package summarization

import "errors"

// Common errors returned by Summarizer implementations.
var (
	// ErrSummarizationFailed is returned when the external service
	// fails for any general reason (timeout, non-success status).
	ErrSummarizationFailed = errors.New("failed to summarize text")

	// ErrInvalidResponse is returned when the service response is
	// empty or cannot be parsed.
	ErrInvalidResponse = errors.New("invalid response from summarization service")

	// ErrEmptyText is returned when there is no text to summarize.
	// Retrying cannot help.
	ErrEmptyText = errors.New("text to summarize is empty")
)
