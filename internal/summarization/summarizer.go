// Package summarization defines the boundary between the pipeline and
// external text summarization services. The worker owns all retry
// logic, so implementations make exactly one attempt per call.
package summarization

import "context"

// Summarizer produces a short synthesized summary of a text block.
type Summarizer interface {
	// Summarize sends the text to the external summarization service
	// and returns the summary. Implementations make a single attempt;
	// failures are returned to the caller, which owns retries.
	Summarize(ctx context.Context, text string) (string, error)
}
