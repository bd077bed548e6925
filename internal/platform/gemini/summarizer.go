// Package gemini implements the summarization.Summarizer interface
// using Google's Gemini API.
package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/phrazzld/murmur-api/internal/platform/logger"
	"github.com/phrazzld/murmur-api/internal/retry"
	"github.com/phrazzld/murmur-api/internal/summarization"
)

// summaryPromptFormat asks for a short synthesized summary of the
// transcript.
const summaryPromptFormat = `You are an assistant that writes short, informative summaries of audio notes.

Transcript:
%s

Task: write a brief summary (2-3 sentences) capturing the key points and main idea of the note.

Summary:`

// generativeClient is the slice of the genai generation surface the
// summarizer uses; tests substitute a stub. *genai.Models satisfies
// it.
type generativeClient interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Config holds the Gemini summarizer settings.
type Config struct {
	// APIKey authenticates against the Gemini API.
	APIKey string

	// ModelCandidates are tried in priority order.
	ModelCandidates []string

	// Timeout bounds each summarization call.
	Timeout time.Duration
}

// Summarizer generates note summaries with a Gemini model selected at
// construction time. It makes exactly one attempt per call; the worker
// owns retries.
type Summarizer struct {
	client    generativeClient
	modelName string
	timeout   time.Duration
	logger    *slog.Logger
}

// NewSummarizer creates a Gemini client, selects the first usable
// model from cfg.ModelCandidates, and returns a Summarizer bound to
// it. Returns ErrNoModelAvailable if no candidate works.
func NewSummarizer(ctx context.Context, cfg Config, log *slog.Logger) (*Summarizer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key cannot be empty")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "gemini_summarizer")

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	modelName, err := SelectModel(ctx, client.Models, cfg.ModelCandidates, log)
	if err != nil {
		return nil, err
	}

	return &Summarizer{
		client:    client.Models,
		modelName: modelName,
		timeout:   cfg.Timeout,
		logger:    log.With("model", modelName),
	}, nil
}

var _ summarization.Summarizer = (*Summarizer)(nil)

// Summarize implements summarization.Summarizer.
func (s *Summarizer) Summarize(ctx context.Context, text string) (string, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if text == "" {
		return "", retry.Permanent(summarization.ErrEmptyText)
	}

	prompt := fmt.Sprintf(summaryPromptFormat, text)

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	log.Debug("calling summarization service",
		"transcript_length", len(text),
		"model", s.modelName)

	resp, err := s.client.GenerateContent(callCtx, s.modelName, genai.Text(prompt), nil)
	if err != nil {
		// API errors (network, 5xx, timeout) are transient.
		return "", fmt.Errorf("%w: %v", summarization.ErrSummarizationFailed, err)
	}

	summary, err := extractText(resp)
	if err != nil {
		return "", err
	}

	log.Debug("summary generated", "summary_length", len(summary))
	return summary, nil
}

// extractText pulls the summary text out of a generation response,
// mapping malformed responses to permanent errors.
func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", retry.Permanent(
			fmt.Errorf("%w: no content generated", summarization.ErrInvalidResponse))
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return "", retry.Permanent(
			fmt.Errorf("%w: empty content in response", summarization.ErrInvalidResponse))
	}
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", retry.Permanent(
			fmt.Errorf("%w: content blocked by safety filters", summarization.ErrInvalidResponse))
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	text := strings.TrimSpace(sb.String())

	if text == "" {
		return "", retry.Permanent(
			fmt.Errorf("%w: empty summary text", summarization.ErrInvalidResponse))
	}

	return text, nil
}
