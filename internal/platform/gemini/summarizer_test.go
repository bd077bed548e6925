package gemini

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/phrazzld/murmur-api/internal/retry"
	"github.com/phrazzld/murmur-api/internal/summarization"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

// stubClient implements generativeClient for tests.
type stubClient struct {
	generateFunc func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

func (c *stubClient) GenerateContent(
	ctx context.Context,
	model string,
	contents []*genai.Content,
	config *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	return c.generateFunc(ctx, model, contents, config)
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				Content: &genai.Content{
					Parts: []*genai.Part{{Text: text}},
				},
			},
		},
	}
}

func newStubSummarizer(client generativeClient) *Summarizer {
	return &Summarizer{
		client:    client,
		modelName: "stub-model",
		timeout:   time.Second,
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	t.Run("returns trimmed summary text", func(t *testing.T) {
		s := newStubSummarizer(&stubClient{
			generateFunc: func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
				return textResponse("  A test.\n"), nil
			},
		})

		summary, err := s.Summarize(context.Background(), "hello world, this is a test")

		require.NoError(t, err)
		assert.Equal(t, "A test.", summary)
	})

	t.Run("sends the prompt to the selected model", func(t *testing.T) {
		var seenModel, seenPrompt string
		s := newStubSummarizer(&stubClient{
			generateFunc: func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
				seenModel = model
				for _, content := range contents {
					for _, part := range content.Parts {
						seenPrompt += part.Text
					}
				}
				return textResponse("ok"), nil
			},
		})

		_, err := s.Summarize(context.Background(), "the transcript body")

		require.NoError(t, err)
		assert.Equal(t, "stub-model", seenModel)
		assert.Contains(t, seenPrompt, "the transcript body")
	})

	t.Run("empty text is a permanent failure without an API call", func(t *testing.T) {
		called := false
		s := newStubSummarizer(&stubClient{
			generateFunc: func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
				called = true
				return textResponse("ok"), nil
			},
		})

		_, err := s.Summarize(context.Background(), "")

		assert.ErrorIs(t, err, summarization.ErrEmptyText)
		assert.True(t, retry.IsPermanent(err))
		assert.False(t, called)
	})

	t.Run("API error is transient", func(t *testing.T) {
		s := newStubSummarizer(&stubClient{
			generateFunc: func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
				return nil, errors.New("503 service unavailable")
			},
		})

		_, err := s.Summarize(context.Background(), "some text")

		assert.ErrorIs(t, err, summarization.ErrSummarizationFailed)
		assert.False(t, retry.IsPermanent(err))
	})

	t.Run("empty candidates are a permanent failure", func(t *testing.T) {
		s := newStubSummarizer(&stubClient{
			generateFunc: func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
				return &genai.GenerateContentResponse{}, nil
			},
		})

		_, err := s.Summarize(context.Background(), "some text")

		assert.ErrorIs(t, err, summarization.ErrInvalidResponse)
		assert.True(t, retry.IsPermanent(err))
	})

	t.Run("safety-blocked content is a permanent failure", func(t *testing.T) {
		s := newStubSummarizer(&stubClient{
			generateFunc: func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
				return &genai.GenerateContentResponse{
					Candidates: []*genai.Candidate{
						{
							Content:      &genai.Content{Parts: []*genai.Part{{Text: "x"}}},
							FinishReason: genai.FinishReasonSafety,
						},
					},
				}, nil
			},
		})

		_, err := s.Summarize(context.Background(), "some text")

		assert.ErrorIs(t, err, summarization.ErrInvalidResponse)
		assert.True(t, retry.IsPermanent(err))
	})
}
