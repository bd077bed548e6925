// Package deepgram implements the transcription.Transcriber interface
// against the Deepgram pre-recorded audio REST API.
package deepgram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/phrazzld/murmur-api/internal/platform/logger"
	"github.com/phrazzld/murmur-api/internal/retry"
	"github.com/phrazzld/murmur-api/internal/transcription"
)

const defaultBaseURL = "https://api.deepgram.com/v1/listen"

// Config holds the Deepgram client settings.
type Config struct {
	// APIKey authenticates against the Deepgram API.
	APIKey string

	// Model selects the transcription model (e.g. "nova-2").
	Model string

	// Language is the language hint sent with every request.
	Language string

	// Timeout bounds each transcription call.
	Timeout time.Duration

	// BaseURL overrides the API endpoint; used by tests. Empty means
	// the production endpoint.
	BaseURL string
}

// Client calls the Deepgram pre-recorded transcription endpoint. It
// makes exactly one attempt per call; the worker owns retries.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Deepgram client from the given configuration.
func NewClient(cfg Config, log *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("deepgram API key cannot be empty")
	}
	if cfg.Model == "" {
		cfg.Model = "nova-2"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if log == nil {
		log = slog.Default()
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     log.With("component", "deepgram_client"),
	}, nil
}

var _ transcription.Transcriber = (*Client)(nil)

// response mirrors the subset of the Deepgram response the pipeline
// reads: results.channels[0].alternatives[0].
type response struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// Transcribe implements transcription.Transcriber.
func (c *Client) Transcribe(ctx context.Context, audio []byte, language string) (transcription.Result, error) {
	log := logger.FromContextOrDefault(ctx, c.logger)

	if len(audio) == 0 {
		return transcription.Result{}, retry.Permanent(transcription.ErrEmptyAudio)
	}
	if language == "" {
		language = c.cfg.Language
	}

	reqURL := fmt.Sprintf("%s?model=%s&language=%s&smart_format=true",
		c.cfg.BaseURL, url.QueryEscape(c.cfg.Model), url.QueryEscape(language))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(audio))
	if err != nil {
		return transcription.Result{}, fmt.Errorf("%w: %v", transcription.ErrTranscriptionFailed, err)
	}
	req.Header.Set("Authorization", "Token "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "audio/mpeg")

	log.Debug("calling speech-to-text service",
		"audio_bytes", len(audio),
		"model", c.cfg.Model,
		"language", language)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Network errors and timeouts are transient.
		return transcription.Result{}, fmt.Errorf("%w: %v", transcription.ErrTranscriptionFailed, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		err := fmt.Errorf("%w: status %d: %s",
			transcription.ErrTranscriptionFailed, resp.StatusCode, bytes.TrimSpace(body))
		if !isRetryableStatus(resp.StatusCode) {
			return transcription.Result{}, retry.Permanent(err)
		}
		return transcription.Result{}, err
	}

	var parsed response
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return transcription.Result{}, retry.Permanent(
			fmt.Errorf("%w: %v", transcription.ErrInvalidResponse, err))
	}

	if len(parsed.Results.Channels) == 0 || len(parsed.Results.Channels[0].Alternatives) == 0 {
		return transcription.Result{}, retry.Permanent(
			fmt.Errorf("%w: no alternatives in response", transcription.ErrInvalidResponse))
	}

	alt := parsed.Results.Channels[0].Alternatives[0]

	log.Debug("speech-to-text response received",
		"transcript_length", len(alt.Transcript),
		"confidence", alt.Confidence)

	return transcription.Result{
		Text:       alt.Transcript,
		Confidence: alt.Confidence,
	}, nil
}

// isRetryableStatus reports whether an HTTP status is worth another
// attempt. Server-side failures and throttling are; a rejected request
// will not become acceptable by retrying.
func isRetryableStatus(status int) bool {
	return status >= 500 ||
		status == http.StatusTooManyRequests ||
		status == http.StatusRequestTimeout
}
