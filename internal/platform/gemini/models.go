package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"
)

// ErrNoModelAvailable is returned when none of the configured model
// candidates can be resolved.
var ErrNoModelAvailable = errors.New("no summarization model available")

// modelFinder is the slice of the genai models surface SelectModel
// uses; tests substitute a stub. *genai.Models satisfies it.
type modelFinder interface {
	Get(ctx context.Context, model string, config *genai.GetModelConfig) (*genai.Model, error)
}

// SelectModel tries the model candidates in priority order and returns
// the name of the first one the API can resolve. The name is fixed at
// startup and injected into the summarizer; there is no process-wide
// lazily initialized model.
func SelectModel(
	ctx context.Context,
	models modelFinder,
	candidates []string,
	logger *slog.Logger,
) (string, error) {
	if models == nil {
		return "", errors.New("model finder cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	for _, name := range candidates {
		if name == "" {
			continue
		}

		logger.Debug("trying summarization model", "model", name)
		if _, err := models.Get(ctx, name, nil); err != nil {
			logger.Warn("model unavailable", "model", name, "error", err)
			continue
		}

		logger.Info("selected summarization model", "model", name)
		return name, nil
	}

	return "", fmt.Errorf("%w: tried [%s]",
		ErrNoModelAvailable, strings.Join(candidates, ", "))
}
