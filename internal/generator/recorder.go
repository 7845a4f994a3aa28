package generator

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackzampolin/docsmith/internal/metrics"
)

type recorder struct {
	inner   Generator
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// Recorded wraps g so every invocation is logged and counted. Placed inside
// the retry decorator it observes each attempt, not just each stage.
func Recorded(g Generator, m *metrics.Metrics, logger *slog.Logger) Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &recorder{
		inner:   g,
		metrics: m,
		logger:  logger.With("component", "generator"),
	}
}

func (r *recorder) Invoke(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	start := time.Now()
	content, err := r.inner.Invoke(ctx, systemPrompt, userPrompt)
	elapsed := time.Since(start)

	switch {
	case err == nil:
		r.metrics.GeneratorCall("success")
		r.logger.Debug("generation succeeded", "seconds", elapsed.Seconds(), "chars", len(content))
	case IsContextTooLarge(err):
		r.metrics.GeneratorCall("context_too_large")
		r.logger.Warn("generation rejected for context size", "seconds", elapsed.Seconds())
	default:
		r.metrics.GeneratorCall("error")
		r.logger.Warn("generation failed", "seconds", elapsed.Seconds(), "error", err)
	}
	return content, err
}
