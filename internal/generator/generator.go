// Package generator provides the text-generation backend used by the
// documentation pipeline. The concrete client speaks an OpenRouter-style chat
// completion API; callers only see the Generator interface, so tests and the
// pipeline can swap in stubs or decorators (retry, single-permit gate).
package generator

import (
	"context"
	"errors"
)

// Generator produces text for one prompt pair. Implementations may block on
// network calls and must respect context cancellation.
type Generator interface {
	Invoke(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ErrContextTooLarge marks the transient error class raised when the backend
// rejects a request for exceeding its context window. Only this class is
// retried; everything else fails the stage immediately.
var ErrContextTooLarge = errors.New("generator: context too large")

// IsContextTooLarge reports whether err belongs to the retryable
// context-too-large class.
func IsContextTooLarge(err error) bool {
	return errors.Is(err, ErrContextTooLarge)
}

// Func adapts a plain function to the Generator interface.
type Func func(ctx context.Context, systemPrompt, userPrompt string) (string, error)

// Invoke implements Generator.
func (f Func) Invoke(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return f(ctx, systemPrompt, userPrompt)
}
