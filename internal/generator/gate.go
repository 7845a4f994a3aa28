package generator

import "context"

// Gate serializes all Invoke calls through a single permit. The backend
// session is not safe for concurrent use and concurrent calls have been
// observed to trigger context-overflow errors, so at most one generation is
// in flight process-wide. Owned by the generator stack rather than sprinkled
// through call sites, which keeps the invariant testable in isolation.
type Gate struct {
	inner  Generator
	permit chan struct{}
}

// Gated wraps g so that all invocations are mutually exclusive.
func Gated(g Generator) *Gate {
	return &Gate{
		inner:  g,
		permit: make(chan struct{}, 1),
	}
}

// Invoke acquires the single permit, runs the inner generator, and releases
// the permit. Waiting callers are released in channel order.
func (g *Gate) Invoke(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	select {
	case g.permit <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-g.permit }()

	return g.inner.Invoke(ctx, systemPrompt, userPrompt)
}

// InFlight reports whether a call currently holds the permit.
func (g *Gate) InFlight() bool {
	return len(g.permit) > 0
}
