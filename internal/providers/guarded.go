package providers

import (
	"context"

	"github.com/local/pdf2md/internal/breaker"
	"github.com/local/pdf2md/internal/model"
)

// Guarded wraps a Provider with a circuit breaker keyed on Provider.Name()
// and modelName. A call made while the breaker is open is rejected locally
// without reaching the network; a failed call opens or extends the
// cooldown, a successful one resets it.
type Guarded struct {
	inner     model.Provider
	breaker   *breaker.Breaker
	modelName string
}

// NewGuarded wraps inner so every Chat call is gated by b.
func NewGuarded(inner model.Provider, b *breaker.Breaker, modelName string) *Guarded {
	return &Guarded{inner: inner, breaker: b, modelName: modelName}
}

func (g *Guarded) Name() string { return g.inner.Name() }

func (g *Guarded) Chat(ctx context.Context, messages []model.Message, opts model.CompletionOptions) (model.CompletionResponse, error) {
	if !g.breaker.Allow(ctx, g.inner.Name(), g.modelName) {
		return model.CompletionResponse{}, &model.RateLimitExceededError{Provider: g.inner.Name()}
	}

	resp, err := g.inner.Chat(ctx, messages, opts)
	if err != nil {
		g.breaker.RecordFailure(ctx, g.inner.Name(), g.modelName)
		return resp, err
	}

	g.breaker.RecordSuccess(ctx, g.inner.Name(), g.modelName)
	return resp, nil
}
