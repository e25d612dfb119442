package llm

import (
	"context"
	"encoding/json"

	"github.com/anatolykoptev/go_resume/internal/engine"
)

// Cached memoises replies in the engine's tiered cache, keyed on the model
// and the exact messages.
type Cached struct {
	next  Completer
	model string
}

// NewCached wraps next.
func NewCached(next Completer, model string) *Cached {
	return &Cached{next: next, model: model}
}

// Available delegates to the wrapped client.
func (c *Cached) Available(ctx context.Context) bool { return c.next.Available(ctx) }

// Chat returns a cached reply when present, otherwise calls through and
// stores a successful reply.
func (c *Cached) Chat(ctx context.Context, msgs []Message) (string, error) {
	b, err := json.Marshal(msgs)
	if err != nil {
		return c.next.Chat(ctx, msgs)
	}
	key := engine.CacheKey("llm", c.model, string(b))
	if out, ok := engine.CacheLoadJSON[string](ctx, key); ok {
		return out, nil
	}
	out, err := c.next.Chat(ctx, msgs)
	if err != nil {
		return "", err
	}
	engine.CacheStoreJSON(ctx, key, out)
	return out, nil
}
