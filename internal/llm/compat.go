package llm

import (
	"context"
	"net/http"

	kitllm "github.com/anatolykoptev/go-kit/llm"

	"github.com/anatolykoptev/go_resume/internal/apperr"
	"github.com/anatolykoptev/go_resume/internal/config"
	"github.com/anatolykoptev/go_resume/internal/engine"
)

// Compat talks to any OpenAI-compatible endpoint through go-kit's client,
// which rotates fallback keys on quota errors.
type Compat struct {
	complete func(ctx context.Context, system, user string) (string, error)
	hasKey   bool
}

// NewCompat builds a Compat client from cfg.
func NewCompat(cfg *config.Config) *Compat {
	client := kitllm.NewClient(cfg.BaseURL, cfg.APIKey, cfg.Model,
		kitllm.WithFallbackKeys(cfg.APIKeyFallbacks),
		kitllm.WithMaxTokens(cfg.MaxTokens),
		kitllm.WithTemperature(cfg.Temperature),
		kitllm.WithHTTPClient(&http.Client{Timeout: cfg.LLMTimeout}),
	)
	return &Compat{
		complete: func(ctx context.Context, system, user string) (string, error) {
			return client.Complete(ctx, system, user)
		},
		hasKey: cfg.APIKey != "",
	}
}

// Available reports whether a key is configured.
func (c *Compat) Available(context.Context) bool { return c.hasKey }

// Chat joins system messages into the system prompt and the rest into the
// user prompt.
func (c *Compat) Chat(ctx context.Context, msgs []Message) (string, error) {
	system, user := split(msgs)
	engine.IncrLLMCall()
	out, err := c.complete(ctx, system, user)
	if err != nil {
		engine.IncrLLMError()
		return "", apperr.AIService("API请求失败: "+err.Error(), "compat", "")
	}
	return out, nil
}
