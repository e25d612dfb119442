// Package llm provides chat-completion clients for the analysis, agent and
// greeting services.
package llm

import (
	"context"
	"strings"

	"github.com/anatolykoptev/go_resume/internal/apperr"
	"github.com/anatolykoptev/go_resume/internal/config"
)

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// System and User build messages.
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }
func User(content string) Message   { return Message{Role: RoleUser, Content: content} }

// Completer sends chat messages to a model and returns the reply text.
type Completer interface {
	Chat(ctx context.Context, msgs []Message) (string, error)
	Available(ctx context.Context) bool
}

// New builds the configured client. RESUME_ASSISTANT_LLM_PROVIDER selects
// "deepseek" (default) or "compat". Replies are cached when the engine cache
// is initialised.
func New(cfg *config.Config) (Completer, error) {
	if !cfg.HasAPIKey() {
		return nil, apperr.Configuration(
			"DeepSeek API密钥未配置。请设置环境变量 "+config.Prefix+"DEEPSEEK_API_KEY",
			config.Prefix+"DEEPSEEK_API_KEY")
	}
	var c Completer
	switch strings.ToLower(cfg.Provider) {
	case "", "deepseek":
		c = NewDeepSeek(DeepSeekOptions{
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Timeout:     cfg.LLMTimeout,
		})
	case "compat", "openai":
		c = NewCompat(cfg)
	default:
		return nil, apperr.Configuration("未知的LLM提供方: "+cfg.Provider, config.Prefix+"LLM_PROVIDER")
	}
	return NewCached(c, cfg.Model), nil
}

// split separates system messages from the rest for single-prompt backends.
func split(msgs []Message) (system, user string) {
	var sys, rest []string
	for _, m := range msgs {
		if m.Role == RoleSystem {
			sys = append(sys, m.Content)
			continue
		}
		rest = append(rest, m.Content)
	}
	return strings.Join(sys, "\n\n"), strings.Join(rest, "\n\n")
}

// Func adapts a function to Completer. It is always available.
type Func func(ctx context.Context, msgs []Message) (string, error)

// Chat calls f.
func (f Func) Chat(ctx context.Context, msgs []Message) (string, error) { return f(ctx, msgs) }

// Available reports true.
func (Func) Available(context.Context) bool { return true }
