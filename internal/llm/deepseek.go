package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/anatolykoptev/go_resume/internal/apperr"
	"github.com/anatolykoptev/go_resume/internal/engine"
)

const deepseekService = "deepseek"

// DeepSeekOptions configures the DeepSeek client.
type DeepSeekOptions struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	Retry       engine.RetryConfig
	HTTPClient  *http.Client
}

// DeepSeek calls the DeepSeek chat-completions endpoint.
type DeepSeek struct {
	opts DeepSeekOptions
	hc   *http.Client
	log  *slog.Logger
}

// NewDeepSeek fills defaults and returns a client.
func NewDeepSeek(o DeepSeekOptions) *DeepSeek {
	if o.BaseURL == "" {
		o.BaseURL = "https://api.deepseek.com"
	}
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if o.Model == "" {
		o.Model = "deepseek-chat"
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = 2048
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.Retry == (engine.RetryConfig{}) {
		o.Retry = engine.DefaultRetryConfig
	}
	hc := o.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: o.Timeout}
	}
	return &DeepSeek{opts: o, hc: hc, log: slog.With(slog.String("component", "deepseek"))}
}

// Available reports whether a key is configured.
func (d *DeepSeek) Available(context.Context) bool { return d.opts.APIKey != "" }

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	Stream      bool      `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// Chat sends msgs and returns the first choice's content. 429, 5xx and
// network errors are retried.
func (d *DeepSeek) Chat(ctx context.Context, msgs []Message) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       d.opts.Model,
		Messages:    msgs,
		Temperature: d.opts.Temperature,
		MaxTokens:   d.opts.MaxTokens,
	})
	if err != nil {
		return "", apperr.AIService(fmt.Sprintf("请求构建失败: %v", err), deepseekService, "")
	}

	engine.IncrLLMCall()
	raw, err := engine.RetryDo(ctx, d.opts.Retry, func() ([]byte, error) {
		return d.post(ctx, body)
	})
	if err != nil {
		engine.IncrLLMError()
		var se *engine.HTTPStatusError
		switch {
		case errors.As(err, &se):
			return "", apperr.AIService(fmt.Sprintf("API请求失败: %d - %s", se.StatusCode, se.Body),
				deepseekService, fmt.Sprint(se.StatusCode))
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return "", err
		default:
			return "", apperr.AIService(fmt.Sprintf("网络请求失败: %v", err), deepseekService, "")
		}
	}

	var resp chatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		engine.IncrLLMError()
		return "", apperr.AIService(fmt.Sprintf("API响应解析失败: %v", err), deepseekService, "")
	}
	if resp.Error != nil {
		engine.IncrLLMError()
		msg := resp.Error.Message
		if msg == "" {
			msg = "Unknown error"
		}
		code := "unknown"
		if resp.Error.Code != nil {
			code = fmt.Sprint(resp.Error.Code)
		}
		return "", apperr.AIService("API返回错误: "+msg, deepseekService, code)
	}
	if len(resp.Choices) == 0 {
		engine.IncrLLMError()
		return "", apperr.AIService("API返回空响应", deepseekService, "")
	}
	d.log.Debug("chat completed", slog.Int("chars", len(resp.Choices[0].Message.Content)))
	return resp.Choices[0].Message.Content, nil
}

func (d *DeepSeek) post(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.opts.BaseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+d.opts.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &engine.HTTPStatusError{StatusCode: resp.StatusCode, Body: engine.TruncateRunes(string(data), 500, "...")}
	}
	return data, nil
}
