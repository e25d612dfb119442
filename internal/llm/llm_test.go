package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_resume/internal/apperr"
	"github.com/anatolykoptev/go_resume/internal/config"
	"github.com/anatolykoptev/go_resume/internal/engine"
)

var fastRetry = engine.RetryConfig{MaxRetries: 2, InitialWait: time.Millisecond, MaxWait: 2 * time.Millisecond}

func newTestDeepSeek(url string) *DeepSeek {
	return NewDeepSeek(DeepSeekOptions{BaseURL: url + "/", APIKey: "sk-test", Temperature: 0.7, Retry: fastRetry})
}

func TestDeepSeekChat(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"你好"}}]}`))
	}))
	defer srv.Close()

	out, err := newTestDeepSeek(srv.URL).Chat(context.Background(), []Message{System("s"), User("u")})
	require.NoError(t, err)
	assert.Equal(t, "你好", out)
	assert.Equal(t, "deepseek-chat", got.Model)
	assert.Equal(t, 2048, got.MaxTokens)
	assert.False(t, got.Stream)
	assert.InDelta(t, 0.7, got.Temperature, 1e-9)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, RoleSystem, got.Messages[0].Role)
}

func TestDeepSeekRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	out, err := newTestDeepSeek(srv.URL).Chat(context.Background(), []Message{User("u")})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.EqualValues(t, 3, calls.Load())
}

func TestDeepSeekErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
		code    string
	}{
		{"http status", http.StatusUnauthorized, `bad key`, "API请求失败: 401 - bad key", "401"},
		{"error object", http.StatusOK, `{"error":{"message":"quota","code":"insufficient"}}`, "API返回错误: quota", "insufficient"},
		{"empty choices", http.StatusOK, `{"choices":[]}`, "API返回空响应", ""},
		{"bad json", http.StatusOK, `not json`, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newTestDeepSeek(srv.URL).Chat(context.Background(), []Message{User("u")})
			require.Error(t, err)
			var ae *apperr.Error
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, apperr.KindAIService, ae.Kind)
			assert.Equal(t, "deepseek", ae.Context["service"])
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, ae.Message)
			} else {
				assert.Contains(t, ae.Message, "API响应解析失败")
			}
			if tt.code != "" {
				assert.Equal(t, tt.code, ae.Context["api_error_code"])
			}
		})
	}
}

func TestNewRequiresKey(t *testing.T) {
	_, err := New(&config.Config{Provider: "deepseek"})
	assert.True(t, apperr.Is(err, apperr.KindConfiguration))

	_, err = New(&config.Config{APIKey: "sk-x", Provider: "claude"})
	assert.True(t, apperr.Is(err, apperr.KindConfiguration))

	c, err := New(&config.Config{APIKey: "sk-x", Provider: "compat", Model: "m", LLMTimeout: time.Second})
	require.NoError(t, err)
	assert.True(t, c.Available(context.Background()))
}

func TestCachedChat(t *testing.T) {
	engine.InitCache("", time.Minute, 100, time.Minute)
	t.Cleanup(engine.CloseCache)

	var calls int
	next := Func(func(_ context.Context, msgs []Message) (string, error) {
		calls++
		return "reply to " + msgs[len(msgs)-1].Content, nil
	})
	c := NewCached(next, "test-model")
	ctx := context.Background()

	for range 2 {
		out, err := c.Chat(ctx, []Message{User("hi")})
		require.NoError(t, err)
		assert.Equal(t, "reply to hi", out)
	}
	assert.Equal(t, 1, calls)

	_, err := c.Chat(ctx, []Message{User("other")})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestSplit(t *testing.T) {
	sys, user := split([]Message{System("a"), User("b"), System("c"), {Role: RoleAssistant, Content: "d"}})
	assert.Equal(t, "a\n\nc", sys)
	assert.Equal(t, "b\n\nd", user)
}
