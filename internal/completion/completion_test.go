package completion

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"sales-assistant/internal/common/logger"
	"sales-assistant/internal/common/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatReply(content string) string {
	body, _ := json.Marshal(map[string]interface{}{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-4o-mini",
		"choices": []map[string]interface{}{{
			"index":         0,
			"message":       map[string]interface{}{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
		"usage": map[string]interface{}{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	})
	return string(body)
}

func newTestClient(t *testing.T, url string) *OpenAIClient {
	t.Helper()
	c, err := NewOpenAIClient(Config{
		Model:   "gpt-4o-mini",
		APIKey:  "test-key",
		BaseURL: url + "/v1",
		Timeout: 5 * time.Second,
	}, logger.NewTestLogger(t))
	require.NoError(t, err)
	return c
}

func TestOpenAIClient_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		var req map[string]interface{}
		assert.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "gpt-4o-mini", req["model"])
		assert.Len(t, req["messages"], 2)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatReply(`{"intent":"list_leads"}`)))
	}))
	defer server.Close()

	resp, err := newTestClient(t, server.URL).Complete(context.Background(), []Message{
		{Role: RoleSystem, Content: "classify"},
		{Role: RoleUser, Content: "리드 목록 보여줘"},
	})
	require.NoError(t, err)
	require.Len(t, resp.Turns, 3)

	last, ok := resp.Last()
	require.True(t, ok)
	assert.Equal(t, RoleAssistant, last.Role)
	assert.Equal(t, `{"intent":"list_leads"}`, last.Content)
}

func TestOpenAIClient_RateLimitMapping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached for gpt-4o-mini. Please try again in 250ms.","type":"requests","code":"rate_limit_exceeded"}}`))
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})

	var rl *RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, 250*time.Millisecond, rl.RetryAfter)
	assert.True(t, retry.IsRetryable(err))
}

func TestOpenAIClient_ServerErrorMapping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":{"message":"upstream hiccup","type":"server_error"}}`))
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.True(t, retry.IsRetryable(err))
}

func TestNewOpenAIClient_Validation(t *testing.T) {
	_, err := NewOpenAIClient(Config{Provider: "openai"}, logger.NewNoOpLogger())
	assert.Error(t, err)

	_, err = NewOpenAIClient(Config{Provider: "azure", Model: "gpt"}, logger.NewNoOpLogger())
	assert.Error(t, err)

	_, err = NewOpenAIClient(Config{Provider: "telepathy", Model: "gpt"}, logger.NewNoOpLogger())
	assert.Error(t, err)

	c, err := NewOpenAIClient(Config{Provider: "ollama", Model: "llama3", RequestsPerSecond: 2}, logger.NewNoOpLogger())
	require.NoError(t, err)
	assert.NotNil(t, c.limiter)
}

func TestParseRetryAfter(t *testing.T) {
	tests := map[string]time.Duration{
		"Please try again in 20ms.":        20 * time.Millisecond,
		"Please try again in 1.5s.":        1500 * time.Millisecond,
		"Rate limit. Try again in 2s":      2 * time.Second,
		"You exceeded your current quota.": 0,
	}
	for msg, want := range tests {
		assert.Equal(t, want, parseRetryAfter(msg), msg)
	}
}

func TestWithRetry(t *testing.T) {
	var calls int32
	flaky := CompleterFunc(func(ctx context.Context, messages []Message) (*Response, error) {
		if atomic.AddInt32(&calls, 1) < 3 {
			return nil, &RateLimitError{RetryAfter: time.Millisecond}
		}
		return &Response{Turns: append(messages, Message{Role: RoleAssistant, Content: "ok"})}, nil
	})

	c := WithRetry(flaky, retry.Policy{MaxAttempts: 3, MinWait: time.Millisecond}, logger.NewTestLogger(t))
	resp, err := c.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.NoError(t, err)

	last, _ := resp.Last()
	assert.Equal(t, "ok", last.Content)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestWithRetry_DoesNotRetryMalformedRequests(t *testing.T) {
	var calls int32
	bad := CompleterFunc(func(context.Context, []Message) (*Response, error) {
		atomic.AddInt32(&calls, 1)
		return nil, &APIError{Status: http.StatusBadRequest, Message: "bad"}
	})

	_, err := WithRetry(bad, retry.Policy{MaxAttempts: 3, MinWait: time.Millisecond}, logger.NewNoOpLogger()).
		Complete(context.Background(), nil)
	assert.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `  {"a":1} `, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```\n", `{"a":1}`},
		{"unterminated fence", "```json\n{\"a\":1}", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripCodeFence(tt.in))
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	var v map[string]interface{}
	require.NoError(t, DecodeJSON(`{"intent":"list_leads"}  `, &v))
	assert.Equal(t, "list_leads", v["intent"])

	assert.Error(t, DecodeJSON(`{"intent":"list_leads"} trailing`, &v))
	assert.Error(t, DecodeJSON(`{"intent":"list_leads"}{}`, &v))
	assert.Error(t, DecodeJSON(`not json`, &v))

	assert.ErrorIs(t, DecodeReply("```\n```", &v), ErrEmptyResponse)
}

func TestResponseLast_Empty(t *testing.T) {
	var r *Response
	_, ok := r.Last()
	assert.False(t, ok)

	_, ok = (&Response{}).Last()
	assert.False(t, ok)
}

func TestCompactJSON(t *testing.T) {
	assert.Equal(t, `{"name":"<b>"}`, CompactJSON(map[string]string{"name": "<b>"}))
}
