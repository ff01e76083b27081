package openai

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/daryltucker/medvision-runner/internal/provider"
)

const completion = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4o",
  "choices": [{"index": 0, "finish_reason": "stop",
    "message": {"role": "assistant", "content": "1. Chest radiograph"}}]
}`

func TestSendBuildsVisionRequest(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		body, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completion))
	}))
	defer srv.Close()

	c := New(Options{APIKey: "sk-test", BaseURL: srv.URL, Model: "gpt-4o"})
	text, err := c.Send(context.Background(), provider.Request{
		Prompt:      "describe",
		Images:      []string{"AAAA", "BBBB"},
		Temperature: 0.5,
		MaxTokens:   1024,
	})
	require.NoError(t, err)
	assert.Equal(t, "1. Chest radiograph", text)

	assert.Equal(t, "gpt-4o", gjson.GetBytes(body, "model").String())
	assert.InDelta(t, 0.5, gjson.GetBytes(body, "temperature").Float(), 1e-9)
	assert.EqualValues(t, 1024, gjson.GetBytes(body, "max_completion_tokens").Int())

	parts := gjson.GetBytes(body, "messages.0.content").Array()
	require.Len(t, parts, 3)
	assert.Equal(t, "describe", parts[0].Get("text").String())
	assert.Equal(t, "data:image/jpeg;base64,AAAA", parts[1].Get("image_url.url").String())
	assert.Equal(t, "data:image/jpeg;base64,BBBB", parts[2].Get("image_url.url").String())
}

func TestSendQuotaErrorIsFatal(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"You exceeded your current quota","type":"insufficient_quota","code":"insufficient_quota"}}`))
	}))
	defer srv.Close()

	c := New(Options{APIKey: "sk-test", BaseURL: srv.URL, Model: "gpt-4o"})
	text, err := c.Send(context.Background(), provider.Request{Prompt: "x"})
	require.Error(t, err)
	assert.Equal(t, 1, calls, "the SDK must not retry on its own")
	assert.Equal(t, provider.Fatal, c.Classify(text, err).Action)
}

func TestClassify(t *testing.T) {
	c := New(Options{Model: "gpt-4o"})

	assert.Equal(t, provider.Accept, c.Classify("1. Findings", nil).Action)
	assert.Equal(t, provider.ShrinkPolicy, c.Classify("I'm sorry, but I can't", nil).Action)
	assert.Equal(t, provider.ShrinkPayload, c.Classify("", errors.New("invalid_request_error: image_parse_error")).Action)
	assert.Equal(t, provider.Retry, c.Classify("", errors.New("502 bad gateway")).Action)
}

func TestCompleteJSONRequestsJSONObject(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completion))
	}))
	defer srv.Close()

	c := New(Options{APIKey: "sk-test", BaseURL: srv.URL, Model: "gpt-4o"})
	_, err := c.CompleteJSON(context.Background(), "system", "user", 0, 1000)
	require.NoError(t, err)

	assert.Equal(t, "json_object", gjson.GetBytes(body, "response_format.type").String())
	assert.Equal(t, "system", gjson.GetBytes(body, "messages.0.role").String())
	assert.Equal(t, "user", gjson.GetBytes(body, "messages.1.content").String())
	assert.EqualValues(t, 1000, gjson.GetBytes(body, "max_completion_tokens").Int())
}
