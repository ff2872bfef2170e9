package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/devfeed-crawler/internal/enrich"
)

func TestNewSelectsProvider(t *testing.T) {
	t.Parallel()

	gen, err := New(Config{Provider: "none"}, nil)
	require.NoError(t, err)
	assert.Nil(t, gen)

	gen, err = New(Config{Provider: "anthropic", APIKey: "k"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Anthropic{}, gen)

	gen, err = New(Config{Provider: "gemini", APIKey: "k"}, nil)
	require.NoError(t, err)
	require.IsType(t, &OpenAI{}, gen)
	assert.Equal(t, ProviderGemini, gen.(*OpenAI).provider)

	_, err = New(Config{Provider: "openai"}, nil)
	assert.Error(t, err)

	_, err = New(Config{Provider: "llama"}, nil)
	assert.Error(t, err)
}

func TestAPIErrorClassifies(t *testing.T) {
	t.Parallel()

	assert.Equal(t, enrich.ClassQuota, enrich.Classify(&APIError{Provider: "openai", StatusCode: http.StatusTooManyRequests}))
	assert.Equal(t, enrich.ClassModelNotFound, enrich.Classify(&APIError{Provider: "openai", StatusCode: http.StatusNotFound}))
	assert.Equal(t, enrich.ClassTransient, enrich.Classify(&APIError{Provider: "openai", StatusCode: http.StatusBadGateway}))
	assert.Equal(t, "anthropic: 429 Too Many Requests", (&APIError{Provider: "anthropic", StatusCode: 429}).Error())
}

func TestAnthropicGenerate(t *testing.T) {
	t.Parallel()

	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"msg_1","type":"message","role":"assistant","model":"m",
			"content":[{"type":"text","text":"{\"summary\":\"ok\"}"}],
			"stop_reason":"end_turn","usage":{"input_tokens":3,"output_tokens":4}}`)
	}))
	t.Cleanup(srv.Close)

	gen, err := NewAnthropic(Config{APIKey: "test-key", BaseURL: srv.URL + "/", Model: "m", MaxTokens: 100})
	require.NoError(t, err)
	text, err := gen.Generate(context.Background(), "hello", true)
	require.NoError(t, err)
	assert.Equal(t, `{"summary":"ok"}`, text)
	assert.Equal(t, "m", body["model"])
	assert.EqualValues(t, 100, body["max_tokens"])
	assert.NotNil(t, body["system"])
}

func TestAnthropicRateLimitIsQuota(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`)
	}))
	t.Cleanup(srv.Close)

	gen, err := NewAnthropic(Config{APIKey: "k", BaseURL: srv.URL + "/"})
	require.NoError(t, err)
	_, err = gen.Generate(context.Background(), "hello", false)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, enrich.ClassQuota, enrich.Classify(err))
}

func TestOpenAIGenerate(t *testing.T) {
	t.Parallel()

	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","created":1,"model":"m",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":" react, go "}}]}`)
	}))
	t.Cleanup(srv.Close)

	gen, err := NewOpenAI(Config{APIKey: "k", BaseURL: srv.URL + "/", Model: "m"})
	require.NoError(t, err)
	text, err := gen.Generate(context.Background(), "tag this", false)
	require.NoError(t, err)
	assert.Equal(t, "react, go", text)
	assert.Nil(t, body["response_format"])

	_, err = gen.Generate(context.Background(), "json please", true)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"type": "json_object"}, body["response_format"])
}

func TestOpenAIModelNotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":{"message":"model not found","type":"invalid_request_error"}}`)
	}))
	t.Cleanup(srv.Close)

	gen, err := NewOpenAI(Config{APIKey: "k", BaseURL: srv.URL + "/"})
	require.NoError(t, err)
	_, err = gen.Generate(context.Background(), "x", false)
	assert.Equal(t, enrich.ClassModelNotFound, enrich.Classify(err))
}
