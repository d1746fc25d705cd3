package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rvicquerra/portfolio-api/models"
)

func groqOKResponse(content string) string {
	return `{"choices":[{"message":{"content":` + mustQuote(content) + `}}]}`
}

func mustQuote(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}

func TestGroqProvider_Complete(t *testing.T) {
	var captured groqChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(groqOKResponse("hello from groq")))
	}))
	defer server.Close()

	provider := NewGroqProvider(GroqConfig{APIKey: "test-key", BaseURL: server.URL})

	answer, err := provider.Complete(context.Background(), []models.ChatMessage{
		{Role: "user", Content: "hi"},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello from groq", answer)
	assert.Equal(t, groqDefaultModel, captured.Model)
	assert.Equal(t, 0.7, captured.Temperature)
	assert.Equal(t, 300, captured.MaxTokens)
}

func TestGroqProvider_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(groqOKResponse("recovered")))
	}))
	defer server.Close()

	provider := NewGroqProvider(GroqConfig{APIKey: "k", BaseURL: server.URL, MaxRetries: 2})

	answer, err := provider.Complete(context.Background(), []models.ChatMessage{{Role: "user", Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "recovered", answer)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGroqProvider_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"invalid api key","type":"auth"}}`))
	}))
	defer server.Close()

	provider := NewGroqProvider(GroqConfig{APIKey: "bad", BaseURL: server.URL})

	_, err := provider.Complete(context.Background(), []models.ChatMessage{{Role: "user", Content: "hi"}})
	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "API_ERROR", pe.Code)
	assert.Equal(t, http.StatusUnauthorized, pe.StatusCode)
	assert.Equal(t, "invalid api key", pe.Message)
	assert.False(t, pe.Retryable)
}

func TestGroqProvider_RateLimitedIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit"}}`))
	}))
	defer server.Close()

	provider := NewGroqProvider(GroqConfig{APIKey: "k", BaseURL: server.URL})

	_, err := provider.Complete(context.Background(), []models.ChatMessage{{Role: "user", Content: "hi"}})
	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.True(t, pe.Retryable)
}

func TestGroqProvider_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	provider := NewGroqProvider(GroqConfig{APIKey: "k", BaseURL: server.URL})

	_, err := provider.Complete(context.Background(), []models.ChatMessage{{Role: "user", Content: "hi"}})
	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "EMPTY_RESPONSE", pe.Code)
}

func TestOllamaProvider_Complete(t *testing.T) {
	var captured ollamaChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(`{"message":{"content":"hello from ollama"}}`))
	}))
	defer server.Close()

	provider := NewOllamaProvider(OllamaConfig{BaseURL: server.URL})

	answer, err := provider.Complete(context.Background(), []models.ChatMessage{{Role: "user", Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "hello from ollama", answer)
	assert.Equal(t, ollamaDefaultModel, captured.Model)
	assert.False(t, captured.Stream)
	assert.Equal(t, 500, captured.Options.NumPredict)
}

func TestOllamaProvider_Unreachable(t *testing.T) {
	provider := NewOllamaProvider(OllamaConfig{BaseURL: "http://127.0.0.1:1"})

	_, err := provider.Complete(context.Background(), []models.ChatMessage{{Role: "user", Content: "hi"}})
	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "HTTP_ERROR", pe.Code)
	assert.True(t, pe.Retryable)
}
