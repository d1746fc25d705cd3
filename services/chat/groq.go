package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rvicquerra/portfolio-api/models"
)

const (
	groqDefaultBaseURL = "https://api.groq.com/openai/v1"
	groqDefaultModel   = "llama-3.1-8b-instant"
)

// GroqConfig configures the Groq provider.
type GroqConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	MaxRetries  int
}

// GroqProvider implements Provider against Groq's OpenAI-compatible
// chat completions API.
type GroqProvider struct {
	config     GroqConfig
	httpClient *http.Client
}

// NewGroqProvider creates a Groq provider.
func NewGroqProvider(config GroqConfig) *GroqProvider {
	if config.BaseURL == "" {
		config.BaseURL = groqDefaultBaseURL
	}
	if config.Model == "" {
		config.Model = groqDefaultModel
	}
	if config.Temperature == 0 {
		config.Temperature = 0.7
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 300
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &GroqProvider{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// Name returns the provider name.
func (p *GroqProvider) Name() string {
	return "groq"
}

type groqChatRequest struct {
	Model       string               `json:"model"`
	Messages    []models.ChatMessage `json:"messages"`
	Temperature float64              `json:"temperature"`
	MaxTokens   int                  `json:"max_tokens"`
}

type groqChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete performs a chat completion request with simple retry on 5xx.
func (p *GroqProvider) Complete(ctx context.Context, messages []models.ChatMessage) (string, error) {
	body, err := json.Marshal(groqChatRequest{
		Model:       p.config.Model,
		Messages:    messages,
		Temperature: p.config.Temperature,
		MaxTokens:   p.config.MaxTokens,
	})
	if err != nil {
		return "", NewProviderError(p.Name(), "MARSHAL_ERROR", "failed to marshal request", 0, false, err)
	}

	var resp *http.Response
	var lastErr error
	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			case <-ctx.Done():
				return "", NewProviderError(p.Name(), "CANCELLED", "request cancelled", 0, false, ctx.Err())
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			p.config.BaseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return "", NewProviderError(p.Name(), "REQUEST_ERROR", "failed to create request", 0, false, err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+p.config.APIKey)

		resp, lastErr = p.httpClient.Do(req)
		if lastErr == nil && resp.StatusCode < 500 {
			break
		}
		if resp != nil {
			resp.Body.Close()
		}
	}
	if lastErr != nil {
		return "", NewProviderError(p.Name(), "HTTP_ERROR", "request failed", 0, true, lastErr)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", NewProviderError(p.Name(), "READ_ERROR", "failed to read response", resp.StatusCode, false, err)
	}

	var parsed groqChatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", NewProviderError(p.Name(), "UNMARSHAL_ERROR", "failed to parse response", resp.StatusCode, false, err)
	}

	if resp.StatusCode != http.StatusOK {
		message := "upstream completion failed"
		if parsed.Error != nil {
			message = parsed.Error.Message
		}
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return "", NewProviderError(p.Name(), "API_ERROR", message, resp.StatusCode, retryable, nil)
	}

	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", NewProviderError(p.Name(), "EMPTY_RESPONSE", "no completion in response", resp.StatusCode, false,
			fmt.Errorf("empty choices"))
	}
	return parsed.Choices[0].Message.Content, nil
}
