package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rvicquerra/portfolio-api/models"
)

const (
	ollamaDefaultBaseURL = "http://localhost:11434"
	ollamaDefaultModel   = "llama3.2"
)

// OllamaConfig configures the local Ollama provider.
type OllamaConfig struct {
	BaseURL     string
	Model       string
	Temperature float64
	NumPredict  int
	Timeout     time.Duration
}

// OllamaProvider implements Provider against a local Ollama instance,
// used for development when no hosted API key is configured.
type OllamaProvider struct {
	config     OllamaConfig
	httpClient *http.Client
}

// NewOllamaProvider creates an Ollama provider.
func NewOllamaProvider(config OllamaConfig) *OllamaProvider {
	if config.BaseURL == "" {
		config.BaseURL = ollamaDefaultBaseURL
	}
	if config.Model == "" {
		config.Model = ollamaDefaultModel
	}
	if config.Temperature == 0 {
		config.Temperature = 0.7
	}
	if config.NumPredict == 0 {
		config.NumPredict = 500
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}

	return &OllamaProvider{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// Name returns the provider name.
func (p *OllamaProvider) Name() string {
	return "ollama"
}

type ollamaChatRequest struct {
	Model    string               `json:"model"`
	Messages []models.ChatMessage `json:"messages"`
	Stream   bool                 `json:"stream"`
	Options  struct {
		Temperature float64 `json:"temperature"`
		NumPredict  int     `json:"num_predict"`
	} `json:"options"`
}

type ollamaChatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
}

// Complete performs a non-streaming chat request.
func (p *OllamaProvider) Complete(ctx context.Context, messages []models.ChatMessage) (string, error) {
	reqBody := ollamaChatRequest{
		Model:    p.config.Model,
		Messages: messages,
		Stream:   false,
	}
	reqBody.Options.Temperature = p.config.Temperature
	reqBody.Options.NumPredict = p.config.NumPredict

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", NewProviderError(p.Name(), "MARSHAL_ERROR", "failed to marshal request", 0, false, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", NewProviderError(p.Name(), "REQUEST_ERROR", "failed to create request", 0, false, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", NewProviderError(p.Name(), "HTTP_ERROR", "ollama is not reachable", 0, true, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", NewProviderError(p.Name(), "READ_ERROR", "failed to read response", resp.StatusCode, false, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", NewProviderError(p.Name(), "API_ERROR", "ollama request failed", resp.StatusCode, resp.StatusCode >= 500, nil)
	}

	var parsed ollamaChatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", NewProviderError(p.Name(), "UNMARSHAL_ERROR", "failed to parse response", resp.StatusCode, false, err)
	}
	if parsed.Message.Content == "" {
		return "", NewProviderError(p.Name(), "EMPTY_RESPONSE", "no completion in response", resp.StatusCode, false, nil)
	}
	return parsed.Message.Content, nil
}
