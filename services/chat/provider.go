package chat

import (
	"context"
	"fmt"

	"github.com/rvicquerra/portfolio-api/models"
)

// Provider is a chat completion backend.
type Provider interface {
	// Name returns the provider name for logging and configuration.
	Name() string

	// Complete forwards the conversation and returns the assistant reply.
	Complete(ctx context.Context, messages []models.ChatMessage) (string, error)
}

// ProviderError wraps a failure from a completion backend.
type ProviderError struct {
	Provider   string
	Code       string
	Message    string
	StatusCode int
	Retryable  bool
	Err        error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider error [%s]: %s", e.Provider, e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError creates a ProviderError.
func NewProviderError(provider, code, message string, statusCode int, retryable bool, err error) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Retryable:  retryable,
		Err:        err,
	}
}
