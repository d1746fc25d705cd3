// Package chat relays sanitized conversations to an external completion
// provider. It is a thin proxy: prompt construction and provider selection
// happen here, inference is entirely delegated.
package chat

import (
	"context"
	"time"

	"github.com/rvicquerra/portfolio-api/models"
	"go.uber.org/zap"
)

// Service forwards conversations to the configured provider with the
// portfolio persona prepended as the system turn.
type Service struct {
	provider     Provider
	systemPrompt string
	logger       *zap.Logger
}

// NewService creates a chat relay over the given provider.
func NewService(provider Provider, systemPrompt string, logger *zap.Logger) *Service {
	if systemPrompt == "" {
		systemPrompt = defaultPersona
	}
	return &Service{
		provider:     provider,
		systemPrompt: systemPrompt,
		logger:       logger,
	}
}

// Relay prepends the persona system prompt and forwards the sanitized
// conversation. The provider's answer is returned verbatim.
func (s *Service) Relay(ctx context.Context, messages []models.ChatMessage) (string, error) {
	conversation := make([]models.ChatMessage, 0, len(messages)+1)
	conversation = append(conversation, models.ChatMessage{
		Role:    "system",
		Content: s.systemPrompt,
	})
	conversation = append(conversation, messages...)

	start := time.Now()
	answer, err := s.provider.Complete(ctx, conversation)
	if err != nil {
		s.logger.Error("chat completion failed",
			zap.String("provider", s.provider.Name()),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", err
	}

	s.logger.Info("chat completion succeeded",
		zap.String("provider", s.provider.Name()),
		zap.Int("turns", len(messages)),
		zap.Duration("elapsed", time.Since(start)))
	return answer, nil
}

// defaultPersona is the assistant persona used when no prompt is configured.
const defaultPersona = `You are the AI assistant on a personal portfolio site. ` +
	`Speak in first person as the site owner, stay friendly and conversational, ` +
	`and keep answers focused on the portfolio: projects, skills, and career. ` +
	`Politely decline personal or off-topic questions and steer the conversation ` +
	`back to the work showcased on the site.`
