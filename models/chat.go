package models

// ChatMessage is a single turn in a chat conversation.
type ChatMessage struct {
	Role    string `json:"role" validate:"required,oneof=system user assistant"`
	Content string `json:"content" validate:"required"`
}

// ChatRequest is the inbound body for the chat endpoint.
type ChatRequest struct {
	Messages []ChatMessage `json:"messages" validate:"required,min=1,dive"`
}

// ChatResponse is the reply returned to the chat widget.
type ChatResponse struct {
	Message string `json:"message"`
}
