package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rvicquerra/portfolio-api/models"
	"github.com/rvicquerra/portfolio-api/security"
	"github.com/rvicquerra/portfolio-api/services/chat"
	"github.com/rvicquerra/portfolio-api/utils"
	"go.uber.org/zap"
)

// chatPolicy is the admission policy for the public chat endpoint.
var chatPolicy = security.RoutePolicy{
	Bucket:         "chat",
	AllowedMethods: []string{http.MethodPost},
	RequireJSON:    true,
}

// ChatHandler serves the portfolio chat widget.
type ChatHandler struct {
	guard  *security.Guard
	relay  *chat.Service
	logger *zap.Logger
}

// NewChatHandler creates a ChatHandler.
func NewChatHandler(guard *security.Guard, relay *chat.Service, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{guard: guard, relay: relay, logger: logger}
}

// HandleChat handles POST /api/chat. The request passes through the
// admission guard before anything reaches the completion provider.
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid request format", nil)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		details := map[string]interface{}{}
		for field, msg := range utils.GetValidationFields(err) {
			details[field] = msg
		}
		_ = utils.WriteBadRequest(w, "Invalid request format", details)
		return
	}

	clientIP := utils.ClientIP(r)

	// Only user-authored turns are untrusted input.
	var userIdx []int
	var fields []string
	for i, msg := range req.Messages {
		if msg.Role == "user" {
			userIdx = append(userIdx, i)
			fields = append(fields, msg.Content)
		}
	}

	sanitized, verdict := h.guard.Admit(r, chatPolicy, clientIP, fields)
	if !verdict.Allowed() {
		writeVerdict(w, verdict)
		return
	}
	for n, i := range userIdx {
		req.Messages[i].Content = sanitized[n]
	}

	answer, err := h.relay.Relay(r.Context(), req.Messages)
	if err != nil {
		h.logger.Error("chat relay failed", zap.String("ip", clientIP), zap.Error(err))
		_ = utils.WriteInternalError(w)
		return
	}

	_ = utils.WriteJSON(w, http.StatusOK, models.ChatResponse{Message: answer})
}

// writeVerdict maps an admission rejection onto its HTTP response.
func writeVerdict(w http.ResponseWriter, verdict security.Verdict) {
	switch verdict.Outcome {
	case security.RejectedByRateLimit:
		_ = utils.WriteTooManyRequests(w, int(verdict.RetryAfter.Seconds()))
	case security.RejectedByContentType:
		_ = utils.WriteForbidden(w, verdict.Reason)
	default:
		_ = utils.WriteBadRequest(w, verdict.Reason, nil)
	}
}
