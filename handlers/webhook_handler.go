package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	svix "github.com/svix/svix-webhooks/go"

	"github.com/rvicquerra/portfolio-api/models"
	"github.com/rvicquerra/portfolio-api/services/authlog"
	"github.com/rvicquerra/portfolio-api/utils"
	"go.uber.org/zap"
)

// webhookEvent is the identity provider's lifecycle notification shape.
type webhookEvent struct {
	Type string `json:"type"`
	Data struct {
		ID        string `json:"id"`
		UserID    string `json:"user_id"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Emails    []struct {
			EmailAddress string `json:"email_address"`
		} `json:"email_addresses"`
	} `json:"data"`
}

// WebhookHandler receives identity-provider lifecycle events, verifies
// their signature and translates them into auth log records.
type WebhookHandler struct {
	secret  string
	authLog *authlog.Service
	logger  *zap.Logger
}

// NewWebhookHandler creates a WebhookHandler. secret is the signing
// secret shared with the identity provider.
func NewWebhookHandler(secret string, authLog *authlog.Service, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{secret: secret, authLog: authLog, logger: logger}
}

// HandleWebhook handles POST /api/webhooks/identity.
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	if h.secret == "" {
		h.logger.Error("webhook secret not configured")
		_ = utils.WriteInternalError(w)
		return
	}

	if r.Header.Get("svix-id") == "" ||
		r.Header.Get("svix-timestamp") == "" ||
		r.Header.Get("svix-signature") == "" {
		_ = utils.WriteBadRequest(w, "Missing signature headers", nil)
		return
	}

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		_ = utils.WriteBadRequest(w, "Unreadable payload", nil)
		return
	}

	wh, err := svix.NewWebhook(h.secret)
	if err != nil {
		h.logger.Error("webhook verifier initialization failed", zap.Error(err))
		_ = utils.WriteInternalError(w)
		return
	}
	if err := wh.Verify(payload, r.Header); err != nil {
		h.logger.Warn("webhook signature verification failed", zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid signature", nil)
		return
	}

	var event webhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		_ = utils.WriteBadRequest(w, "Malformed payload", nil)
		return
	}

	ipAddress := utils.ClientIP(r)
	userAgent := r.UserAgent()
	if userAgent == "" {
		userAgent = "unknown"
	}

	entry, handled := h.translate(event, ipAddress, userAgent)
	if !handled {
		h.logger.Debug("unhandled webhook event type", zap.String("type", event.Type))
		_ = utils.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
		return
	}

	if err := h.authLog.Record(r.Context(), entry); err != nil {
		h.logger.Error("failed to record webhook event", zap.Error(err))
		_ = utils.WriteInternalError(w)
		return
	}

	_ = utils.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// translate maps identity-provider notifications onto auth log entries.
func (h *WebhookHandler) translate(event webhookEvent, ipAddress, userAgent string) (authlog.Entry, bool) {
	switch event.Type {
	case "session.created":
		return authlog.Entry{
			Kind:      models.EventSessionCreated,
			UserID:    event.Data.UserID,
			IPAddress: ipAddress,
			UserAgent: userAgent,
			Metadata:  map[string]interface{}{"sessionId": event.Data.ID},
		}, true

	case "session.ended", "session.removed", "session.revoked":
		return authlog.Entry{
			Kind:      models.EventSessionRevoked,
			UserID:    event.Data.UserID,
			IPAddress: ipAddress,
			UserAgent: userAgent,
			Metadata:  map[string]interface{}{"sessionId": event.Data.ID},
		}, true

	case "user.created":
		email := ""
		if len(event.Data.Emails) > 0 {
			email = event.Data.Emails[0].EmailAddress
		}
		name := strings.TrimSpace(event.Data.FirstName + " " + event.Data.LastName)
		return authlog.Entry{
			Kind:      models.EventSignUp,
			UserID:    event.Data.ID,
			UserEmail: email,
			UserName:  name,
			IPAddress: ipAddress,
			UserAgent: userAgent,
		}, true

	default:
		return authlog.Entry{}, false
	}
}
