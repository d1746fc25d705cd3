package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rvicquerra/portfolio-api/models"
	"github.com/rvicquerra/portfolio-api/security"
	"github.com/rvicquerra/portfolio-api/services/authlog"
	"github.com/rvicquerra/portfolio-api/services/ratelimit"
	"github.com/rvicquerra/portfolio-api/utils"
	"go.uber.org/zap"
)

// TrackRequest is the client beacon body for auth event tracking.
type TrackRequest struct {
	Type      string `json:"type" validate:"required"`
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	UserName  string `json:"userName"`
	IPAddress string `json:"ipAddress"`
	UserAgent string `json:"userAgent"`
}

// TrackHandler records authentication events reported by the frontend.
type TrackHandler struct {
	authLog *authlog.Service
	limiter *ratelimit.Limiter
	events  *security.EventLog
	logger  *zap.Logger
}

// NewTrackHandler creates a TrackHandler.
func NewTrackHandler(authLog *authlog.Service, limiter *ratelimit.Limiter, events *security.EventLog, logger *zap.Logger) *TrackHandler {
	return &TrackHandler{authLog: authLog, limiter: limiter, events: events, logger: logger}
}

// HandleTrack handles POST /api/auth/track.
func (h *TrackHandler) HandleTrack(w http.ResponseWriter, r *http.Request) {
	clientIP := utils.ClientIP(r)

	decision := h.limiter.Admit(clientIP, "auth-track")
	if !decision.Allowed {
		h.events.Record(security.EventRateLimitExceeded, clientIP, r.URL.Path, "auth-track")
		_ = utils.WriteTooManyRequests(w, int(decision.RetryAfter.Seconds()))
		return
	}

	var req TrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		_ = utils.WriteBadRequest(w, "Missing event type", nil)
		return
	}

	// Fall back to request metadata when the beacon omits it.
	ipAddress := req.IPAddress
	if ipAddress == "" {
		ipAddress = clientIP
	}
	userAgent := req.UserAgent
	if userAgent == "" {
		userAgent = r.UserAgent()
	}
	if userAgent == "" {
		userAgent = "unknown"
	}

	err := h.authLog.Record(r.Context(), authlog.Entry{
		Kind:      models.EventKind(req.Type),
		UserID:    security.SanitizeText(req.UserID),
		UserEmail: security.SanitizeText(req.Email),
		UserName:  security.SanitizeText(req.UserName),
		IPAddress: ipAddress,
		UserAgent: security.SanitizeText(userAgent),
	})
	if err != nil {
		if errors.Is(err, models.ErrUnknownEventKind) {
			_ = utils.WriteBadRequest(w, "Unknown event type", nil)
			return
		}
		h.logger.Error("failed to track auth event", zap.Error(err))
		_ = utils.WriteInternalError(w)
		return
	}

	_ = utils.WriteJSON(w, http.StatusAccepted, map[string]bool{"success": true})
}
