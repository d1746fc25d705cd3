package handlers

import (
	"net/http"
	"strconv"

	"github.com/rvicquerra/portfolio-api/models"
	"github.com/rvicquerra/portfolio-api/repositories"
	"github.com/rvicquerra/portfolio-api/services/authlog"
	"github.com/rvicquerra/portfolio-api/utils"
	"go.uber.org/zap"
)

// AdminLogsResponse is the admin log-viewing payload.
type AdminLogsResponse struct {
	Logs  []*models.AuthEvent `json:"logs"`
	Stats *models.LogStats    `json:"stats"`
	Count int                 `json:"count"`
	Total int                 `json:"total"`
}

// AdminLogsHandler serves the admin log-viewing page. Routes using it are
// gated behind RequireAuth + RequireRole("admin").
type AdminLogsHandler struct {
	authLog *authlog.Service
	logger  *zap.Logger
}

// NewAdminLogsHandler creates an AdminLogsHandler.
func NewAdminLogsHandler(authLog *authlog.Service, logger *zap.Logger) *AdminLogsHandler {
	return &AdminLogsHandler{authLog: authLog, logger: logger}
}

// HandleListLogs handles GET /api/admin/logs?event=<kind>&userId=<id>&limit=<n>.
func (h *AdminLogsHandler) HandleListLogs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit := 100
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			_ = utils.WriteBadRequest(w, "Invalid limit parameter", nil)
			return
		}
		limit = parsed
	}

	filter := repositories.Filter{}
	if userID := query.Get("userId"); userID != "" {
		filter.UserID = userID
	} else if event := query.Get("event"); event != "" {
		kind := models.EventKind(event)
		if !kind.Valid() {
			_ = utils.WriteBadRequest(w, "Unknown event type", nil)
			return
		}
		filter.Event = kind
	}

	logs, err := h.authLog.Query(r.Context(), filter, limit)
	if err != nil {
		h.logger.Error("failed to query auth logs", zap.Error(err))
		_ = utils.WriteInternalError(w)
		return
	}

	stats, err := h.authLog.Stats(r.Context())
	if err != nil {
		h.logger.Error("failed to aggregate auth log stats", zap.Error(err))
		_ = utils.WriteInternalError(w)
		return
	}

	_ = utils.WriteJSON(w, http.StatusOK, AdminLogsResponse{
		Logs:  logs,
		Stats: stats,
		Count: len(logs),
		Total: stats.TotalLogs,
	})
}
