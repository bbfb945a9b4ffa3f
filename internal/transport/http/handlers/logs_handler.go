package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	auditsvc "github.com/tikhomirovv/tg-moderator-ai/internal/services/audit"
	"github.com/tikhomirovv/tg-moderator-ai/internal/transport/http/dto"
	httperrors "github.com/tikhomirovv/tg-moderator-ai/internal/transport/http/errors"
)

type LogsHandler struct {
	audit  *auditsvc.Service
	logger *zap.Logger
}

func NewLogsHandler(audit *auditsvc.Service, logger *zap.Logger) *LogsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogsHandler{audit: audit, logger: logger}
}

func (h *LogsHandler) Handle(w http.ResponseWriter, r *http.Request) {
	botID := strings.TrimSpace(chi.URLParam(r, "botID"))
	if botID == "" {
		writeBadRequest(w, "VALIDATION_ERROR", "bot id is required")
		return
	}
	if h.audit == nil {
		writeInternal(w, "AUDIT_SERVICE_UNAVAILABLE", "audit service is unavailable")
		return
	}

	q := auditsvc.LogsQuery{
		ActionType: strings.TrimSpace(r.URL.Query().Get("action_type")),
	}

	var err error
	if q.ChatID, _, err = queryInt64(r, "chat_id"); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "chat_id must be an integer")
		return
	}
	if q.UserID, _, err = queryInt64(r, "user_id"); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "user_id must be an integer")
		return
	}
	if q.Limit, _, err = queryInt(r, "limit"); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "limit must be an integer")
		return
	}
	if q.From, _, err = queryTime(r, "from"); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "from must be a date or RFC 3339 timestamp")
		return
	}
	if q.To, _, err = queryTimeTo(r, "to"); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "to must be a date or RFC 3339 timestamp")
		return
	}

	actions, err := h.audit.Logs(r.Context(), botID, q)
	if err != nil {
		if errors.Is(err, auditsvc.ErrValidation) {
			writeBadRequest(w, "VALIDATION_ERROR", err.Error())
			return
		}
		h.logger.Error("list moderation logs failed", zap.String("bot_id", botID), zap.Error(err))
		writeInternal(w, "INTERNAL_ERROR", "failed to list moderation logs")
		return
	}

	logs := make([]dto.LogEntry, 0, len(actions))
	for _, a := range actions {
		logs = append(logs, dto.LogEntry{
			ID:           a.ID,
			ChatID:       a.ChatID,
			UserID:       a.UserID,
			MessageID:    a.MessageID,
			ActionType:   string(a.ActionType),
			RuleViolated: a.RuleViolated,
			AIConfidence: a.AIConfidence,
			AIReasoning:  a.AIReasoning,
			CreatedAt:    a.CreatedAt,
		})
	}

	httperrors.Write(w, http.StatusOK, dto.LogsResponse{Logs: logs})
}
