package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	auditsvc "github.com/tikhomirovv/tg-moderator-ai/internal/services/audit"
	"github.com/tikhomirovv/tg-moderator-ai/internal/transport/http/dto"
	httperrors "github.com/tikhomirovv/tg-moderator-ai/internal/transport/http/errors"
)

type StatisticsHandler struct {
	audit  *auditsvc.Service
	logger *zap.Logger
}

func NewStatisticsHandler(audit *auditsvc.Service, logger *zap.Logger) *StatisticsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatisticsHandler{audit: audit, logger: logger}
}

func (h *StatisticsHandler) Handle(w http.ResponseWriter, r *http.Request) {
	botID := strings.TrimSpace(chi.URLParam(r, "botID"))
	if botID == "" {
		writeBadRequest(w, "VALIDATION_ERROR", "bot id is required")
		return
	}
	chatID, err := strconv.ParseInt(strings.TrimSpace(chi.URLParam(r, "chatID")), 10, 64)
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "chat id must be an integer")
		return
	}
	if h.audit == nil {
		writeInternal(w, "AUDIT_SERVICE_UNAVAILABLE", "audit service is unavailable")
		return
	}

	q := auditsvc.StatsQuery{ChatID: chatID}
	if q.From, _, err = queryTime(r, "from"); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "from must be a date or RFC 3339 timestamp")
		return
	}
	if q.To, _, err = queryTimeTo(r, "to"); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "to must be a date or RFC 3339 timestamp")
		return
	}

	report, err := h.audit.Statistics(r.Context(), botID, q)
	if err != nil {
		if errors.Is(err, auditsvc.ErrValidation) {
			writeBadRequest(w, "VALIDATION_ERROR", err.Error())
			return
		}
		h.logger.Error("build statistics report failed",
			zap.String("bot_id", botID),
			zap.Int64("chat_id", chatID),
			zap.Error(err))
		writeInternal(w, "INTERNAL_ERROR", "failed to build statistics report")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.StatisticsResponse{
		From: report.From,
		To:   report.To,
		Days: report.Days,
		Aggregate: dto.StatisticsAggregate{
			TotalMessagesProcessed: report.Aggregate.TotalMessagesProcessed,
			TotalWarningsIssued:    report.Aggregate.TotalWarningsIssued,
			TotalMessagesDeleted:   report.Aggregate.TotalMessagesDeleted,
			TotalUsersBanned:       report.Aggregate.TotalUsersBanned,
			MaxUniqueUsers:         report.Aggregate.MaxUniqueUsers,
			DaysCount:              report.Aggregate.DaysCount,
		},
	})
}
