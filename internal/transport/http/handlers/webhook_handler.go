package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/tikhomirovv/tg-moderator-ai/internal/domain/model"
	pgrepo "github.com/tikhomirovv/tg-moderator-ai/internal/repo/postgres"
	"github.com/tikhomirovv/tg-moderator-ai/internal/transport/http/dto"
	httperrors "github.com/tikhomirovv/tg-moderator-ai/internal/transport/http/errors"
)

// BotResolver loads the bot and its per-chat configuration for an update.
type BotResolver interface {
	FindActiveByID(ctx context.Context, id string) (model.Bot, error)
	FindChatConfig(ctx context.Context, botID string, chatID int64) (model.ChatConfig, error)
}

// Dispatcher accepts normalized events for asynchronous processing. Enqueue
// reports false when the queue is full.
type Dispatcher interface {
	Enqueue(bot model.Bot, chatCfg model.ChatConfig, event model.InboundEvent) bool
}

// WebhookHandler receives Bot API updates. Updates that carry nothing to
// moderate are dropped silently with 200 so the platform never retries them.
type WebhookHandler struct {
	bots       BotResolver
	dispatcher Dispatcher
	logger     *zap.Logger
}

func NewWebhookHandler(bots BotResolver, dispatcher Dispatcher, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{bots: bots, dispatcher: dispatcher, logger: logger}
}

func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	botID := strings.TrimSpace(chi.URLParam(r, "botID"))
	if botID == "" {
		writeBadRequest(w, "VALIDATION_ERROR", "bot id is required")
		return
	}
	if h.bots == nil || h.dispatcher == nil {
		writeInternal(w, "WEBHOOK_UNAVAILABLE", "webhook processing is unavailable")
		return
	}

	var update tgbotapi.Update
	if err := decodeJSON(r, &update); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid update payload")
		return
	}

	msg := update.Message
	if msg == nil || msg.From == nil || strings.TrimSpace(msg.Text) == "" {
		writeOK(w)
		return
	}

	bot, err := h.bots.FindActiveByID(r.Context(), botID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrBotNotFound) {
			h.logger.Debug("update for unknown bot dropped", zap.String("bot_id", botID))
			writeOK(w)
			return
		}
		h.logger.Error("resolve bot failed", zap.String("bot_id", botID), zap.Error(err))
		writeInternal(w, "INTERNAL_ERROR", "failed to resolve bot")
		return
	}

	chatCfg, err := h.bots.FindChatConfig(r.Context(), botID, msg.Chat.ID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrChatNotTracked) {
			h.logger.Debug("update for untracked chat dropped",
				zap.String("bot_id", botID),
				zap.Int64("chat_id", msg.Chat.ID))
			writeOK(w)
			return
		}
		h.logger.Error("resolve chat config failed",
			zap.String("bot_id", botID),
			zap.Int64("chat_id", msg.Chat.ID),
			zap.Error(err))
		writeInternal(w, "INTERNAL_ERROR", "failed to resolve chat")
		return
	}

	event := model.InboundEvent{
		BotID:     botID,
		ChatID:    msg.Chat.ID,
		UserID:    msg.From.ID,
		MessageID: int64(msg.MessageID),
		Text:      msg.Text,
		SentAt:    time.Unix(int64(msg.Date), 0).UTC(),
		User: model.UserInfo{
			Username:  msg.From.UserName,
			FirstName: msg.From.FirstName,
			LastName:  msg.From.LastName,
		},
	}

	if !h.dispatcher.Enqueue(bot, chatCfg, event) {
		// The update is acknowledged anyway; a retry storm on top of a full
		// queue only makes the backlog worse.
		h.logger.Warn("event queue full, update dropped",
			zap.String("bot_id", botID),
			zap.Int64("chat_id", event.ChatID),
			zap.Int64("message_id", event.MessageID))
	}

	writeOK(w)
}

func writeOK(w http.ResponseWriter) {
	httperrors.Write(w, http.StatusOK, dto.WebhookResponse{OK: true})
}
