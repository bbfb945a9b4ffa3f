package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/tikhomirovv/tg-moderator-ai/internal/domain/model"
	pgrepo "github.com/tikhomirovv/tg-moderator-ai/internal/repo/postgres"
	httperrors "github.com/tikhomirovv/tg-moderator-ai/internal/transport/http/errors"
)

type ContextReader interface {
	FindByUser(ctx context.Context, botID string, chatID, userID int64) (model.UserContext, error)
	ListBanned(ctx context.Context, botID string, chatID int64) ([]model.UserContext, error)
}

// UsersHandler exposes per-chat escalation state: a single user's context and
// the banned roster.
type UsersHandler struct {
	contexts ContextReader
	logger   *zap.Logger
}

func NewUsersHandler(contexts ContextReader, logger *zap.Logger) *UsersHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UsersHandler{contexts: contexts, logger: logger}
}

func (h *UsersHandler) HandleUser(w http.ResponseWriter, r *http.Request) {
	botID, chatID, ok := h.chatParams(w, r)
	if !ok {
		return
	}
	userID, err := strconv.ParseInt(strings.TrimSpace(chi.URLParam(r, "userID")), 10, 64)
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "user id must be an integer")
		return
	}

	uc, err := h.contexts.FindByUser(r.Context(), botID, chatID, userID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserContextNotFound) {
			writeNotFound(w, "USER_NOT_FOUND", "no context recorded for this user")
			return
		}
		h.logger.Error("find user context failed",
			zap.String("bot_id", botID),
			zap.Int64("chat_id", chatID),
			zap.Int64("user_id", userID),
			zap.Error(err))
		writeInternal(w, "INTERNAL_ERROR", "failed to load user context")
		return
	}

	httperrors.Write(w, http.StatusOK, uc)
}

func (h *UsersHandler) HandleBanned(w http.ResponseWriter, r *http.Request) {
	botID, chatID, ok := h.chatParams(w, r)
	if !ok {
		return
	}

	banned, err := h.contexts.ListBanned(r.Context(), botID, chatID)
	if err != nil {
		h.logger.Error("list banned users failed",
			zap.String("bot_id", botID),
			zap.Int64("chat_id", chatID),
			zap.Error(err))
		writeInternal(w, "INTERNAL_ERROR", "failed to list banned users")
		return
	}
	if banned == nil {
		banned = []model.UserContext{}
	}

	httperrors.Write(w, http.StatusOK, struct {
		Banned []model.UserContext `json:"banned"`
	}{Banned: banned})
}

func (h *UsersHandler) chatParams(w http.ResponseWriter, r *http.Request) (string, int64, bool) {
	botID := strings.TrimSpace(chi.URLParam(r, "botID"))
	if botID == "" {
		writeBadRequest(w, "VALIDATION_ERROR", "bot id is required")
		return "", 0, false
	}
	chatID, err := strconv.ParseInt(strings.TrimSpace(chi.URLParam(r, "chatID")), 10, 64)
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "chat id must be an integer")
		return "", 0, false
	}
	if h.contexts == nil {
		writeInternal(w, "CONTEXT_STORE_UNAVAILABLE", "context store is unavailable")
		return "", 0, false
	}
	return botID, chatID, true
}
