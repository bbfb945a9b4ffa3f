package history

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/tikhomirovv/tg-moderator-ai/internal/domain/model"
	pgrepo "github.com/tikhomirovv/tg-moderator-ai/internal/repo/postgres"
)

// HistoryWindow bounds the recent-message context handed to the judge.
const HistoryWindow = 5

// ContextStore is the persistent escalation state per (bot, chat, user).
type ContextStore interface {
	GetOrCreate(ctx context.Context, botID string, chatID, userID int64, info model.UserInfo) (model.UserContext, bool, error)
	IncrementWarnings(ctx context.Context, botID string, chatID, userID int64) (int, error)
	Ban(ctx context.Context, botID string, chatID, userID int64, ruleID string) (bool, error)
}

// MessageStore is the persistent message log.
type MessageStore interface {
	Insert(ctx context.Context, msg model.Message) error
	RecentTexts(ctx context.Context, botID string, chatID, userID int64, limit int) ([]string, error)
	MarkDeleted(ctx context.Context, botID string, chatID, messageID int64, reason string) error
}

// Cache is the bounded recent-text window in front of the message store.
type Cache interface {
	Push(ctx context.Context, botID string, chatID, userID int64, text string) error
	Recent(ctx context.Context, botID string, chatID, userID int64) ([]string, bool, error)
	Warm(ctx context.Context, botID string, chatID, userID int64, texts []string) error
}

// Service combines escalation state, the message log and the recent-history
// cache behind one API for the escalation engine. The cache is best-effort:
// every cache failure falls back to Postgres and is logged, never returned.
type Service struct {
	contexts ContextStore
	messages MessageStore
	cache    Cache
	logger   *zap.Logger
}

func NewService(contexts ContextStore, messages MessageStore, cache Cache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		contexts: contexts,
		messages: messages,
		cache:    cache,
		logger:   logger,
	}
}

func (s *Service) GetOrCreate(ctx context.Context, botID string, chatID, userID int64, info model.UserInfo) (model.UserContext, bool, error) {
	if s.contexts == nil {
		return model.UserContext{}, false, fmt.Errorf("context store is not configured")
	}
	return s.contexts.GetOrCreate(ctx, botID, chatID, userID, info)
}

// SaveMessage records an ingested message and pushes its text into the
// recent-history window. Returns pgrepo.ErrMessageDuplicate untouched so
// the engine can detect re-delivery.
func (s *Service) SaveMessage(ctx context.Context, msg model.Message) error {
	if s.messages == nil {
		return fmt.Errorf("message store is not configured")
	}

	if err := s.messages.Insert(ctx, msg); err != nil {
		if errors.Is(err, pgrepo.ErrMessageDuplicate) {
			return err
		}
		return fmt.Errorf("save message: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Push(ctx, msg.BotID, msg.ChatID, msg.UserID, msg.Text); err != nil {
			s.logger.Debug("message history cache push failed",
				zap.String("bot_id", msg.BotID),
				zap.Int64("chat_id", msg.ChatID),
				zap.Int64("user_id", msg.UserID),
				zap.Error(err))
		}
	}

	return nil
}

// RecentTexts returns up to HistoryWindow recent texts for the user, newest
// first. Served from the cache when warm, from Postgres otherwise; a cold
// cache is re-warmed in passing.
func (s *Service) RecentTexts(ctx context.Context, botID string, chatID, userID int64) ([]string, error) {
	if s.cache != nil {
		texts, found, err := s.cache.Recent(ctx, botID, chatID, userID)
		if err != nil {
			s.logger.Debug("message history cache read failed",
				zap.String("bot_id", botID),
				zap.Int64("chat_id", chatID),
				zap.Int64("user_id", userID),
				zap.Error(err))
		} else if found {
			return texts, nil
		}
	}

	if s.messages == nil {
		return nil, fmt.Errorf("message store is not configured")
	}

	texts, err := s.messages.RecentTexts(ctx, botID, chatID, userID, HistoryWindow)
	if err != nil {
		return nil, fmt.Errorf("load recent messages: %w", err)
	}

	if s.cache != nil && len(texts) > 0 {
		if err := s.cache.Warm(ctx, botID, chatID, userID, texts); err != nil {
			s.logger.Debug("message history cache warm failed",
				zap.String("bot_id", botID),
				zap.Int64("chat_id", chatID),
				zap.Int64("user_id", userID),
				zap.Error(err))
		}
	}

	return texts, nil
}

func (s *Service) IncrementWarnings(ctx context.Context, botID string, chatID, userID int64) (int, error) {
	if s.contexts == nil {
		return 0, fmt.Errorf("context store is not configured")
	}
	return s.contexts.IncrementWarnings(ctx, botID, chatID, userID)
}

func (s *Service) Ban(ctx context.Context, botID string, chatID, userID int64, ruleID string) (bool, error) {
	if s.contexts == nil {
		return false, fmt.Errorf("context store is not configured")
	}
	return s.contexts.Ban(ctx, botID, chatID, userID, ruleID)
}

func (s *Service) MarkDeleted(ctx context.Context, botID string, chatID, messageID int64, reason string) error {
	if s.messages == nil {
		return fmt.Errorf("message store is not configured")
	}
	return s.messages.MarkDeleted(ctx, botID, chatID, messageID, reason)
}
