package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tikhomirovv/tg-moderator-ai/internal/domain/model"
)

var (
	ErrBotNotFound     = errors.New("bot not found")
	ErrChatNotTracked  = errors.New("chat is not tracked by this bot")
	ErrBotTokenMissing = errors.New("bot token is empty")
)

type BotRepo struct {
	pool *pgxpool.Pool
}

func NewBotRepo(pool *pgxpool.Pool) *BotRepo {
	return &BotRepo{pool: pool}
}

// FindActiveByID resolves a bot with its token for a single inbound event.
// Inactive bots behave like unknown ones.
func (r *BotRepo) FindActiveByID(ctx context.Context, botID string) (model.Bot, error) {
	if r.pool == nil {
		return model.Bot{}, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(botID) == "" {
		return model.Bot{}, fmt.Errorf("bot id is required")
	}

	var bot model.Bot
	err := r.pool.QueryRow(ctx, `
SELECT id, name, token, is_active, created_at, updated_at
FROM bots
WHERE id = $1 AND is_active = TRUE
`, botID).Scan(&bot.ID, &bot.Name, &bot.Token, &bot.IsActive, &bot.CreatedAt, &bot.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Bot{}, ErrBotNotFound
		}
		return model.Bot{}, fmt.Errorf("find active bot: %w", err)
	}

	if strings.TrimSpace(bot.Token) == "" {
		return model.Bot{}, ErrBotTokenMissing
	}

	return bot, nil
}

// FindChatConfig returns the moderation setup of one chat for one bot.
func (r *BotRepo) FindChatConfig(ctx context.Context, botID string, chatID int64) (model.ChatConfig, error) {
	if r.pool == nil {
		return model.ChatConfig{}, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(botID) == "" || chatID == 0 {
		return model.ChatConfig{}, fmt.Errorf("invalid chat config lookup payload")
	}

	var cfg model.ChatConfig
	err := r.pool.QueryRow(ctx, `
SELECT bot_id, chat_id, name, rule_ids, warnings_before_ban, auto_delete_violations, silent_mode
FROM bot_chats
WHERE bot_id = $1 AND chat_id = $2
`, botID, chatID).Scan(
		&cfg.BotID,
		&cfg.ChatID,
		&cfg.Name,
		&cfg.RuleIDs,
		&cfg.WarningsBeforeBan,
		&cfg.AutoDeleteViolations,
		&cfg.SilentMode,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ChatConfig{}, ErrChatNotTracked
		}
		return model.ChatConfig{}, fmt.Errorf("find chat config: %w", err)
	}

	return cfg, nil
}

func (r *BotRepo) ListActive(ctx context.Context) ([]model.Bot, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, name, token, is_active, created_at, updated_at
FROM bots
WHERE is_active = TRUE
ORDER BY id
`)
	if err != nil {
		return nil, fmt.Errorf("list active bots: %w", err)
	}
	defer rows.Close()

	var bots []model.Bot
	for rows.Next() {
		var bot model.Bot
		if err := rows.Scan(&bot.ID, &bot.Name, &bot.Token, &bot.IsActive, &bot.CreatedAt, &bot.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan bot row: %w", err)
		}
		bots = append(bots, bot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bot rows: %w", err)
	}

	return bots, nil
}
