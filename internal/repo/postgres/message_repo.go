package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tikhomirovv/tg-moderator-ai/internal/domain/model"
)

var (
	ErrMessageDuplicate = errors.New("message already recorded")
	ErrMessageNotFound  = errors.New("message not found")
)

type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

// Insert records an ingested message. (bot_id, chat_id, message_id) is
// unique; a re-delivered webhook update hits the conflict path and gets
// ErrMessageDuplicate, which is how the pipeline detects duplicates.
func (r *MessageRepo) Insert(ctx context.Context, msg model.Message) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(msg.BotID) == "" || msg.ChatID == 0 || msg.MessageID == 0 {
		return fmt.Errorf("invalid message payload")
	}

	sentAt := msg.SentAt.UTC()
	if sentAt.IsZero() {
		sentAt = time.Now().UTC()
	}

	tag, err := r.pool.Exec(ctx, `
INSERT INTO user_messages (
	bot_id, chat_id, user_id, message_id,
	text, sent_at, is_deleted, created_at
) VALUES ($1, $2, $3, $4, $5, $6, FALSE, NOW())
ON CONFLICT (bot_id, chat_id, message_id) DO NOTHING
`, msg.BotID, msg.ChatID, msg.UserID, msg.MessageID, msg.Text, sentAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrMessageDuplicate
	}

	return nil
}

// RecentTexts returns the newest message texts of one user, newest first.
func (r *MessageRepo) RecentTexts(ctx context.Context, botID string, chatID, userID int64, limit int) ([]string, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if limit <= 0 {
		limit = 5
	}

	rows, err := r.pool.Query(ctx, `
SELECT text
FROM user_messages
WHERE bot_id = $1 AND chat_id = $2 AND user_id = $3
ORDER BY sent_at DESC
LIMIT $4
`, botID, chatID, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("select recent messages: %w", err)
	}
	defer rows.Close()

	var texts []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, fmt.Errorf("scan recent message: %w", err)
		}
		texts = append(texts, text)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent messages: %w", err)
	}

	return texts, nil
}

func (r *MessageRepo) MarkDeleted(ctx context.Context, botID string, chatID, messageID int64, reason string) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE user_messages
SET
	is_deleted = TRUE,
	deleted_at = NOW(),
	deleted_reason = $4
WHERE bot_id = $1 AND chat_id = $2 AND message_id = $3
`, botID, chatID, messageID, reason)
	if err != nil {
		return fmt.Errorf("mark message deleted: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMessageNotFound
	}

	return nil
}
