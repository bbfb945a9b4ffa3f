package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tikhomirovv/tg-moderator-ai/internal/domain/enums"
	"github.com/tikhomirovv/tg-moderator-ai/internal/domain/model"
)

type ActionRepo struct {
	pool *pgxpool.Pool
}

// ActionFilter narrows audit queries. Zero values mean "no filter".
type ActionFilter struct {
	ChatID     int64
	UserID     int64
	ActionType enums.ActionType
	From       time.Time
	To         time.Time
	Limit      int
}

func NewActionRepo(pool *pgxpool.Pool) *ActionRepo {
	return &ActionRepo{pool: pool}
}

// Insert appends an audit record. Confidence is clamped here as the last
// line of defense; records are never updated afterwards.
func (r *ActionRepo) Insert(ctx context.Context, action model.ModerationAction) (model.ModerationAction, error) {
	if r.pool == nil {
		return model.ModerationAction{}, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(action.BotID) == "" || !action.ActionType.Valid() {
		return model.ModerationAction{}, fmt.Errorf("invalid moderation action payload")
	}

	if action.ID == "" {
		action.ID = uuid.NewString()
	}
	if action.AIConfidence < 0 {
		action.AIConfidence = 0
	}
	if action.AIConfidence > 1 {
		action.AIConfidence = 1
	}

	err := r.pool.QueryRow(ctx, `
INSERT INTO moderation_actions (
	id, bot_id, chat_id, user_id, message_id,
	action_type, rule_violated, ai_confidence, ai_reasoning, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
RETURNING created_at
`, action.ID, action.BotID, action.ChatID, action.UserID, action.MessageID,
		action.ActionType, action.RuleViolated, action.AIConfidence, action.AIReasoning,
	).Scan(&action.CreatedAt)
	if err != nil {
		return model.ModerationAction{}, fmt.Errorf("insert moderation action: %w", err)
	}

	return action, nil
}

// ListByBot returns audit records for a bot, newest first, narrowed by the
// optional filter fields.
func (r *ActionRepo) ListByBot(ctx context.Context, botID string, filter ActionFilter) ([]model.ModerationAction, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(botID) == "" {
		return nil, fmt.Errorf("bot id is required")
	}

	query := strings.Builder{}
	query.WriteString(`
SELECT id, bot_id, chat_id, user_id, message_id,
	action_type, COALESCE(rule_violated, ''), ai_confidence, ai_reasoning, created_at
FROM moderation_actions
WHERE bot_id = $1`)

	args := []any{botID}
	if filter.ChatID != 0 {
		args = append(args, filter.ChatID)
		fmt.Fprintf(&query, " AND chat_id = $%d", len(args))
	}
	if filter.UserID != 0 {
		args = append(args, filter.UserID)
		fmt.Fprintf(&query, " AND user_id = $%d", len(args))
	}
	if filter.ActionType != "" {
		args = append(args, filter.ActionType)
		fmt.Fprintf(&query, " AND action_type = $%d", len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From.UTC())
		fmt.Fprintf(&query, " AND created_at >= $%d", len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To.UTC())
		fmt.Fprintf(&query, " AND created_at <= $%d", len(args))
	}

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	args = append(args, limit)
	fmt.Fprintf(&query, " ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list moderation actions: %w", err)
	}
	defer rows.Close()

	var actions []model.ModerationAction
	for rows.Next() {
		var a model.ModerationAction
		if err := rows.Scan(
			&a.ID, &a.BotID, &a.ChatID, &a.UserID, &a.MessageID,
			&a.ActionType, &a.RuleViolated, &a.AIConfidence, &a.AIReasoning, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan moderation action row: %w", err)
		}
		actions = append(actions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate moderation action rows: %w", err)
	}

	return actions, nil
}
