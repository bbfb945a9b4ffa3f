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

var ErrUserContextNotFound = errors.New("user context not found")

type UserContextRepo struct {
	pool *pgxpool.Pool
}

func NewUserContextRepo(pool *pgxpool.Pool) *UserContextRepo {
	return &UserContextRepo{pool: pool}
}

// GetOrCreate returns the escalation state for (bot, chat, user), creating a
// zero-warning row on first contact. Profile fields and last_activity are
// refreshed on every call. The second return value reports whether the row
// was created by this call.
func (r *UserContextRepo) GetOrCreate(ctx context.Context, botID string, chatID, userID int64, info model.UserInfo) (model.UserContext, bool, error) {
	if r.pool == nil {
		return model.UserContext{}, false, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(botID) == "" || chatID == 0 || userID <= 0 {
		return model.UserContext{}, false, fmt.Errorf("invalid user context payload")
	}

	var (
		uc      model.UserContext
		created bool
	)
	err := r.pool.QueryRow(ctx, `
INSERT INTO user_context (
	bot_id, chat_id, user_id,
	username, first_name, last_name,
	warnings_count, is_banned,
	last_activity, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, 0, FALSE, NOW(), NOW(), NOW())
ON CONFLICT (bot_id, chat_id, user_id) DO UPDATE SET
	username = EXCLUDED.username,
	first_name = EXCLUDED.first_name,
	last_name = EXCLUDED.last_name,
	last_activity = NOW(),
	updated_at = NOW()
RETURNING
	bot_id, chat_id, user_id,
	username, first_name, last_name,
	warnings_count, is_banned, banned_at, COALESCE(banned_by, ''),
	last_activity, created_at, updated_at,
	(xmax = 0) AS inserted
`, botID, chatID, userID, info.Username, info.FirstName, info.LastName).Scan(
		&uc.BotID, &uc.ChatID, &uc.UserID,
		&uc.Username, &uc.FirstName, &uc.LastName,
		&uc.WarningsCount, &uc.IsBanned, &uc.BannedAt, &uc.BannedBy,
		&uc.LastActivity, &uc.CreatedAt, &uc.UpdatedAt,
		&created,
	)
	if err != nil {
		return model.UserContext{}, false, fmt.Errorf("get or create user context: %w", err)
	}

	return uc, created, nil
}

func (r *UserContextRepo) FindByUser(ctx context.Context, botID string, chatID, userID int64) (model.UserContext, error) {
	if r.pool == nil {
		return model.UserContext{}, fmt.Errorf("postgres pool is nil")
	}

	var uc model.UserContext
	err := r.pool.QueryRow(ctx, `
SELECT
	bot_id, chat_id, user_id,
	username, first_name, last_name,
	warnings_count, is_banned, banned_at, COALESCE(banned_by, ''),
	last_activity, created_at, updated_at
FROM user_context
WHERE bot_id = $1 AND chat_id = $2 AND user_id = $3
`, botID, chatID, userID).Scan(
		&uc.BotID, &uc.ChatID, &uc.UserID,
		&uc.Username, &uc.FirstName, &uc.LastName,
		&uc.WarningsCount, &uc.IsBanned, &uc.BannedAt, &uc.BannedBy,
		&uc.LastActivity, &uc.CreatedAt, &uc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.UserContext{}, ErrUserContextNotFound
		}
		return model.UserContext{}, fmt.Errorf("find user context: %w", err)
	}

	return uc, nil
}

// IncrementWarnings bumps warnings_count in a single statement and returns
// the post-increment value. The ban-threshold decision must be derived from
// this value, never from a re-read; two concurrent violations therefore see
// distinct counts and at most one of them reaches the threshold first.
func (r *UserContextRepo) IncrementWarnings(ctx context.Context, botID string, chatID, userID int64) (int, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	var warnings int
	err := r.pool.QueryRow(ctx, `
UPDATE user_context
SET
	warnings_count = warnings_count + 1,
	last_activity = NOW(),
	updated_at = NOW()
WHERE bot_id = $1 AND chat_id = $2 AND user_id = $3
RETURNING warnings_count
`, botID, chatID, userID).Scan(&warnings)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUserContextNotFound
		}
		return 0, fmt.Errorf("increment warnings: %w", err)
	}

	return warnings, nil
}

// Ban marks the user banned; already-banned users only get a last_activity
// refresh. Returns true when this call performed the ban transition.
func (r *UserContextRepo) Ban(ctx context.Context, botID string, chatID, userID int64, ruleID string) (bool, error) {
	if r.pool == nil {
		return false, fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE user_context
SET
	is_banned = TRUE,
	banned_at = NOW(),
	banned_by = $4,
	last_activity = NOW(),
	updated_at = NOW()
WHERE bot_id = $1 AND chat_id = $2 AND user_id = $3 AND NOT is_banned
`, botID, chatID, userID, ruleID)
	if err != nil {
		return false, fmt.Errorf("ban user: %w", err)
	}

	if tag.RowsAffected() == 0 {
		if _, err := r.pool.Exec(ctx, `
UPDATE user_context
SET last_activity = NOW(), updated_at = NOW()
WHERE bot_id = $1 AND chat_id = $2 AND user_id = $3
`, botID, chatID, userID); err != nil {
			return false, fmt.Errorf("refresh banned user activity: %w", err)
		}
		return false, nil
	}

	return true, nil
}

func (r *UserContextRepo) ListBanned(ctx context.Context, botID string, chatID int64) ([]model.UserContext, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT
	bot_id, chat_id, user_id,
	username, first_name, last_name,
	warnings_count, is_banned, banned_at, COALESCE(banned_by, ''),
	last_activity, created_at, updated_at
FROM user_context
WHERE bot_id = $1 AND chat_id = $2 AND is_banned = TRUE
ORDER BY banned_at DESC
`, botID, chatID)
	if err != nil {
		return nil, fmt.Errorf("list banned users: %w", err)
	}
	defer rows.Close()

	var contexts []model.UserContext
	for rows.Next() {
		var uc model.UserContext
		if err := rows.Scan(
			&uc.BotID, &uc.ChatID, &uc.UserID,
			&uc.Username, &uc.FirstName, &uc.LastName,
			&uc.WarningsCount, &uc.IsBanned, &uc.BannedAt, &uc.BannedBy,
			&uc.LastActivity, &uc.CreatedAt, &uc.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan user context row: %w", err)
		}
		contexts = append(contexts, uc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user context rows: %w", err)
	}

	return contexts, nil
}
