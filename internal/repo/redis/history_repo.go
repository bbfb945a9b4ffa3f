package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const historyKeyPrefix = "msg_history:"

// HistoryRepo keeps a bounded window of recent message texts per
// (bot, chat, user), newest first. It is a cache in front of the message
// table: a cold or unreachable key falls back to Postgres in the history
// service.
type HistoryRepo struct {
	client *goredis.Client
	window int
	ttl    time.Duration
}

func NewHistoryRepo(client *goredis.Client, window int, ttl time.Duration) *HistoryRepo {
	if window <= 0 {
		window = 5
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &HistoryRepo{client: client, window: window, ttl: ttl}
}

func (r *HistoryRepo) Push(ctx context.Context, botID string, chatID, userID int64, text string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if text == "" {
		return nil
	}

	key := historyKey(botID, chatID, userID)
	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, key, text)
	pipe.LTrim(ctx, key, 0, int64(r.window-1))
	pipe.Expire(ctx, key, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("push message history: %w", err)
	}

	return nil
}

// Recent returns up to window texts, newest first. A missing key returns an
// empty slice and found=false so the caller can repopulate from Postgres.
func (r *HistoryRepo) Recent(ctx context.Context, botID string, chatID, userID int64) ([]string, bool, error) {
	if r.client == nil {
		return nil, false, fmt.Errorf("redis client is nil")
	}

	key := historyKey(botID, chatID, userID)
	exists, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return nil, false, fmt.Errorf("check message history key: %w", err)
	}
	if exists == 0 {
		return nil, false, nil
	}

	texts, err := r.client.LRange(ctx, key, 0, int64(r.window-1)).Result()
	if err != nil {
		return nil, false, fmt.Errorf("read message history: %w", err)
	}

	return texts, true, nil
}

// Warm seeds the window from persistent storage, newest first.
func (r *HistoryRepo) Warm(ctx context.Context, botID string, chatID, userID int64, texts []string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if len(texts) == 0 {
		return nil
	}

	// LPush reverses order, so feed oldest first.
	values := make([]interface{}, 0, len(texts))
	for i := len(texts) - 1; i >= 0; i-- {
		values = append(values, texts[i])
	}

	key := historyKey(botID, chatID, userID)
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.LPush(ctx, key, values...)
	pipe.LTrim(ctx, key, 0, int64(r.window-1))
	pipe.Expire(ctx, key, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("warm message history: %w", err)
	}

	return nil
}

func historyKey(botID string, chatID, userID int64) string {
	return fmt.Sprintf("%s%s:%d:%d", historyKeyPrefix, botID, chatID, userID)
}
