package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tikhomirovv/tg-moderator-ai/internal/domain/model"
)

// StatsField names one of the daily counters.
type StatsField string

const (
	StatsMessagesProcessed StatsField = "messages_processed"
	StatsWarningsIssued    StatsField = "warnings_issued"
	StatsMessagesDeleted   StatsField = "messages_deleted"
	StatsUsersBanned       StatsField = "users_banned"
	StatsUniqueUsers       StatsField = "unique_users"
)

var statsColumns = map[StatsField]struct{}{
	StatsMessagesProcessed: {},
	StatsWarningsIssued:    {},
	StatsMessagesDeleted:   {},
	StatsUsersBanned:       {},
	StatsUniqueUsers:       {},
}

type StatsRepo struct {
	pool *pgxpool.Pool
}

func NewStatsRepo(pool *pgxpool.Pool) *StatsRepo {
	return &StatsRepo{pool: pool}
}

// Increment bumps one daily counter for (bot, chat, day of `at`). The first
// increment of a new day creates the row with every other counter at zero.
// The field name is validated against a fixed column set before it is
// interpolated into the statement.
func (r *StatsRepo) Increment(ctx context.Context, botID string, chatID int64, at time.Time, field StatsField) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(botID) == "" || chatID == 0 {
		return fmt.Errorf("invalid statistics payload")
	}
	if _, ok := statsColumns[field]; !ok {
		return fmt.Errorf("unknown statistics field %q", field)
	}

	if at.IsZero() {
		at = time.Now().UTC()
	}
	day := at.UTC().Truncate(24 * time.Hour)

	query := fmt.Sprintf(`
INSERT INTO chat_statistics (
	bot_id, chat_id, day, %[1]s, updated_at
) VALUES ($1, $2, $3::date, 1, NOW())
ON CONFLICT (bot_id, chat_id, day) DO UPDATE SET
	%[1]s = chat_statistics.%[1]s + 1,
	updated_at = NOW()
`, string(field))

	if _, err := r.pool.Exec(ctx, query, botID, chatID, day); err != nil {
		return fmt.Errorf("increment %s: %w", field, err)
	}

	return nil
}

// ListRange returns daily rows for (bot, chat) between from and to
// inclusive, oldest first.
func (r *StatsRepo) ListRange(ctx context.Context, botID string, chatID int64, from, to time.Time) ([]model.ChatStatistics, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT bot_id, chat_id, day,
	messages_processed, warnings_issued, messages_deleted, users_banned, unique_users,
	updated_at
FROM chat_statistics
WHERE bot_id = $1 AND chat_id = $2 AND day BETWEEN $3::date AND $4::date
ORDER BY day
`, botID, chatID, from.UTC().Truncate(24*time.Hour), to.UTC().Truncate(24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("list statistics range: %w", err)
	}
	defer rows.Close()

	var list []model.ChatStatistics
	for rows.Next() {
		var stats model.ChatStatistics
		if err := rows.Scan(
			&stats.BotID, &stats.ChatID, &stats.Day,
			&stats.MessagesProcessed, &stats.WarningsIssued, &stats.MessagesDeleted,
			&stats.UsersBanned, &stats.UniqueUsers,
			&stats.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan statistics row: %w", err)
		}
		list = append(list, stats)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate statistics rows: %w", err)
	}

	return list, nil
}

// Aggregate sums the counters over a date range and reports the peak daily
// unique-user count.
func (r *StatsRepo) Aggregate(ctx context.Context, botID string, chatID int64, from, to time.Time) (model.AggregatedStatistics, error) {
	if r.pool == nil {
		return model.AggregatedStatistics{}, fmt.Errorf("postgres pool is nil")
	}

	var agg model.AggregatedStatistics
	err := r.pool.QueryRow(ctx, `
SELECT
	COALESCE(SUM(messages_processed), 0),
	COALESCE(SUM(warnings_issued), 0),
	COALESCE(SUM(messages_deleted), 0),
	COALESCE(SUM(users_banned), 0),
	COALESCE(MAX(unique_users), 0),
	COUNT(*)
FROM chat_statistics
WHERE bot_id = $1 AND chat_id = $2 AND day BETWEEN $3::date AND $4::date
`, botID, chatID, from.UTC().Truncate(24*time.Hour), to.UTC().Truncate(24*time.Hour)).Scan(
		&agg.TotalMessagesProcessed,
		&agg.TotalWarningsIssued,
		&agg.TotalMessagesDeleted,
		&agg.TotalUsersBanned,
		&agg.MaxUniqueUsers,
		&agg.DaysCount,
	)
	if err != nil {
		return model.AggregatedStatistics{}, fmt.Errorf("aggregate statistics: %w", err)
	}

	return agg, nil
}
