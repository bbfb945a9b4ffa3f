package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tikhomirovv/tg-moderator-ai/internal/domain/enums"
	"github.com/tikhomirovv/tg-moderator-ai/internal/domain/model"
	pgrepo "github.com/tikhomirovv/tg-moderator-ai/internal/repo/postgres"
)

const defaultStatsDays = 7

// ErrValidation marks query validation failures.
var ErrValidation = errors.New("invalid query")

// ActionStore is the moderation action query surface.
type ActionStore interface {
	ListByBot(ctx context.Context, botID string, filter pgrepo.ActionFilter) ([]model.ModerationAction, error)
}

// StatsStore reads the daily counters.
type StatsStore interface {
	ListRange(ctx context.Context, botID string, chatID int64, from, to time.Time) ([]model.ChatStatistics, error)
	Aggregate(ctx context.Context, botID string, chatID int64, from, to time.Time) (model.AggregatedStatistics, error)
}

// LogsQuery narrows the moderation log listing.
type LogsQuery struct {
	ChatID     int64
	UserID     int64
	ActionType string
	From       time.Time
	To         time.Time
	Limit      int
}

// StatsQuery selects a per-chat reporting window. A zero From/To defaults to
// the last defaultStatsDays days.
type StatsQuery struct {
	ChatID int64
	From   time.Time
	To     time.Time
}

// StatsReport bundles the daily rows with their range aggregate.
type StatsReport struct {
	From      time.Time                  `json:"from"`
	To        time.Time                  `json:"to"`
	Days      []model.ChatStatistics     `json:"days"`
	Aggregate model.AggregatedStatistics `json:"aggregate"`
}

// Service is the read side of the moderation trail: action log listings and
// daily statistics reports per bot.
type Service struct {
	actions ActionStore
	stats   StatsStore
}

func NewService(actions ActionStore, stats StatsStore) *Service {
	return &Service{actions: actions, stats: stats}
}

// Logs lists moderation actions for a bot, newest first.
func (s *Service) Logs(ctx context.Context, botID string, q LogsQuery) ([]model.ModerationAction, error) {
	if s.actions == nil {
		return nil, fmt.Errorf("action store is not configured")
	}
	if botID == "" {
		return nil, fmt.Errorf("%w: bot id is required", ErrValidation)
	}

	filter := pgrepo.ActionFilter{
		ChatID: q.ChatID,
		UserID: q.UserID,
		From:   q.From,
		To:     q.To,
		Limit:  q.Limit,
	}
	if q.ActionType != "" {
		at := enums.ActionType(q.ActionType)
		if !at.Valid() {
			return nil, fmt.Errorf("%w: unknown action type %q", ErrValidation, q.ActionType)
		}
		filter.ActionType = at
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		return nil, fmt.Errorf("%w: range end precedes range start", ErrValidation)
	}

	actions, err := s.actions.ListByBot(ctx, botID, filter)
	if err != nil {
		return nil, fmt.Errorf("list moderation actions: %w", err)
	}

	return actions, nil
}

// Statistics builds a daily report for one chat over the requested range.
func (s *Service) Statistics(ctx context.Context, botID string, q StatsQuery) (StatsReport, error) {
	if s.stats == nil {
		return StatsReport{}, fmt.Errorf("stats store is not configured")
	}
	if botID == "" {
		return StatsReport{}, fmt.Errorf("%w: bot id is required", ErrValidation)
	}
	if q.ChatID == 0 {
		return StatsReport{}, fmt.Errorf("%w: chat id is required", ErrValidation)
	}

	from, to := q.From, q.To
	if to.IsZero() {
		to = time.Now().UTC()
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -defaultStatsDays)
	}
	if to.Before(from) {
		return StatsReport{}, fmt.Errorf("%w: range end precedes range start", ErrValidation)
	}

	days, err := s.stats.ListRange(ctx, botID, q.ChatID, from, to)
	if err != nil {
		return StatsReport{}, fmt.Errorf("list daily statistics: %w", err)
	}

	agg, err := s.stats.Aggregate(ctx, botID, q.ChatID, from, to)
	if err != nil {
		return StatsReport{}, fmt.Errorf("aggregate statistics: %w", err)
	}

	return StatsReport{From: from, To: to, Days: days, Aggregate: agg}, nil
}
