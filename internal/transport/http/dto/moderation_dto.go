package dto

import (
	"time"

	"github.com/tikhomirovv/tg-moderator-ai/internal/domain/model"
)

type LogEntry struct {
	ID           string    `json:"id"`
	ChatID       int64     `json:"chat_id"`
	UserID       int64     `json:"user_id"`
	MessageID    int64     `json:"message_id,omitempty"`
	ActionType   string    `json:"action_type"`
	RuleViolated string    `json:"rule_violated,omitempty"`
	AIConfidence float64   `json:"ai_confidence"`
	AIReasoning  string    `json:"ai_reasoning,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type LogsResponse struct {
	Logs []LogEntry `json:"logs"`
}

type StatisticsResponse struct {
	From      time.Time              `json:"from"`
	To        time.Time              `json:"to"`
	Days      []model.ChatStatistics `json:"days"`
	Aggregate StatisticsAggregate    `json:"aggregate"`
}

type StatisticsAggregate struct {
	TotalMessagesProcessed int `json:"total_messages_processed"`
	TotalWarningsIssued    int `json:"total_warnings_issued"`
	TotalMessagesDeleted   int `json:"total_messages_deleted"`
	TotalUsersBanned       int `json:"total_users_banned"`
	MaxUniqueUsers         int `json:"max_unique_users"`
	DaysCount              int `json:"days_count"`
}
