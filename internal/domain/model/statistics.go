package model

import "time"

// ChatStatistics is the daily aggregate for (bot, chat, day). Counters are
// created lazily on first increment and never decremented.
type ChatStatistics struct {
	BotID             string    `json:"bot_id"`
	ChatID            int64     `json:"chat_id"`
	Day               time.Time `json:"date"`
	MessagesProcessed int       `json:"messages_processed"`
	WarningsIssued    int       `json:"warnings_issued"`
	MessagesDeleted   int       `json:"messages_deleted"`
	UsersBanned       int       `json:"users_banned"`
	UniqueUsers       int       `json:"unique_users"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// AggregatedStatistics is the sum over a date range plus the peak daily
// unique-user count.
type AggregatedStatistics struct {
	TotalMessagesProcessed int `json:"total_messages_processed"`
	TotalWarningsIssued    int `json:"total_warnings_issued"`
	TotalMessagesDeleted   int `json:"total_messages_deleted"`
	TotalUsersBanned       int `json:"total_users_banned"`
	MaxUniqueUsers         int `json:"max_unique_users"`
	DaysCount              int `json:"days_count"`
}
