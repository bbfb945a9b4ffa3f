package model

import "time"

// Bot is a managed Telegram bot. Chat configuration is stored separately and
// resolved per inbound event; the token never leaves the repo layer except
// for the platform gateway.
type Bot struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Token     string    `json:"-"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChatConfig is the per-chat moderation setup for one bot.
type ChatConfig struct {
	BotID                string   `json:"bot_id"`
	ChatID               int64    `json:"chat_id"`
	Name                 string   `json:"name"`
	RuleIDs              []string `json:"rule_ids"`
	WarningsBeforeBan    int      `json:"warnings_before_ban"`
	AutoDeleteViolations bool     `json:"auto_delete_violations"`
	// SilentMode suppresses outbound platform effects (notifications,
	// deletes, bans) while keeping state mutation and the audit trail.
	SilentMode bool `json:"silent_mode"`
}
