package model

import "time"

// UserContext is the escalation state for one user in one chat, keyed by
// (bot, chat, user). WarningsCount only ever grows within a ban cycle and is
// mutated exclusively through the atomic repo increment.
type UserContext struct {
	BotID         string     `json:"bot_id"`
	ChatID        int64      `json:"chat_id"`
	UserID        int64      `json:"user_id"`
	Username      string     `json:"username,omitempty"`
	FirstName     string     `json:"first_name,omitempty"`
	LastName      string     `json:"last_name,omitempty"`
	WarningsCount int        `json:"warnings_count"`
	IsBanned      bool       `json:"is_banned"`
	BannedAt      *time.Time `json:"banned_at,omitempty"`
	BannedBy      string     `json:"banned_by,omitempty"`
	LastActivity  time.Time  `json:"last_activity"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// UserInfo carries the profile fields refreshed on each contact.
type UserInfo struct {
	Username  string
	FirstName string
	LastName  string
}
