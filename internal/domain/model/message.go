package model

import "time"

// Message is an ingested chat message. (BotID, ChatID, MessageID) is unique;
// duplicate webhook deliveries are detected on insert.
type Message struct {
	BotID         string     `json:"bot_id"`
	ChatID        int64      `json:"chat_id"`
	UserID        int64      `json:"user_id"`
	MessageID     int64      `json:"message_id"`
	Text          string     `json:"text"`
	SentAt        time.Time  `json:"sent_at"`
	IsDeleted     bool       `json:"is_deleted"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
	DeletedReason string     `json:"deleted_reason,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// InboundEvent is a normalized message event handed to the escalation
// pipeline by the webhook transport.
type InboundEvent struct {
	BotID     string
	ChatID    int64
	UserID    int64
	MessageID int64
	Text      string
	SentAt    time.Time
	User      UserInfo
}
