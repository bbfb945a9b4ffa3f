package model

import (
	"time"

	"github.com/tikhomirovv/tg-moderator-ai/internal/domain/enums"
)

// ModerationAction is an append-only audit record, never mutated after
// creation.
type ModerationAction struct {
	ID           string           `json:"id"`
	BotID        string           `json:"bot_id"`
	ChatID       int64            `json:"chat_id"`
	UserID       int64            `json:"user_id"`
	MessageID    int64            `json:"message_id"`
	ActionType   enums.ActionType `json:"action_type"`
	RuleViolated string           `json:"rule_violated,omitempty"`
	AIConfidence float64          `json:"ai_confidence"`
	AIReasoning  string           `json:"ai_reasoning"`
	CreatedAt    time.Time        `json:"created_at"`
}
