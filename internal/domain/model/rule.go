package model

import (
	"time"

	"github.com/tikhomirovv/tg-moderator-ai/internal/domain/enums"
)

// Rule is a moderation rule evaluated by the AI judge. AIPrompt holds the
// evaluation criteria handed verbatim to the model.
type Rule struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	AIPrompt    string         `json:"ai_prompt"`
	Severity    enums.Severity `json:"severity"`
	IsActive    bool           `json:"is_active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}
