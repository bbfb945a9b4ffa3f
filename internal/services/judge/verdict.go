package judge

import "github.com/tikhomirovv/tg-moderator-ai/internal/domain/model"

// Request is the structured input for one judgment call. Rules must be the
// ones configured for the originating chat and nothing else.
type Request struct {
	Message string
	UserID  int64
	ChatID  int64
	Rules   []model.Rule
	Context Context
}

// Context is the escalation-aware part of the request.
type Context struct {
	UserWarnings  int
	RecentHistory []string
}

// Verdict is the normalized judgment output. Confidence is always within
// [0, 1] after normalization.
type Verdict struct {
	ViolationDetected bool    `json:"violation_detected"`
	RuleViolated      string  `json:"rule_violated,omitempty"`
	Confidence        float64 `json:"confidence"`
	Reasoning         string  `json:"reasoning"`
}
