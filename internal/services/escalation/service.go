package escalation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tikhomirovv/tg-moderator-ai/internal/domain/enums"
	"github.com/tikhomirovv/tg-moderator-ai/internal/domain/model"
	pgrepo "github.com/tikhomirovv/tg-moderator-ai/internal/repo/postgres"
	"github.com/tikhomirovv/tg-moderator-ai/internal/services/judge"
)

const (
	defaultWarningsBeforeBan = 3
	defaultJudgeTimeout      = 30 * time.Second
)

// Outcome classifies what one pipeline run did.
type Outcome string

const (
	OutcomeIgnored       Outcome = "ignored"        // empty text, nothing recorded
	OutcomeDuplicate     Outcome = "duplicate"      // re-delivered message, no state change
	OutcomeBannedUser    Outcome = "banned_user"    // sender already banned, message recorded only
	OutcomeSkipped       Outcome = "skipped"        // judge unavailable, fail-open
	OutcomeNoViolation   Outcome = "no_violation"   // clean verdict
	OutcomeWarned        Outcome = "warned"         // warning issued
	OutcomeBanned        Outcome = "banned"         // ban transition performed by this event
	OutcomeAlreadyBanned Outcome = "already_banned" // lost the ban race, no duplicate records
)

// Result reports the decision for one inbound event.
type Result struct {
	Outcome      Outcome
	Verdict      judge.Verdict
	RuleID       string
	Warnings     int
	WarningsLeft int
	Deleted      bool
}

// RuleStore resolves a chat's configured rule ids to active rules.
type RuleStore interface {
	FindActiveByIDs(ctx context.Context, ids []string) ([]model.Rule, error)
}

// History is the per-user escalation state and message log.
type History interface {
	SaveMessage(ctx context.Context, msg model.Message) error
	GetOrCreate(ctx context.Context, botID string, chatID, userID int64, info model.UserInfo) (model.UserContext, bool, error)
	RecentTexts(ctx context.Context, botID string, chatID, userID int64) ([]string, error)
	IncrementWarnings(ctx context.Context, botID string, chatID, userID int64) (int, error)
	Ban(ctx context.Context, botID string, chatID, userID int64, ruleID string) (bool, error)
	MarkDeleted(ctx context.Context, botID string, chatID, messageID int64, reason string) error
}

// ActionStore appends audit records.
type ActionStore interface {
	Insert(ctx context.Context, action model.ModerationAction) (model.ModerationAction, error)
}

// StatsStore increments daily counters.
type StatsStore interface {
	Increment(ctx context.Context, botID string, chatID int64, at time.Time, field pgrepo.StatsField) error
}

// Judge produces a verdict for one message.
type Judge interface {
	Evaluate(ctx context.Context, req judge.Request) (judge.Verdict, error)
}

// Gateway executes outbound platform effects. Every call is fire-and-forget
// from the engine's point of view: failures are logged and never undo
// committed state.
type Gateway interface {
	SendMessage(ctx context.Context, token string, chatID int64, text string, replyToMessageID int64) error
	DeleteMessage(ctx context.Context, token string, chatID, messageID int64) error
	BanUser(ctx context.Context, token string, chatID, userID int64) error
}

type Config struct {
	JudgeTimeout time.Duration
}

// Service is the moderation state machine: it records the inbound message,
// obtains a verdict, walks Clean → Warned(n) → Banned and commits all local
// side effects before any outbound platform call.
type Service struct {
	rules   RuleStore
	history History
	actions ActionStore
	stats   StatsStore
	judge   Judge
	gateway Gateway
	logger  *zap.Logger
	cfg     Config
}

func NewService(rules RuleStore, history History, actions ActionStore, stats StatsStore, j Judge, gateway Gateway, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.JudgeTimeout <= 0 {
		cfg.JudgeTimeout = defaultJudgeTimeout
	}
	return &Service{
		rules:   rules,
		history: history,
		actions: actions,
		stats:   stats,
		judge:   j,
		gateway: gateway,
		logger:  logger,
		cfg:     cfg,
	}
}

// ProcessEvent runs the full pipeline for one inbound message. It is the
// single place implementing the fail-open policy: a judge failure skips the
// message without state mutation, audit/statistics write failures are logged
// and do not abort the decision, and outbound failures never roll anything
// back. The returned error covers only the pivotal persistence steps that
// happen before the warn/ban decision.
func (s *Service) ProcessEvent(ctx context.Context, bot model.Bot, chatCfg model.ChatConfig, event model.InboundEvent) (Result, error) {
	if s.history == nil || s.judge == nil {
		return Result{}, fmt.Errorf("escalation service dependencies are not configured")
	}
	if event.Text == "" {
		return Result{Outcome: OutcomeIgnored}, nil
	}

	err := s.history.SaveMessage(ctx, model.Message{
		BotID:     event.BotID,
		ChatID:    event.ChatID,
		UserID:    event.UserID,
		MessageID: event.MessageID,
		Text:      event.Text,
		SentAt:    event.SentAt,
	})
	if err != nil {
		if errors.Is(err, pgrepo.ErrMessageDuplicate) {
			s.logger.Debug("duplicate delivery ignored",
				zap.String("bot_id", event.BotID),
				zap.Int64("chat_id", event.ChatID),
				zap.Int64("message_id", event.MessageID))
			return Result{Outcome: OutcomeDuplicate}, nil
		}
		return Result{}, fmt.Errorf("record inbound message: %w", err)
	}

	s.bumpStats(ctx, event, pgrepo.StatsMessagesProcessed)

	userCtx, created, err := s.history.GetOrCreate(ctx, event.BotID, event.ChatID, event.UserID, event.User)
	if err != nil {
		return Result{}, fmt.Errorf("load user context: %w", err)
	}
	if created {
		s.bumpStats(ctx, event, pgrepo.StatsUniqueUsers)
	}

	// A banned user's messages are still recorded for context but trigger
	// no further transitions until an external unban.
	if userCtx.IsBanned {
		return Result{Outcome: OutcomeBannedUser}, nil
	}

	rules, err := s.loadRules(ctx, chatCfg)
	if err != nil {
		return Result{}, err
	}

	recent, err := s.history.RecentTexts(ctx, event.BotID, event.ChatID, event.UserID)
	if err != nil {
		// History is advisory context for the judge; evaluate without it.
		s.logger.Warn("recent history unavailable",
			zap.String("bot_id", event.BotID),
			zap.Int64("chat_id", event.ChatID),
			zap.Int64("user_id", event.UserID),
			zap.Error(err))
		recent = nil
	}

	judgeCtx, cancel := context.WithTimeout(ctx, s.cfg.JudgeTimeout)
	defer cancel()

	verdict, err := s.judge.Evaluate(judgeCtx, judge.Request{
		Message: event.Text,
		UserID:  event.UserID,
		ChatID:  event.ChatID,
		Rules:   rules,
		Context: judge.Context{
			UserWarnings:  userCtx.WarningsCount,
			RecentHistory: recent,
		},
	})
	if err != nil {
		// Fail-open: the message stays recorded, no escalation happens,
		// the next event is unaffected.
		s.logger.Warn("judge unavailable, skipping message",
			zap.String("bot_id", event.BotID),
			zap.Int64("chat_id", event.ChatID),
			zap.Int64("user_id", event.UserID),
			zap.Int64("message_id", event.MessageID),
			zap.Error(err))
		return Result{Outcome: OutcomeSkipped}, nil
	}

	if !verdict.ViolationDetected {
		return Result{Outcome: OutcomeNoViolation, Verdict: verdict}, nil
	}

	return s.handleViolation(ctx, bot, chatCfg, event, verdict)
}

func (s *Service) handleViolation(ctx context.Context, bot model.Bot, chatCfg model.ChatConfig, event model.InboundEvent, verdict judge.Verdict) (Result, error) {
	ruleID := verdict.RuleViolated
	if ruleID == "" {
		ruleID = "unknown"
	}

	threshold := chatCfg.WarningsBeforeBan
	if threshold <= 0 {
		threshold = defaultWarningsBeforeBan
	}

	warnings, err := s.history.IncrementWarnings(ctx, event.BotID, event.ChatID, event.UserID)
	if err != nil {
		return Result{}, fmt.Errorf("increment warnings: %w", err)
	}

	result := Result{
		Verdict:  verdict,
		RuleID:   ruleID,
		Warnings: warnings,
	}

	// The ban fires on the message whose post-increment count reaches the
	// threshold. Under concurrent delivery both events may land at or past
	// it; the idempotent ban transition decides the single winner that
	// writes the ban record.
	if warnings >= threshold {
		transitioned, err := s.history.Ban(ctx, event.BotID, event.ChatID, event.UserID, ruleID)
		if err != nil {
			return Result{}, fmt.Errorf("ban user: %w", err)
		}
		if !transitioned {
			result.Outcome = OutcomeAlreadyBanned
			return result, nil
		}

		result.Outcome = OutcomeBanned
		s.appendAction(ctx, model.ModerationAction{
			BotID:        event.BotID,
			ChatID:       event.ChatID,
			UserID:       event.UserID,
			MessageID:    event.MessageID,
			ActionType:   enums.ActionTypeBan,
			RuleViolated: ruleID,
			AIConfidence: verdict.Confidence,
			AIReasoning:  verdict.Reasoning,
		})
		s.bumpStats(ctx, event, pgrepo.StatsUsersBanned)
	} else {
		result.Outcome = OutcomeWarned
		result.WarningsLeft = threshold - warnings
		s.appendAction(ctx, model.ModerationAction{
			BotID:        event.BotID,
			ChatID:       event.ChatID,
			UserID:       event.UserID,
			MessageID:    event.MessageID,
			ActionType:   enums.ActionTypeWarning,
			RuleViolated: ruleID,
			AIConfidence: verdict.Confidence,
			AIReasoning:  verdict.Reasoning,
		})
		s.bumpStats(ctx, event, pgrepo.StatsWarningsIssued)
	}

	if chatCfg.AutoDeleteViolations {
		result.Deleted = true
		reason := fmt.Sprintf("Violation: %s", ruleID)
		if err := s.history.MarkDeleted(ctx, event.BotID, event.ChatID, event.MessageID, reason); err != nil {
			s.logger.Error("mark message deleted failed",
				zap.String("bot_id", event.BotID),
				zap.Int64("chat_id", event.ChatID),
				zap.Int64("message_id", event.MessageID),
				zap.Error(err))
		}
		s.appendAction(ctx, model.ModerationAction{
			BotID:        event.BotID,
			ChatID:       event.ChatID,
			UserID:       event.UserID,
			MessageID:    event.MessageID,
			ActionType:   enums.ActionTypeDelete,
			RuleViolated: ruleID,
			AIConfidence: 1.0,
			AIReasoning:  reason,
		})
		s.bumpStats(ctx, event, pgrepo.StatsMessagesDeleted)
	}

	// Local state is committed; everything below is outbound and must not
	// influence it.
	s.dispatchEffects(ctx, bot, chatCfg, event, result, threshold)

	return result, nil
}

// dispatchEffects sends notifications and platform operations for an
// already-committed decision. Silent mode drops all of them; individual
// failures are logged and ignored.
func (s *Service) dispatchEffects(ctx context.Context, bot model.Bot, chatCfg model.ChatConfig, event model.InboundEvent, result Result, threshold int) {
	if s.gateway == nil || chatCfg.SilentMode {
		return
	}

	switch result.Outcome {
	case OutcomeWarned:
		text := warningText(result.RuleID, result.Verdict.Confidence, result.Warnings, threshold, result.WarningsLeft)
		if err := s.gateway.SendMessage(ctx, bot.Token, event.ChatID, text, event.MessageID); err != nil {
			s.logOutboundFailure("send warning", event, err)
		}
	case OutcomeBanned:
		text := banText(event.User, event.UserID, result.Warnings, result.RuleID)
		if err := s.gateway.SendMessage(ctx, bot.Token, event.ChatID, text, 0); err != nil {
			s.logOutboundFailure("send ban notification", event, err)
		}
		if err := s.gateway.BanUser(ctx, bot.Token, event.ChatID, event.UserID); err != nil {
			s.logOutboundFailure("ban user", event, err)
		}
	}

	if result.Deleted {
		if err := s.gateway.DeleteMessage(ctx, bot.Token, event.ChatID, event.MessageID); err != nil {
			s.logOutboundFailure("delete message", event, err)
		}
	}
}

func (s *Service) loadRules(ctx context.Context, chatCfg model.ChatConfig) ([]model.Rule, error) {
	if s.rules == nil || len(chatCfg.RuleIDs) == 0 {
		return nil, nil
	}

	// Stale rule ids resolve to a smaller set; an empty effective set is
	// passed through and makes the judge report no violation.
	rules, err := s.rules.FindActiveByIDs(ctx, chatCfg.RuleIDs)
	if err != nil {
		return nil, fmt.Errorf("load chat rules: %w", err)
	}

	return rules, nil
}

func (s *Service) appendAction(ctx context.Context, action model.ModerationAction) {
	if s.actions == nil {
		return
	}
	if _, err := s.actions.Insert(ctx, action); err != nil {
		s.logger.Error("append moderation action failed",
			zap.String("bot_id", action.BotID),
			zap.Int64("chat_id", action.ChatID),
			zap.Int64("user_id", action.UserID),
			zap.String("action_type", string(action.ActionType)),
			zap.Error(err))
	}
}

func (s *Service) bumpStats(ctx context.Context, event model.InboundEvent, field pgrepo.StatsField) {
	if s.stats == nil {
		return
	}
	if err := s.stats.Increment(ctx, event.BotID, event.ChatID, time.Now().UTC(), field); err != nil {
		s.logger.Error("increment statistics failed",
			zap.String("bot_id", event.BotID),
			zap.Int64("chat_id", event.ChatID),
			zap.String("field", string(field)),
			zap.Error(err))
	}
}

func (s *Service) logOutboundFailure(op string, event model.InboundEvent, err error) {
	s.logger.Warn("outbound platform call failed",
		zap.String("op", op),
		zap.String("bot_id", event.BotID),
		zap.Int64("chat_id", event.ChatID),
		zap.Int64("user_id", event.UserID),
		zap.Error(err))
}
