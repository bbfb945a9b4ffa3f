package judge

import (
	"fmt"
	"strings"

	"github.com/tikhomirovv/tg-moderator-ai/internal/domain/model"
)

const systemPrompt = "You are a chat moderator. Your task is to analyze messages for rule violations. " +
	"Pay attention to user context, warning history, and conversation flow."

const historyWindow = 3

// BuildPrompt renders the user prompt for one judgment call. The output is a
// deterministic function of the message, the rule set and the user context.
// The judge is explicitly restricted to the supplied rules: an empty rule
// set or a non-matching message must yield no violation.
func BuildPrompt(message string, rules []model.Rule, ctx Context) string {
	var b strings.Builder

	b.WriteString("You are a chat moderator. Your task is to analyze messages for rule violations.\n\n")
	b.WriteString("IMPORTANT: Analyze the message ONLY based on the provided rules. ")
	b.WriteString("DO NOT invent additional rules or use general moderation principles. ")
	b.WriteString("If there are no rules or the message does not violate any of the provided rules - consider that there are no violations.\n\n")

	history := ctx.RecentHistory
	if len(history) > historyWindow {
		history = history[:historyWindow]
	}

	b.WriteString("PAY SPECIAL ATTENTION TO:\n")
	fmt.Fprintf(&b, "- User's previous warnings count: %d\n", ctx.UserWarnings)
	fmt.Fprintf(&b, "- Recent chat history context: %s\n", strings.Join(history, ", "))
	b.WriteString("- User's behavior pattern and escalation of violations\n")
	b.WriteString("- Context of the conversation and whether this is a repeated offense\n\n")

	b.WriteString("RESPOND IN THE FOLLOWING FORMAT:\n")
	b.WriteString("{\n")
	b.WriteString("  \"violation_detected\": true/false,\n")
	b.WriteString("  \"rule_violated\": \"rule_id\" (if violation exists),\n")
	b.WriteString("  \"confidence\": 0.0-1.0,\n")
	b.WriteString("  \"reasoning\": \"explanation of decision including context consideration\"\n")
	b.WriteString("}\n")
	b.WriteString("JSON response only, no additional text.\n\n")

	fmt.Fprintf(&b, "CHAT RULES (%d rules):\n", len(rules))
	if len(rules) == 0 {
		b.WriteString("No rules configured\n")
	} else {
		for _, rule := range rules {
			fmt.Fprintf(&b, "- %s (%s): %s\n  Criteria: %s\n", rule.ID, rule.Name, rule.Description, rule.AIPrompt)
		}
	}

	b.WriteString("\nMESSAGE TO ANALYZE:\n")
	fmt.Fprintf(&b, "%q\n\n", message)

	b.WriteString("REMEMBER: Analyze ONLY based on the provided rules. ")
	b.WriteString("Consider the user's warning history and chat context when making decisions. ")
	b.WriteString("If there are no rules or the message doesn't violate rules - violation_detected = false.")

	return b.String()
}
