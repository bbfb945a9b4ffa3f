package judge

import (
	"strings"
	"testing"

	"github.com/tikhomirovv/tg-moderator-ai/internal/domain/enums"
	"github.com/tikhomirovv/tg-moderator-ai/internal/domain/model"
)

func TestBuildPromptEmbedsRulesAndContext(t *testing.T) {
	rules := []model.Rule{
		{ID: "no_spam", Name: "No spam", Description: "Advertising is forbidden", AIPrompt: "links, promos, repeated offers", Severity: enums.SeverityHigh},
		{ID: "no_insults", Name: "No insults", Description: "Be civil", AIPrompt: "personal attacks, slurs", Severity: enums.SeverityMedium},
	}
	ctx := Context{
		UserWarnings:  2,
		RecentHistory: []string{"newest", "older", "oldest", "ancient", "prehistoric"},
	}

	prompt := BuildPrompt("check this out: bit.ly/xyz", rules, ctx)

	for _, want := range []string{
		"no_spam", "Advertising is forbidden", "links, promos, repeated offers",
		"no_insults", "personal attacks, slurs",
		"previous warnings count: 2",
		"CHAT RULES (2 rules)",
		`"check this out: bit.ly/xyz"`,
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q", want)
		}
	}

	// Only the last 3 history entries may appear.
	if !strings.Contains(prompt, "newest, older, oldest") {
		t.Fatal("prompt missing trimmed history window")
	}
	if strings.Contains(prompt, "ancient") || strings.Contains(prompt, "prehistoric") {
		t.Fatal("prompt leaked history beyond the window")
	}
}

func TestBuildPromptEmptyRuleSet(t *testing.T) {
	prompt := BuildPrompt("hello", nil, Context{})

	if !strings.Contains(prompt, "CHAT RULES (0 rules)") {
		t.Fatal("prompt missing empty rule count")
	}
	if !strings.Contains(prompt, "No rules configured") {
		t.Fatal("prompt missing empty rule set marker")
	}
}

func TestBuildPromptIsDeterministic(t *testing.T) {
	rules := []model.Rule{{ID: "no_spam", Name: "No spam", AIPrompt: "ads"}}
	ctx := Context{UserWarnings: 1, RecentHistory: []string{"a", "b"}}

	first := BuildPrompt("msg", rules, ctx)
	second := BuildPrompt("msg", rules, ctx)
	if first != second {
		t.Fatal("prompt is not deterministic for identical input")
	}
}
